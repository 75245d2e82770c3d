package services

import (
	"context"
	"errors"
	"testing"
)

// stubLLM is a canned language service for tests.
type stubLLM struct {
	out string
	err error
}

func (s *stubLLM) Complete(ctx context.Context, prompt, system string) (string, error) {
	return s.out, s.err
}

func TestIsCrisisKeywords(t *testing.T) {
	c := NewSafetyClassifier(nil)
	cases := []struct {
		text string
		want bool
	}{
		{"I want to kill myself", true},
		{"I've been thinking about suicide a lot", true},
		{"sometimes I want to hurt myself", true},
		{"Self-Harm has crossed my mind", true},
		{"I'm just really tired lately", false},
		{"my dog died last week", false},
		{"2", false},
	}
	for _, tc := range cases {
		if got := c.IsCrisis(context.Background(), tc.text); got != tc.want {
			t.Errorf("IsCrisis(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestIsCrisisLocalOverridesModel(t *testing.T) {
	// Keyword hit must stand even when the model says OK.
	c := NewSafetyClassifier(&stubLLM{out: "OK"})
	if !c.IsCrisis(context.Background(), "I want to end my life") {
		t.Fatal("keyword match should override a negative model verdict")
	}
}

func TestIsCrisisModelVerdict(t *testing.T) {
	c := NewSafetyClassifier(&stubLLM{out: "CRISIS"})
	if !c.IsCrisis(context.Background(), "everything feels pointless and I have a plan") {
		t.Fatal("CRISIS verdict should flag text without keywords")
	}

	c = NewSafetyClassifier(&stubLLM{out: "OK"})
	if c.IsCrisis(context.Background(), "I had a rough week at work") {
		t.Fatal("OK verdict on benign text should not flag")
	}
}

func TestIsCrisisModelErrorFallsBack(t *testing.T) {
	c := NewSafetyClassifier(&stubLLM{err: errors.New("timeout")})
	if c.IsCrisis(context.Background(), "I had a rough week at work") {
		t.Fatal("model error on benign text should fall back to keywords only")
	}
	if !c.IsCrisis(context.Background(), "I keep thinking I want to die") {
		t.Fatal("model error must not mask a keyword hit")
	}
}
