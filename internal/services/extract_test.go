package services

import (
	"context"
	"errors"
	"testing"
)

func TestExtractNameFallback(t *testing.T) {
	e := NewExtractors(nil)
	cases := []struct {
		input string
		want  string
		ok    bool
	}{
		{"I'm Alex", "Alex", true},
		{"my name is jamie", "Jamie", true},
		{"call me Sam-Lee", "Sam-lee", true},
		{"alex", "Alex", true},
		{"well it is complicated", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := e.Name(context.Background(), tc.input)
		if got != tc.want || ok != tc.ok {
			t.Errorf("Name(%q) = (%q, %v), want (%q, %v)", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}

func TestExtractNameModelFirst(t *testing.T) {
	e := NewExtractors(&stubLLM{out: "Priya"})
	if got, ok := e.Name(context.Background(), "people usually call me Priya"); !ok || got != "Priya" {
		t.Fatalf("Name = (%q, %v), want (Priya, true)", got, ok)
	}

	// A clean "none" from the model is a definitive miss, not a cue to
	// run the rules.
	e = NewExtractors(&stubLLM{out: "none"})
	if _, ok := e.Name(context.Background(), "I'm Alex"); ok {
		t.Fatal("model miss should not fall back to rules")
	}

	e = NewExtractors(&stubLLM{err: errors.New("timeout")})
	if got, ok := e.Name(context.Background(), "I'm Alex"); !ok || got != "Alex" {
		t.Fatalf("Name on model error = (%q, %v), want (Alex, true)", got, ok)
	}
}

func TestExtractAge(t *testing.T) {
	// Bare digits bypass the model entirely.
	e := NewExtractors(&stubLLM{err: errors.New("must not be called")})
	if got, ok := e.Age(context.Background(), "29"); !ok || got != 29 {
		t.Fatalf("Age(29) = (%d, %v), want (29, true)", got, ok)
	}
	if _, ok := e.Age(context.Background(), "4"); ok {
		t.Fatal("age below lower bound should be rejected")
	}
	if _, ok := e.Age(context.Background(), "200"); ok {
		t.Fatal("age above upper bound should be rejected")
	}

	e = NewExtractors(&stubLLM{out: "34"})
	if got, ok := e.Age(context.Background(), "I turned 34 last month"); !ok || got != 34 {
		t.Fatalf("Age via model = (%d, %v), want (34, true)", got, ok)
	}

	e = NewExtractors(nil)
	if got, ok := e.Age(context.Background(), "I'm 42 years old"); !ok || got != 42 {
		t.Fatalf("Age fallback = (%d, %v), want (42, true)", got, ok)
	}
	if _, ok := e.Age(context.Background(), "none of your business"); ok {
		t.Fatal("no digits should be a miss")
	}
}

func TestExtractGenderFallback(t *testing.T) {
	e := NewExtractors(nil)
	cases := []struct {
		input string
		want  string
		ok    bool
	}{
		{"female", "female", true},
		{"I am a man", "male", true},
		{"F", "female", true},
		{"non-binary", "other", true},
		{"I'd prefer not to say", "other", true},
		{"human", "", false},
	}
	for _, tc := range cases {
		got, ok := e.Gender(context.Background(), tc.input)
		if got != tc.want || ok != tc.ok {
			t.Errorf("Gender(%q) = (%q, %v), want (%q, %v)", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}

func TestExtractGenderModel(t *testing.T) {
	e := NewExtractors(&stubLLM{out: "Other"})
	if got, ok := e.Gender(context.Background(), "genderfluid"); !ok || got != "other" {
		t.Fatalf("Gender via model = (%q, %v), want (other, true)", got, ok)
	}

	// An off-vocabulary model answer is a miss.
	e = NewExtractors(&stubLLM{out: "unsure"})
	if _, ok := e.Gender(context.Background(), "female"); ok {
		t.Fatal("unrecognized model answer should not fall back")
	}
}
