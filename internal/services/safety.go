package services

import (
	"context"
	"log"
	"strings"

	"github.com/elli-study/elli/internal/llm"
)

// crisisKeywords is the conservative local screen. It runs on every
// qualifying turn, regardless of Language Service availability, and a
// local match always wins over a remote "safe" verdict.
var crisisKeywords = []string{
	"suicide",
	"suicidal",
	"end my life",
	"kill myself",
	"want to die",
	"self-harm",
	"self harm",
	"hurt myself",
	"overdose",
	"jump off",
	"hang myself",
}

// SafetyClassifier decides whether free text signals crisis risk.
type SafetyClassifier struct {
	llm llm.Service // nil means rule-based only
}

func NewSafetyClassifier(svc llm.Service) *SafetyClassifier {
	return &SafetyClassifier{llm: svc}
}

// IsCrisis ORs the local keyword check with the Language Service verdict.
// A Language Service failure degrades silently to the local result.
func (c *SafetyClassifier) IsCrisis(ctx context.Context, text string) bool {
	t := strings.ToLower(text)
	for _, kw := range crisisKeywords {
		if strings.Contains(t, kw) {
			return true
		}
	}
	if c.llm == nil {
		return false
	}
	out, err := c.llm.Complete(ctx, promptSafetyCheck(text), SystemInstruction)
	if err != nil {
		log.Printf("safety: language service unavailable: %v", err)
		return false
	}
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(out)), "CRISIS")
}
