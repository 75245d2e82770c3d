package services

import (
	"context"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/elli-study/elli/internal/llm"
)

// Age bounds. Values outside are rejected, not stored.
const (
	MinAge = 5
	MaxAge = 110
)

var (
	nameRe  = regexp.MustCompile(`(?i)\b(?:i'?m|i am|my name is|call me)\s+([A-Za-z][A-Za-z\-']{1,30})\b`)
	tokenRe = regexp.MustCompile(`[A-Za-z][A-Za-z\-']{1,30}`)
	ageRe   = regexp.MustCompile(`\b(\d{1,3})\b`)
)

// genderKeywords maps reply tokens and phrases to the stored categories.
var genderKeywords = map[string]string{
	"male":              "male",
	"man":               "male",
	"m":                 "male",
	"female":            "female",
	"woman":             "female",
	"f":                 "female",
	"non-binary":        "other",
	"nonbinary":         "other",
	"enby":              "other",
	"nb":                "other",
	"agender":           "other",
	"genderqueer":       "other",
	"genderfluid":       "other",
	"gender fluid":      "other",
	"trans":             "other",
	"transgender":       "other",
	"other":             "other",
	"prefer not to say": "other",
}

// Extractors parse demographic fields from free text: Language Service
// first, deterministic rules when it is unavailable.
type Extractors struct {
	llm llm.Service // nil means rule-based only
}

func NewExtractors(svc llm.Service) *Extractors {
	return &Extractors{llm: svc}
}

// Name returns the extracted name and whether one was found.
func (e *Extractors) Name(ctx context.Context, input string) (string, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", false
	}
	if e.llm != nil {
		out, err := e.llm.Complete(ctx, promptExtractName(input), "")
		if err == nil {
			name := strings.TrimSpace(out)
			if name != "" && !strings.EqualFold(name, "none") {
				return name, true
			}
			return "", false
		}
		log.Printf("extract: name via language service: %v", err)
	}
	return fallbackName(input)
}

func fallbackName(input string) (string, bool) {
	if m := nameRe.FindStringSubmatch(input); m != nil {
		return titleCase(m[1]), true
	}
	toks := tokenRe.FindAllString(input, -1)
	if len(toks) == 1 {
		return titleCase(toks[0]), true
	}
	return "", false
}

// Age returns an integer age within [MinAge,MaxAge] and whether one was
// found. A bare number answer is taken directly without any remote call.
func (e *Extractors) Age(ctx context.Context, input string) (int, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, false
	}
	if isDigits(input) {
		return boundAge(input)
	}
	if e.llm != nil {
		out, err := e.llm.Complete(ctx, promptExtractAge(input), "")
		if err == nil {
			val := strings.ToLower(strings.TrimSpace(out))
			if isDigits(val) {
				return boundAge(val)
			}
			return 0, false
		}
		log.Printf("extract: age via language service: %v", err)
	}
	return fallbackAge(input)
}

func fallbackAge(input string) (int, bool) {
	for _, m := range ageRe.FindAllStringSubmatch(input, -1) {
		if n, ok := boundAge(m[1]); ok {
			return n, ok
		}
	}
	return 0, false
}

func boundAge(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < MinAge || n > MaxAge {
		return 0, false
	}
	return n, true
}

// Gender returns one of male/female/other and whether one was recognized.
func (e *Extractors) Gender(ctx context.Context, input string) (string, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", false
	}
	if e.llm != nil {
		out, err := e.llm.Complete(ctx, promptExtractGender(input), "")
		if err == nil {
			val := strings.ToLower(strings.TrimSpace(out))
			switch val {
			case "male", "female", "other":
				return val, true
			}
			return "", false
		}
		log.Printf("extract: gender via language service: %v", err)
	}
	return fallbackGender(input)
}

func fallbackGender(input string) (string, bool) {
	t := strings.ToLower(strings.TrimSpace(input))
	if g, ok := genderKeywords[t]; ok {
		return g, true
	}
	// Multi-word keys first so "prefer not to say" beats its tokens.
	for k, g := range genderKeywords {
		if strings.Contains(k, " ") && strings.Contains(t, k) {
			return g, true
		}
	}
	for _, tok := range strings.FieldsFunc(t, func(r rune) bool {
		return !(r == '-' || r == '\'' || (r >= 'a' && r <= 'z'))
	}) {
		if g, ok := genderKeywords[tok]; ok {
			return g, true
		}
	}
	return "", false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	return strings.ToUpper(lower[:1]) + lower[1:]
}
