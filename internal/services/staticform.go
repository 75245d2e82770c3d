package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/elli-study/elli/internal/models"
)

// StaticSubmission is the static arm's one-shot questionnaire payload: the
// same fields the chatbot collects turn by turn, submitted as a single form.
type StaticSubmission struct {
	Age        int    `json:"age"`
	Gender     string `json:"gender"`
	Mood       string `json:"mood"`
	PHQ        []int  `json:"phq"`
	GAD        []int  `json:"gad"`
	Trust      int    `json:"trust"`
	Comfort    int    `json:"comfort"`
	Empathy    int    `json:"empathy"`
	Reflection string `json:"reflection"`
}

// StaticFormService validates, scores, and records static-condition
// submissions.
type StaticFormService struct {
	rec   Recorder
	now   func() time.Time
	idGen func() string
}

func NewStaticFormService(rec Recorder) *StaticFormService {
	return &StaticFormService{
		rec:   rec,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: func() string { return shortID(12) },
	}
}

// Submit scores a complete submission and writes its row. Everything is
// validated up front; a partial static submission is never persisted.
func (s *StaticFormService) Submit(ctx context.Context, sub StaticSubmission) (ScoreResult, error) {
	if err := validateSubmission(sub); err != nil {
		return ScoreResult{}, err
	}

	result := ScoreBoth(sub.PHQ, sub.GAD)
	now := s.now()
	sess := &models.Session{
		ID:        s.idGen(),
		Condition: models.ConditionStatic,
		Step:      models.StepDone,
		Demographics: models.Demographics{
			Age:    sub.Age,
			Gender: strings.ToLower(strings.TrimSpace(sub.Gender)),
		},
		InitialMood: strings.TrimSpace(sub.Mood),
		PHQAnswers:  sub.PHQ,
		GADAnswers:  sub.GAD,
		PHQTotal:    result.PHQTotal,
		Feedback: models.Feedback{
			Trust:      sub.Trust,
			Comfort:    sub.Comfort,
			Empathy:    sub.Empathy,
			Reflection: strings.TrimSpace(sub.Reflection),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.rec.WriteFull(ctx, sess); err != nil {
		return ScoreResult{}, err
	}
	return result, nil
}

func validateSubmission(sub StaticSubmission) error {
	if sub.Age < MinAge || sub.Age > MaxAge {
		return NewInvalidError(fmt.Sprintf("age must be between %d and %d", MinAge, MaxAge))
	}
	switch strings.ToLower(strings.TrimSpace(sub.Gender)) {
	case "male", "female", "other":
	default:
		return NewInvalidError("gender must be one of male/female/other")
	}
	if len(sub.PHQ) != len(PHQ9Questions) {
		return NewInvalidError(fmt.Sprintf("expected %d depression answers", len(PHQ9Questions)))
	}
	for i, v := range sub.PHQ {
		if v < 0 || v > 3 {
			return NewInvalidError(fmt.Sprintf("depression answer %d out of range 0-3", i+1))
		}
	}
	if len(sub.GAD) != len(GAD7Questions) {
		return NewInvalidError(fmt.Sprintf("expected %d anxiety answers", len(GAD7Questions)))
	}
	for i, v := range sub.GAD {
		if v < 0 || v > 3 {
			return NewInvalidError(fmt.Sprintf("anxiety answer %d out of range 0-3", i+1))
		}
	}
	for _, f := range []struct {
		name string
		v    int
	}{{"trust", sub.Trust}, {"comfort", sub.Comfort}, {"empathy", sub.Empathy}} {
		if f.v < 1 || f.v > 5 {
			return NewInvalidError(fmt.Sprintf("%s rating out of range 1-5", f.name))
		}
	}
	return nil
}
