package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/elli-study/elli/internal/llm"
	"github.com/elli-study/elli/internal/models"
	"github.com/elli-study/elli/internal/sheet"
)

// Recorder is the persistence boundary the state machine talks to. Every
// method is best-effort from the conversation's point of view: failures
// come back as warnings, never as aborted turns.
type Recorder interface {
	// LogTurn appends one message to the forensic turn log.
	LogTurn(ctx context.Context, sessionID string, m models.Message) error
	// WritePartial merges the given columns into the session's row,
	// claiming a row first if the session has none. Only blank columns
	// are overwritten (first write wins per column).
	WritePartial(ctx context.Context, s *models.Session, cols map[int]string) error
	// WriteFull writes the session's complete row.
	WriteFull(ctx context.Context, s *models.Session) error
}

// TurnResult is what one call to HandleTurn produced: the assistant
// messages appended this turn and any non-fatal persistence warnings.
type TurnResult struct {
	Messages []models.Message `json:"messages"`
	Warnings []string         `json:"warnings,omitempty"`
}

// IntakeService is the conversational intake state machine. It owns all
// Session mutation: one utterance in, zero or more assistant messages out.
type IntakeService struct {
	safety  *SafetyClassifier
	extract *Extractors
	llm     llm.Service // nil degrades generation to fixed fallbacks
	rec     Recorder
	now     func() time.Time
	idGen   func() string
}

func NewIntakeService(svc llm.Service, rec Recorder) *IntakeService {
	return &IntakeService{
		safety:  NewSafetyClassifier(svc),
		extract: NewExtractors(svc),
		llm:     svc,
		rec:     rec,
		now:     func() time.Time { return time.Now().UTC() },
		idGen:   func() string { return shortID(12) },
	}
}

// NewSession creates a chatbot-condition session with the opening greeting
// already in the transcript.
func (s *IntakeService) NewSession(ctx context.Context) (*models.Session, TurnResult) {
	now := s.now()
	sess := &models.Session{
		ID:        s.idGen(),
		Condition: models.ConditionChatbot,
		Step:      models.StepIntro,
		CreatedAt: now,
		UpdatedAt: now,
	}
	var res TurnResult
	s.say(ctx, sess, &res, msgGreeting)
	return sess, res
}

// HandleTurn advances the session by exactly one user utterance.
//
// Order per call: append the user message; run the safety gate (skipped
// during PHQ/GAD, whose numeric answers must not trip crisis heuristics);
// then dispatch on the current step. Validation misses re-prompt without
// advancing. A blank utterance is a no-op.
func (s *IntakeService) HandleTurn(ctx context.Context, sess *models.Session, utterance string) TurnResult {
	var res TurnResult
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return res
	}

	if sess.Step == models.StepDone {
		// Terminal: fixed reply, no session mutation.
		res.Messages = append(res.Messages, models.Message{Speaker: models.SpeakerBot, Text: msgAlreadyDone, At: s.now()})
		return res
	}

	sess.Append(models.SpeakerUser, utterance, s.now())
	sess.UpdatedAt = s.now()
	s.logTurn(ctx, sess, &res, models.Message{Speaker: models.SpeakerUser, Text: utterance, At: sess.UpdatedAt})

	if !sess.Step.Structured() && s.safety.IsCrisis(ctx, utterance) {
		s.say(ctx, sess, &res, msgCrisis)
		return res
	}

	switch sess.Step {
	case models.StepIntro:
		s.stepIntro(ctx, sess, &res, utterance)
	case models.StepMood:
		s.stepMood(ctx, sess, &res, utterance)
	case models.StepAskAge:
		s.stepAskAge(ctx, sess, &res, utterance)
	case models.StepAskGender:
		s.stepAskGender(ctx, sess, &res, utterance)
	case models.StepPHQ:
		s.stepPHQ(ctx, sess, &res, utterance)
	case models.StepGAD:
		s.stepGAD(ctx, sess, &res, utterance)
	case models.StepFeedback:
		s.stepFeedback(ctx, sess, &res, utterance)
	}
	return res
}

func (s *IntakeService) stepIntro(ctx context.Context, sess *models.Session, res *TurnResult, utterance string) {
	name, ok := s.extract.Name(ctx, utterance)
	if !ok {
		// No forced-progress fallback: the intro loop re-prompts until a
		// name is recognized.
		s.say(ctx, sess, res, msgNameRetry)
		return
	}
	sess.Demographics.Name = name
	sess.Step = models.StepMood
	s.say(ctx, sess, res, msgGreetByName(name))
}

func (s *IntakeService) stepMood(ctx context.Context, sess *models.Session, res *TurnResult, utterance string) {
	sess.InitialMood = utterance
	reflection := fallbackMoodResponse
	if s.llm != nil {
		if out, err := s.llm.Complete(ctx, promptMoodResponse(utterance, sess.Demographics.Name), SystemInstruction); err == nil && out != "" {
			reflection = out
		} else if err != nil {
			log.Printf("intake: mood reflection via language service: %v", err)
		}
	}
	s.say(ctx, sess, res, reflection)
	sess.Step = models.StepAskAge
	s.say(ctx, sess, res, msgAskAge)
	// Column D holds the whole opening exchange, both sides.
	exchange := fmt.Sprintf("User: %s\nElli: %s", utterance, reflection)
	s.persistPartial(ctx, sess, res, map[int]string{sheet.ColMood: exchange})
}

func (s *IntakeService) stepAskAge(ctx context.Context, sess *models.Session, res *TurnResult, utterance string) {
	age, ok := s.extract.Age(ctx, utterance)
	if !ok {
		s.say(ctx, sess, res, msgAgeRetry)
		return
	}
	sess.Demographics.Age = age
	sess.Step = models.StepAskGender
	s.say(ctx, sess, res, msgAskGender)
	s.persistPartial(ctx, sess, res, map[int]string{sheet.ColAge: strconv.Itoa(age)})
}

func (s *IntakeService) stepAskGender(ctx context.Context, sess *models.Session, res *TurnResult, utterance string) {
	gender, ok := s.extract.Gender(ctx, utterance)
	if !ok {
		s.say(ctx, sess, res, msgGenderRetry)
		return
	}
	sess.Demographics.Gender = gender
	sess.Step = models.StepPHQ
	sess.PHQIndex = 0
	s.say(ctx, sess, res, msgFirstPHQ())
	s.persistPartial(ctx, sess, res, map[int]string{sheet.ColGender: gender})
}

func (s *IntakeService) stepPHQ(ctx context.Context, sess *models.Session, res *TurnResult, utterance string) {
	score, ok := parseScaleAnswer(utterance)
	if !ok {
		s.say(ctx, sess, res, msgScaleInstructions)
		return
	}
	sess.PHQAnswers = append(sess.PHQAnswers, score)
	sess.PHQIndex++
	if sess.PHQIndex < len(PHQ9Questions) {
		s.say(ctx, sess, res, msgNextPHQ(sess.PHQIndex))
		return
	}
	sess.PHQTotal, _ = Score(sess.PHQAnswers, ScalePHQ)
	sess.Step = models.StepGAD
	sess.GADIndex = 0
	s.say(ctx, sess, res, msgFirstGAD())

	cols := map[int]string{sheet.ColPHQTotal: strconv.Itoa(sess.PHQTotal)}
	for i, a := range sess.PHQAnswers {
		cols[sheet.ColPHQFirst+i] = strconv.Itoa(a)
	}
	s.persistPartial(ctx, sess, res, cols)
}

func (s *IntakeService) stepGAD(ctx context.Context, sess *models.Session, res *TurnResult, utterance string) {
	score, ok := parseScaleAnswer(utterance)
	if !ok {
		s.say(ctx, sess, res, msgScaleInstructions)
		return
	}
	sess.GADAnswers = append(sess.GADAnswers, score)
	sess.GADIndex++
	if sess.GADIndex < len(GAD7Questions) {
		s.say(ctx, sess, res, msgNextGAD(sess.GADIndex))
		return
	}

	result := ScoreBoth(sess.PHQAnswers, sess.GADAnswers)
	summary := fallbackSummary(result)
	if s.llm != nil {
		if out, err := s.llm.Complete(ctx, promptSummary(result, sess.InitialMood), SystemInstruction); err == nil && out != "" {
			summary = out
		} else if err != nil {
			log.Printf("intake: summary via language service: %v", err)
		}
	}

	sess.Step = models.StepFeedback
	sess.Asked = models.FeedbackAsked{Trust: true}
	s.say(ctx, sess, res, msgSummaryLead)
	s.say(ctx, sess, res, summary)
	s.say(ctx, sess, res, msgAskTrust)

	cols := map[int]string{sheet.ColGADTotal: strconv.Itoa(result.GADTotal)}
	for i, a := range sess.GADAnswers {
		cols[sheet.ColGADFirst+i] = strconv.Itoa(a)
	}
	s.persistPartial(ctx, sess, res, cols)
}

func (s *IntakeService) stepFeedback(ctx context.Context, sess *models.Session, res *TurnResult, utterance string) {
	switch {
	case sess.Asked.Trust && sess.Feedback.Trust == 0:
		v, ok := parseLikert(utterance)
		if !ok {
			s.say(ctx, sess, res, msgLikertRetry)
			return
		}
		sess.Feedback.Trust = v
		sess.Asked.Trust = false
		sess.Asked.Comfort = true
		s.say(ctx, sess, res, msgAskComfort)
		s.persistPartial(ctx, sess, res, map[int]string{sheet.ColTrust: strconv.Itoa(v)})

	case sess.Asked.Comfort && sess.Feedback.Comfort == 0:
		v, ok := parseLikert(utterance)
		if !ok {
			s.say(ctx, sess, res, msgLikertRetry)
			return
		}
		sess.Feedback.Comfort = v
		sess.Asked.Comfort = false
		sess.Asked.Empathy = true
		s.say(ctx, sess, res, msgAskEmpathy)
		s.persistPartial(ctx, sess, res, map[int]string{sheet.ColComfort: strconv.Itoa(v)})

	case sess.Asked.Empathy && sess.Feedback.Empathy == 0:
		v, ok := parseLikert(utterance)
		if !ok {
			s.say(ctx, sess, res, msgLikertRetry)
			return
		}
		sess.Feedback.Empathy = v
		sess.Asked.Empathy = false
		sess.Asked.Reflection = true
		s.say(ctx, sess, res, msgAskReflection)
		s.persistPartial(ctx, sess, res, map[int]string{sheet.ColEmpathy: strconv.Itoa(v)})

	case sess.Asked.Reflection && sess.Feedback.Reflection == "":
		sess.Feedback.Reflection = utterance
		sess.Asked.Reflection = false
		if err := s.rec.WriteFull(ctx, sess); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("persist: final row write: %v", err))
		}
		s.say(ctx, sess, res, msgClosing(sess.Demographics.Name))
		sess.Step = models.StepDone

	default:
		// No flag pending: re-enter the phase by asking the first
		// unanswered question instead of consuming stale input.
		switch {
		case sess.Feedback.Trust == 0:
			sess.Asked.Trust = true
			s.say(ctx, sess, res, msgAskTrust)
		case sess.Feedback.Comfort == 0:
			sess.Asked.Comfort = true
			s.say(ctx, sess, res, msgAskComfort)
		case sess.Feedback.Empathy == 0:
			sess.Asked.Empathy = true
			s.say(ctx, sess, res, msgAskEmpathy)
		default:
			sess.Asked.Reflection = true
			s.say(ctx, sess, res, msgAskReflection)
		}
	}
}

// say appends a bot message to the transcript, the result, and the turn log.
func (s *IntakeService) say(ctx context.Context, sess *models.Session, res *TurnResult, text string) {
	m := sess.Append(models.SpeakerBot, text, s.now())
	res.Messages = append(res.Messages, m)
	s.logTurn(ctx, sess, res, m)
}

func (s *IntakeService) logTurn(ctx context.Context, sess *models.Session, res *TurnResult, m models.Message) {
	if s.rec == nil {
		return
	}
	if err := s.rec.LogTurn(ctx, sess.ID, m); err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("persist: turn log: %v", err))
	}
}

func (s *IntakeService) persistPartial(ctx context.Context, sess *models.Session, res *TurnResult, cols map[int]string) {
	if s.rec == nil {
		return
	}
	if err := s.rec.WritePartial(ctx, sess, cols); err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("persist: progress write: %v", err))
	}
}

// parseScaleAnswer accepts exactly one of 0..3.
func parseScaleAnswer(text string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 0 || n > 3 {
		return 0, false
	}
	return n, true
}

// parseLikert accepts exactly one of 1..5.
func parseLikert(text string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 1 || n > 5 {
		return 0, false
	}
	return n, true
}

func shortID(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}
