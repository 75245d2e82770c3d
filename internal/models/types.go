package models

import "time"

// Condition labels for the two study arms.
const (
	ConditionChatbot = "chatbot"
	ConditionStatic  = "static"
)

// Speaker identifies who produced a transcript message.
type Speaker string

const (
	SpeakerBot  Speaker = "bot"
	SpeakerUser Speaker = "user"
)

// Step is the intake state machine's current phase. The set is closed;
// dispatch happens on exactly these values.
type Step string

const (
	StepIntro     Step = "intro"
	StepMood      Step = "mood"
	StepAskAge    Step = "ask_age"
	StepAskGender Step = "ask_gender"
	StepPHQ       Step = "phq"
	StepGAD       Step = "gad"
	StepFeedback  Step = "feedback"
	StepDone      Step = "done"
)

// Structured reports whether the step collects fixed numeric answers.
// Structured turns are exempt from the safety gate.
func (s Step) Structured() bool { return s == StepPHQ || s == StepGAD }

// Message is one transcript entry. The transcript is append-only and its
// order is the canonical conversation history.
type Message struct {
	Speaker Speaker   `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

// Demographics collected during the ask_age/ask_gender phase.
// Age is zero until set; once set it is within [5,110].
// Gender is one of male/female/other, or empty until set.
type Demographics struct {
	Name   string `json:"name"`
	Age    int    `json:"age,omitempty"`
	Gender string `json:"gender,omitempty"`
}

// Feedback holds the usability sub-survey. Likert fields are zero until
// set, then within [1,5]. Fields are set at most once, in order
// trust, comfort, empathy, reflection.
type Feedback struct {
	Trust      int    `json:"trust,omitempty"`
	Comfort    int    `json:"comfort,omitempty"`
	Empathy    int    `json:"empathy,omitempty"`
	Reflection string `json:"reflection,omitempty"`
}

// FeedbackAsked tracks which feedback sub-questions have been put to the
// participant, making the feedback phase re-entrant: the handler re-asks
// the pending question instead of reprocessing stale input.
type FeedbackAsked struct {
	Trust      bool `json:"trust,omitempty"`
	Comfort    bool `json:"comfort,omitempty"`
	Empathy    bool `json:"empathy,omitempty"`
	Reflection bool `json:"reflection,omitempty"`
}

// Session is one participant's run through the interview. It is created on
// first contact, mutated only by the intake state machine, and never
// deleted; StepDone is terminal.
type Session struct {
	ID           string        `json:"id"`
	Condition    string        `json:"condition"`
	Step         Step          `json:"step"`
	PHQIndex     int           `json:"phq_index"`
	GADIndex     int           `json:"gad_index"`
	Transcript   []Message     `json:"transcript"`
	Demographics Demographics  `json:"demographics"`
	InitialMood  string        `json:"initial_mood,omitempty"`
	PHQAnswers   []int         `json:"phq_answers"`
	GADAnswers   []int         `json:"gad_answers"`
	PHQTotal     int           `json:"phq_total,omitempty"` // cached at the PHQ→GAD boundary
	Feedback     Feedback      `json:"feedback"`
	Asked        FeedbackAsked `json:"asked"`

	// Row is the claimed sheet row (1-based); zero until claimed.
	Row int `json:"row,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Append adds a message to the transcript and returns it.
func (s *Session) Append(sp Speaker, text string, at time.Time) Message {
	m := Message{Speaker: sp, Text: text, At: at}
	s.Transcript = append(s.Transcript, m)
	return m
}
