package services

import (
	"math/rand/v2"
	"strings"
	"time"

	"github.com/elli-study/elli/internal/models"
)

// Assignment records consent plus the arm a participant was randomized
// into. Assignments are sticky per token: reloading the consent page must
// not re-randomize.
type Assignment struct {
	ID        string
	Token     string
	Condition string
	URL       string
	CreatedAt time.Time
}

type AssignmentStore interface {
	FindByToken(token string) (*Assignment, error)
	Add(a *Assignment) error
}

// ConditionURLs maps each arm to the page the participant is sent to.
type ConditionURLs struct {
	Chatbot string
	Static  string
}

// AssignService is the consent gate: it flips a fair coin between the two
// study arms and remembers the result.
type AssignService struct {
	store AssignmentStore
	urls  ConditionURLs
	now   func() time.Time
	idGen func(prefix string, n int) string
	coin  func() bool // true = chatbot
}

func NewAssignService(store AssignmentStore, urls ConditionURLs) *AssignService {
	return &AssignService{
		store: store,
		urls:  urls,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: func(prefix string, n int) string { return prefix + shortID(n) },
		coin:  func() bool { return rand.IntN(2) == 0 },
	}
}

// Assign returns the participant's arm, creating it on first contact. An
// empty token gets a fresh one, so anonymous participants still receive a
// stable assignment they can carry in the redirect URL.
func (s *AssignService) Assign(token string) (*Assignment, error) {
	token = strings.TrimSpace(token)
	if token != "" {
		existing, err := s.store.FindByToken(token)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	} else {
		token = s.idGen("p", 12)
	}

	condition := models.ConditionStatic
	url := s.urls.Static
	if s.coin() {
		condition = models.ConditionChatbot
		url = s.urls.Chatbot
	}
	a := &Assignment{
		ID:        s.idGen("a", 10),
		Token:     token,
		Condition: condition,
		URL:       url,
		CreatedAt: s.now(),
	}
	if err := s.store.Add(a); err != nil {
		return nil, err
	}
	return a, nil
}
