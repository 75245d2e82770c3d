// Package session stores in-flight interview sessions and serializes
// concurrent turns against the same session.
package session

import (
	"context"
	"errors"

	"github.com/elli-study/elli/internal/models"
)

// ErrNotFound is returned for unknown session IDs.
var ErrNotFound = errors.New("session: not found")

// Store holds sessions between turns.
type Store interface {
	Get(ctx context.Context, id string) (*models.Session, error)
	Put(ctx context.Context, s *models.Session) error
}
