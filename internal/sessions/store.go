// Package sessions holds the event store and the recording API built on it.
package sessions

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/cliptag/backend/internal/models"
)

// ErrSessionNotFound is returned when a session id does not resolve to a stored session.
var ErrSessionNotFound = errors.New("session not found")

// ValidationError reports a missing or malformed required field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string { return e.Field + " is required" }

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NewSession is the input for Store.CreateSession.
type NewSession struct {
	UserID        string
	ClipStartTime string // ISO-8601; empty means "now"
	StudyID       *string
	ParticipantID *string
}

// Store persists sessions and their events.
type Store interface {
	CreateSession(ctx context.Context, in NewSession) (string, error)
	AddEvent(ctx context.Context, sessionID string, timeSeconds *float64) (*models.Event, error)
	// ListSessions returns every session, newest first, with events ascending by offset.
	ListSessions(ctx context.Context) ([]models.Session, error)
	// ListEvents returns a session's events ascending by offset.
	ListEvents(ctx context.Context, sessionID string) ([]models.Event, error)
	ClearAll(ctx context.Context) error
}

// isoMillis matches JavaScript's Date.toISOString output.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// FormatISO renders t the way clip start times and export timestamps are stored.
func FormatISO(t time.Time) string {
	return t.UTC().Format(isoMillis)
}

func (n NewSession) normalize(now time.Time) (NewSession, error) {
	if n.UserID == "" {
		return n, &ValidationError{Field: "user_id"}
	}
	if n.ClipStartTime == "" {
		n.ClipStartTime = FormatISO(now)
	}
	return n, nil
}

// SortEvents orders events ascending by offset, keeping insertion order for ties.
func SortEvents(events []models.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].TimeSeconds < events[j].TimeSeconds
	})
}
