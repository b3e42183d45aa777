package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cliptag/backend/internal/models"
)

// DBTX is the subset of *pgxpool.Pool the repository uses.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository is the PostgreSQL event store.
type Repository struct {
	db  DBTX
	now func() time.Time
}

// NewRepository creates a PostgreSQL-backed store.
func NewRepository(db DBTX) *Repository {
	return &Repository{db: db, now: time.Now}
}

// CreateSession inserts a session and returns its id.
func (r *Repository) CreateSession(ctx context.Context, in NewSession) (string, error) {
	in, err := in.normalize(r.now())
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	const q = `INSERT INTO sessions (id, user_id, clip_start_time, study_id, participant_id)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.Exec(ctx, q, id, in.UserID, in.ClipStartTime, in.StudyID, in.ParticipantID); err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return id, nil
}

// AddEvent appends an event; the existence check and insert are one statement.
func (r *Repository) AddEvent(ctx context.Context, sessionID string, timeSeconds *float64) (*models.Event, error) {
	if timeSeconds == nil {
		return nil, &ValidationError{Field: "time_seconds"}
	}
	ev := &models.Event{ID: uuid.NewString(), SessionID: sessionID, TimeSeconds: *timeSeconds}
	const q = `INSERT INTO events (id, session_id, time_seconds)
		SELECT $1::text, $2::text, $3::float8 WHERE EXISTS (SELECT 1 FROM sessions WHERE id = $2::text)
		RETURNING created_at`
	err := r.db.QueryRow(ctx, q, ev.ID, sessionID, ev.TimeSeconds).Scan(&ev.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return ev, nil
}

// ListSessions returns all sessions newest first with nested events ordered by offset.
func (r *Repository) ListSessions(ctx context.Context) ([]models.Session, error) {
	const q = `SELECT s.id, s.user_id, s.clip_start_time, s.study_id, s.participant_id, s.created_at,
			e.id, e.time_seconds, e.created_at
		FROM sessions s
		LEFT JOIN events e ON e.session_id = s.id
		ORDER BY s.created_at DESC, s.id, e.time_seconds ASC, e.created_at ASC`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	list := []models.Session{}
	for rows.Next() {
		var (
			s        models.Session
			evID     *string
			evTime   *float64
			evCreate *time.Time
		)
		if err := rows.Scan(&s.ID, &s.UserID, &s.ClipStartTime, &s.StudyID, &s.ParticipantID, &s.CreatedAt,
			&evID, &evTime, &evCreate); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if n := len(list); n == 0 || list[n-1].ID != s.ID {
			s.Events = []models.Event{}
			list = append(list, s)
		}
		if evID != nil {
			cur := &list[len(list)-1]
			ev := models.Event{ID: *evID, SessionID: cur.ID}
			if evTime != nil {
				ev.TimeSeconds = *evTime
			}
			if evCreate != nil {
				ev.CreatedAt = *evCreate
			}
			cur.Events = append(cur.Events, ev)
		}
	}
	return list, rows.Err()
}

// ListEvents returns a session's events ascending by offset.
func (r *Repository) ListEvents(ctx context.Context, sessionID string) ([]models.Event, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1)`, sessionID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if !exists {
		return nil, ErrSessionNotFound
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, session_id, time_seconds, created_at FROM events
		 WHERE session_id = $1 ORDER BY time_seconds ASC, created_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()
	list := []models.Event{}
	for rows.Next() {
		var ev models.Event
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.TimeSeconds, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		list = append(list, ev)
	}
	return list, rows.Err()
}

// ClearAll deletes every session; events go with them via ON DELETE CASCADE.
func (r *Repository) ClearAll(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	return nil
}
