package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cliptag/backend/internal/models"
)

// GormRepository is the event store for SQLite and MySQL.
type GormRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormRepository creates a GORM-backed store. Call Migrate before use.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db, now: time.Now}
}

// Migrate creates the sessions and events tables.
func (r *GormRepository) Migrate() error {
	return r.db.AutoMigrate(&models.Session{}, &models.Event{})
}

// CreateSession inserts a session and returns its id.
func (r *GormRepository) CreateSession(ctx context.Context, in NewSession) (string, error) {
	now := r.now()
	in, err := in.normalize(now)
	if err != nil {
		return "", err
	}
	s := models.Session{
		ID:            uuid.NewString(),
		UserID:        in.UserID,
		ClipStartTime: in.ClipStartTime,
		StudyID:       in.StudyID,
		ParticipantID: in.ParticipantID,
		CreatedAt:     now,
	}
	if err := r.db.WithContext(ctx).Omit("Events").Create(&s).Error; err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return s.ID, nil
}

// AddEvent appends an event to an existing session.
func (r *GormRepository) AddEvent(ctx context.Context, sessionID string, timeSeconds *float64) (*models.Event, error) {
	if timeSeconds == nil {
		return nil, &ValidationError{Field: "time_seconds"}
	}
	ev := &models.Event{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		TimeSeconds: *timeSeconds,
		CreatedAt:   r.now(),
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureSession(tx, sessionID); err != nil {
			return err
		}
		if err := tx.Create(ev).Error; err != nil {
			// The session was deleted after the lookup.
			if isForeignKeyViolation(err) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("insert event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// ListSessions returns all sessions newest first with nested events ordered by offset.
func (r *GormRepository) ListSessions(ctx context.Context) ([]models.Session, error) {
	list := []models.Session{}
	err := r.db.WithContext(ctx).
		Preload("Events", func(db *gorm.DB) *gorm.DB {
			return db.Order("time_seconds ASC").Order("created_at ASC")
		}).
		Order("created_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	for i := range list {
		if list[i].Events == nil {
			list[i].Events = []models.Event{}
		}
	}
	return list, nil
}

// ListEvents returns a session's events ascending by offset.
func (r *GormRepository) ListEvents(ctx context.Context, sessionID string) ([]models.Event, error) {
	if err := ensureSession(r.db.WithContext(ctx), sessionID); err != nil {
		return nil, err
	}
	list := []models.Event{}
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("time_seconds ASC").Order("created_at ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return list, nil
}

// ClearAll deletes every event and session.
func (r *GormRepository) ClearAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Event{}).Error; err != nil {
			return fmt.Errorf("delete events: %w", err)
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Session{}).Error; err != nil {
			return fmt.Errorf("delete sessions: %w", err)
		}
		return nil
	})
}

func ensureSession(db *gorm.DB, id string) error {
	var s models.Session
	err := db.Select("id").Where("id = ?", id).Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup session: %w", err)
	}
	return nil
}

// isForeignKeyViolation matches gorm's translated error as well as the raw
// SQLite ("FOREIGN KEY constraint failed") and MySQL (1452) messages.
func isForeignKeyViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	return strings.Contains(strings.ToUpper(err.Error()), "FOREIGN KEY")
}
