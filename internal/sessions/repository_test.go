package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewRepository(mock), mock
}

func TestRepositoryCreateSession(t *testing.T) {
	repo, mock := newMockRepo(t)
	repo.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }

	mock.ExpectExec(`INSERT INTO sessions`).
		WithArgs(pgxmock.AnyArg(), "alice", "2026-05-01T12:00:00.000Z", (*string)(nil), (*string)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := repo.CreateSession(context.Background(), NewSession{UserID: "alice"})
	require.NoError(t, err)
	assert.Len(t, id, 36)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCreateSessionValidation(t *testing.T) {
	repo, mock := newMockRepo(t)
	_, err := repo.CreateSession(context.Background(), NewSession{})
	assert.True(t, IsValidation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryAddEventNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`INSERT INTO events`).
		WithArgs(pgxmock.AnyArg(), "sid", 4.5).
		WillReturnError(pgx.ErrNoRows)

	v := 4.5
	_, err := repo.AddEvent(context.Background(), "sid", &v)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryAddEvent(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2026, 5, 1, 12, 0, 1, 0, time.UTC)
	mock.ExpectQuery(`INSERT INTO events`).
		WithArgs(pgxmock.AnyArg(), "sid", 0.0).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(created))

	v := 0.0
	ev, err := repo.AddEvent(context.Background(), "sid", &v)
	require.NoError(t, err)
	assert.Equal(t, "sid", ev.SessionID)
	assert.Equal(t, 0.0, ev.TimeSeconds)
	assert.Equal(t, created, ev.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryAddEventDatabaseError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`INSERT INTO events`).WillReturnError(errors.New("connection reset"))

	v := 1.0
	_, err := repo.AddEvent(context.Background(), "sid", &v)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}

func TestRepositoryListSessionsGroupsEvents(t *testing.T) {
	repo, mock := newMockRepo(t)
	t1 := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	t0 := t1.Add(-time.Hour)
	study := "study-1"
	e1, e2 := "e1", "e2"
	o1, o2 := 1.5, 3.0

	rows := pgxmock.NewRows([]string{
		"id", "user_id", "clip_start_time", "study_id", "participant_id", "created_at",
		"id", "time_seconds", "created_at",
	}).
		AddRow("s2", "bob", "2026-05-01T12:00:00.000Z", (*string)(nil), (*string)(nil), t1, (*string)(nil), (*float64)(nil), (*time.Time)(nil)).
		AddRow("s1", "alice", "2026-05-01T11:00:00.000Z", &study, (*string)(nil), t0, &e1, &o1, &t0).
		AddRow("s1", "alice", "2026-05-01T11:00:00.000Z", &study, (*string)(nil), t0, &e2, &o2, &t0)
	mock.ExpectQuery(`SELECT s.id`).WillReturnRows(rows)

	list, err := repo.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "s2", list[0].ID)
	assert.NotNil(t, list[0].Events)
	assert.Empty(t, list[0].Events)
	require.Len(t, list[1].Events, 2)
	assert.Equal(t, "e1", list[1].Events[0].ID)
	assert.Equal(t, 3.0, list[1].Events[1].TimeSeconds)
	assert.Equal(t, "s1", list[1].Events[1].SessionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryListEventsUnknownSession(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("nope").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := repo.ListEvents(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryClearAll(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(`DELETE FROM sessions`).WillReturnResult(pgxmock.NewResult("DELETE", 3))

	require.NoError(t, repo.ClearAll(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
