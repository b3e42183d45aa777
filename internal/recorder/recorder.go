// Package recorder is the participant-side state machine: it buffers marked
// playback offsets and submits them to the recording API.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cliptag/backend/pkg/client"
)

// State is the recorder's position in its lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateSubmitting State = "submitting"
)

// AdminParticipant is the reserved participant id that selects administrative mode.
const AdminParticipant = "admin"

// ToastDuration is how long a confirmation stays visible.
const ToastDuration = 2 * time.Second

var (
	ErrBusy                = errors.New("a submission is in progress")
	ErrParticipantRequired = errors.New("enter a participant name before submitting")
	ErrNothingToSubmit     = errors.New("no events to submit")
	ErrAdminOnly           = errors.New("only available in admin mode")
	ErrNoClearPending      = errors.New("clear was not requested")
)

// API is the part of the recording API the recorder calls.
type API interface {
	CreateSession(ctx context.Context, in client.CreateSessionInput) (string, error)
	AddEvent(ctx context.Context, sessionID string, timeSeconds float64) (*client.StoredEvent, error)
	ExportCSV(ctx context.Context, w io.Writer) error
	Clear(ctx context.Context) error
}

// ViewModel is a snapshot of everything a view renders.
type ViewModel struct {
	State           State
	Playing         bool
	CurrentTime     float64
	Participant     string
	Admin           bool
	Buffered        []float64
	SessionID       string
	Toast           string
	Error           string
	LastUserID      string
	ConfirmingClear bool
	CanSubmit       bool
}

// Options configures a Recorder.
type Options struct {
	StudyID     string
	Participant string
	// Identity, when set, remembers the user id of each successful submission.
	Identity *Identity
	Logger   *zap.Logger
}

// Recorder tracks playback, buffers marks and submits them. Safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	player    Player
	api       API
	identity  *Identity
	logger    *zap.Logger
	now       func() time.Time
	afterFunc func(time.Duration, func()) *time.Timer

	state        State
	studyID      string
	participant  string
	clipStart    string
	buffer       []float64
	sessionID    string
	lastUserID   string
	toast        string
	toastUntil   time.Time
	errText      string
	confirmClear bool
	observers    []func(ViewModel)
}

// New creates an idle recorder.
func New(player Player, api API, opts Options) *Recorder {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Recorder{
		player:      player,
		api:         api,
		identity:    opts.Identity,
		logger:      logger,
		now:         time.Now,
		afterFunc:   time.AfterFunc,
		state:       StateIdle,
		studyID:     strings.TrimSpace(opts.StudyID),
		participant: strings.TrimSpace(opts.Participant),
	}
	if r.identity != nil {
		id, err := r.identity.UserID()
		if err != nil {
			logger.Warn("read stored user id failed", zap.Error(err))
		}
		r.lastUserID = id
	}
	return r
}

// Observe registers fn to receive the view model after every transition.
func (r *Recorder) Observe(fn func(ViewModel)) {
	r.mu.Lock()
	r.observers = append(r.observers, fn)
	r.mu.Unlock()
}

// View returns the current view model.
func (r *Recorder) View() ViewModel {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewLocked()
}

func (r *Recorder) viewLocked() ViewModel {
	vm := ViewModel{
		State:           r.state,
		Playing:         !r.player.Paused(),
		CurrentTime:     r.player.CurrentTime(),
		Participant:     r.participant,
		Admin:           r.adminLocked(),
		Buffered:        append([]float64(nil), r.buffer...),
		SessionID:       r.sessionID,
		Error:           r.errText,
		LastUserID:      r.lastUserID,
		ConfirmingClear: r.confirmClear,
	}
	if r.toast != "" && r.now().Before(r.toastUntil) {
		vm.Toast = r.toast
	}
	vm.CanSubmit = r.state != StateSubmitting && len(r.buffer) > 0 && (vm.Admin || r.participant != "")
	return vm
}

// emit must be called without r.mu held.
func (r *Recorder) emit() {
	r.mu.Lock()
	vm := r.viewLocked()
	observers := append([]func(ViewModel){}, r.observers...)
	r.mu.Unlock()
	for _, fn := range observers {
		fn(vm)
	}
}

func (r *Recorder) adminLocked() bool {
	return strings.EqualFold(r.participant, AdminParticipant)
}

func (r *Recorder) showToastLocked(msg string) {
	r.toast = msg
	r.toastUntil = r.now().Add(ToastDuration)
	r.afterFunc(ToastDuration, r.emit)
}

// Play starts playback. The first play stamps the clip start time.
func (r *Recorder) Play() {
	r.mu.Lock()
	r.player.Play()
	if r.clipStart == "" {
		r.clipStart = formatISO(r.now())
	}
	r.mu.Unlock()
	r.emit()
}

// Pause pauses playback.
func (r *Recorder) Pause() {
	r.player.Pause()
	r.emit()
}

// TogglePlayPause plays when paused and pauses when playing.
func (r *Recorder) TogglePlayPause() {
	if r.player.Paused() {
		r.Play()
		return
	}
	r.Pause()
}

// Mark appends the current playhead to the buffer.
func (r *Recorder) Mark() (float64, error) {
	r.mu.Lock()
	if r.state == StateSubmitting {
		r.mu.Unlock()
		return 0, ErrBusy
	}
	t := r.player.CurrentTime()
	r.buffer = append(r.buffer, t)
	r.state = StateRecording
	r.errText = ""
	r.showToastLocked("Event at " + FormatTime(t))
	r.mu.Unlock()
	r.emit()
	return t, nil
}

// SetParticipant changes the participant name. "admin" switches to administrative mode.
func (r *Recorder) SetParticipant(name string) {
	r.mu.Lock()
	name = strings.TrimSpace(name)
	if name != r.participant && r.sessionID != "" {
		// A bound session belongs to the previous participant.
		r.sessionID = ""
	}
	r.participant = name
	if !r.adminLocked() {
		r.confirmClear = false
	}
	r.mu.Unlock()
	r.emit()
}

// Submit creates the session on first use and posts buffered events in order.
// On failure the recorder stays in recording with the unsent events buffered.
func (r *Recorder) Submit(ctx context.Context) error {
	r.mu.Lock()
	if r.state == StateSubmitting {
		r.mu.Unlock()
		return ErrBusy
	}
	admin := r.adminLocked()
	if !admin && r.participant == "" {
		return r.failLocked(ErrParticipantRequired)
	}
	if len(r.buffer) == 0 {
		return r.failLocked(ErrNothingToSubmit)
	}
	r.state = StateSubmitting
	r.errText = ""
	pending := append([]float64(nil), r.buffer...)
	sessionID := r.sessionID
	in := r.sessionInputLocked(admin)
	r.mu.Unlock()
	r.emit()

	if sessionID == "" {
		id, err := r.api.CreateSession(ctx, in)
		if err != nil {
			return r.submitFailed(0, fmt.Errorf("create session: %w", err))
		}
		r.mu.Lock()
		r.sessionID = id
		r.mu.Unlock()
		sessionID = id
		r.logger.Info("session created", zap.String("session_id", id), zap.String("user_id", in.UserID))
	}

	for i, t := range pending {
		if _, err := r.api.AddEvent(ctx, sessionID, t); err != nil {
			return r.submitFailed(i, fmt.Errorf("add event at %s: %w", FormatTime(t), err))
		}
	}

	r.mu.Lock()
	r.buffer = nil
	r.sessionID = ""
	r.clipStart = ""
	r.state = StateIdle
	r.showToastLocked(fmt.Sprintf("Submitted %d events", len(pending)))
	if !admin {
		r.lastUserID = in.UserID
	}
	r.mu.Unlock()

	if r.identity != nil && !admin {
		if err := r.identity.SetUserID(in.UserID); err != nil {
			r.logger.Warn("persist user id failed", zap.Error(err))
		}
	}
	r.logger.Info("events submitted", zap.String("session_id", sessionID), zap.Int("count", len(pending)))
	r.emit()
	return nil
}

// submitFailed drops the stored events (the first stored) and returns to recording.
func (r *Recorder) submitFailed(stored int, err error) error {
	r.mu.Lock()
	r.buffer = r.buffer[stored:]
	r.state = StateRecording
	r.errText = err.Error()
	r.mu.Unlock()
	r.logger.Warn("submit failed", zap.Error(err), zap.Int("stored", stored))
	r.emit()
	return err
}

// failLocked records err as the visible error, unlocks and emits.
func (r *Recorder) failLocked(err error) error {
	r.errText = err.Error()
	r.mu.Unlock()
	r.emit()
	return err
}

func (r *Recorder) sessionInputLocked(admin bool) client.CreateSessionInput {
	clipStart := r.clipStart
	if clipStart == "" {
		clipStart = formatISO(r.now())
	}
	in := client.CreateSessionInput{ClipStartTime: clipStart}
	if admin {
		in.UserID = AdminParticipant
		return in
	}
	in.UserID = DeriveUserID(r.studyID, r.participant)
	participant := r.participant
	in.ParticipantID = &participant
	if r.studyID != "" {
		study := r.studyID
		in.StudyID = &study
	}
	return in
}

// DownloadCSV writes the full export to w. Admin mode only.
func (r *Recorder) DownloadCSV(ctx context.Context, w io.Writer) error {
	r.mu.Lock()
	if !r.adminLocked() {
		return r.failLocked(ErrAdminOnly)
	}
	r.errText = ""
	r.mu.Unlock()

	if err := r.api.ExportCSV(ctx, w); err != nil {
		r.mu.Lock()
		return r.failLocked(fmt.Errorf("export failed: %w", err))
	}
	r.mu.Lock()
	r.showToastLocked("CSV downloaded")
	r.mu.Unlock()
	r.emit()
	return nil
}

// RequestClear asks for confirmation before deleting all data. Admin mode only.
func (r *Recorder) RequestClear() error {
	r.mu.Lock()
	if !r.adminLocked() {
		return r.failLocked(ErrAdminOnly)
	}
	r.confirmClear = true
	r.mu.Unlock()
	r.emit()
	return nil
}

// CancelClear withdraws a pending clear request.
func (r *Recorder) CancelClear() {
	r.mu.Lock()
	r.confirmClear = false
	r.mu.Unlock()
	r.emit()
}

// ConfirmClear deletes every session and event on the server.
func (r *Recorder) ConfirmClear(ctx context.Context) error {
	r.mu.Lock()
	if !r.adminLocked() {
		return r.failLocked(ErrAdminOnly)
	}
	if !r.confirmClear {
		return r.failLocked(ErrNoClearPending)
	}
	r.confirmClear = false
	r.mu.Unlock()

	if err := r.api.Clear(ctx); err != nil {
		r.mu.Lock()
		return r.failLocked(fmt.Errorf("clear failed: %w", err))
	}
	r.mu.Lock()
	r.errText = ""
	r.showToastLocked("All data cleared")
	r.mu.Unlock()
	r.logger.Warn("all sessions and events cleared")
	r.emit()
	return nil
}

// HandleKey maps a key press to an action. Keys typed into a text input are
// never shortcuts. It reports whether the key was consumed.
func (r *Recorder) HandleKey(key string, inTextInput bool) bool {
	if inTextInput {
		return false
	}
	switch key {
	case "p", "P":
		r.TogglePlayPause()
		return true
	case " ", "space":
		_, _ = r.Mark()
		return true
	}
	return false
}

func formatISO(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
