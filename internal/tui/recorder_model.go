package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cliptag/backend/internal/recorder"
)

const (
	tickInterval = 200 * time.Millisecond
	opTimeout    = 30 * time.Second
	maxListRows  = 8
)

// viewMsg carries a view model emitted by the recorder.
type viewMsg recorder.ViewModel

// tickMsg refreshes the playhead.
type tickMsg struct{}

// opDoneMsg reports a finished network action.
type opDoneMsg struct {
	err error
}

// RecorderModel is the bubbletea model around a recorder.Recorder.
type RecorderModel struct {
	rec        *recorder.Recorder
	input      textinput.Model
	exportPath string
	width      int
	height     int
	vm         recorder.ViewModel
	quitting   bool
}

// NewRecorderModel creates the model with the participant field pre-filled.
func NewRecorderModel(rec *recorder.Recorder, exportPath string) RecorderModel {
	vm := rec.View()
	input := textinput.New()
	input.Placeholder = "participant name"
	input.CharLimit = 64
	input.Width = 32
	input.SetValue(vm.Participant)
	input.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentMain))
	input.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPrimaryText))
	if vm.Participant == "" {
		input.Focus()
	}
	return RecorderModel{rec: rec, input: input, exportPath: exportPath, vm: vm}
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

// Init starts the playhead ticker.
func (m RecorderModel) Init() tea.Cmd {
	return tea.Batch(tick(), textinput.Blink)
}

// Update handles messages
func (m RecorderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.vm = m.rec.View()
		if m.quitting {
			return m, nil
		}
		return m, tick()

	case viewMsg:
		m.vm = recorder.ViewModel(msg)
		return m, nil

	case opDoneMsg:
		m.vm = m.rec.View()
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.input.Focused() {
			return m.updateInput(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m RecorderModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "tab", "esc":
		m.input.Blur()
		m.rec.SetParticipant(m.input.Value())
		m.vm = m.rec.View()
		return m, nil
	case "enter":
		m.input.Blur()
		m.rec.SetParticipant(m.input.Value())
		return m, m.submit()
	}
	var cmd tea.Cmd
	// Keys typed into the name field are text, never shortcuts.
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m RecorderModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit
	case "tab":
		m.input.Focus()
		return m, textinput.Blink
	case "enter":
		return m, m.submit()
	case "e":
		return m, m.export()
	case "x":
		_ = m.rec.RequestClear()
	case "y":
		if m.vm.ConfirmingClear {
			return m, m.confirmClear()
		}
	case "n", "esc":
		m.rec.CancelClear()
	default:
		m.rec.HandleKey(key, false)
	}
	m.vm = m.rec.View()
	return m, nil
}

func (m RecorderModel) submit() tea.Cmd {
	rec := m.rec
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return opDoneMsg{err: rec.Submit(ctx)}
	}
}

func (m RecorderModel) export() tea.Cmd {
	rec, path := m.rec, m.exportPath
	return func() tea.Msg {
		f, err := os.Create(path)
		if err != nil {
			return opDoneMsg{err: err}
		}
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		err = rec.DownloadCSV(ctx, f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
		}
		return opDoneMsg{err: err}
	}
}

func (m RecorderModel) confirmClear() tea.Cmd {
	rec := m.rec
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return opDoneMsg{err: rec.ConfirmClear(ctx)}
	}
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccentMain))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText))
	timeStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorPrimaryText))
	eventStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright))
	toastStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSuccess))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorError))
	warnStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorWarning))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorHelpText))
	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(ColorBorder)).Padding(0, 2)
)

// View renders the recorder
func (m RecorderModel) View() string {
	if m.quitting {
		return ""
	}
	vm := m.vm
	var b strings.Builder

	title := "Clip Tag"
	if vm.Admin {
		title += " " + warnStyle.Render("[admin]")
	}
	b.WriteString(titleStyle.Render(title) + "\n\n")

	playing := "paused"
	if vm.Playing {
		playing = "playing"
	}
	fmt.Fprintf(&b, "%s %s  %s\n", labelStyle.Render("time"), timeStyle.Render(recorder.FormatTime(vm.CurrentTime)), labelStyle.Render(playing))
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("state"), string(vm.State))
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("participant"), m.input.View())
	if vm.LastUserID != "" {
		b.WriteString(labelStyle.Render("last submitted as "+vm.LastUserID) + "\n")
	}

	if len(vm.Buffered) > 0 {
		b.WriteString("\n" + labelStyle.Render(fmt.Sprintf("events this session (%d)", len(vm.Buffered))) + "\n")
		start := 0
		if len(vm.Buffered) > maxListRows {
			start = len(vm.Buffered) - maxListRows
			b.WriteString(helpStyle.Render(fmt.Sprintf("  … %d more", start)) + "\n")
		}
		for _, t := range vm.Buffered[start:] {
			b.WriteString(eventStyle.Render("  • "+recorder.FormatTime(t)) + "\n")
		}
	}

	if vm.Toast != "" {
		b.WriteString("\n" + toastStyle.Render(vm.Toast) + "\n")
	}
	if vm.Error != "" {
		b.WriteString("\n" + errorStyle.Render(vm.Error) + "\n")
	}
	if vm.ConfirmingClear {
		b.WriteString("\n" + warnStyle.Render("Delete ALL sessions and events? y = confirm, n = cancel") + "\n")
	}

	help := "p play/pause · space add event · enter submit · tab edit name · q quit"
	if vm.Admin {
		help += " · e export csv · x clear all"
	}
	content := panelStyle.Render(strings.TrimRight(b.String(), "\n"))
	return lipgloss.JoinVertical(lipgloss.Left, content, helpStyle.Render(help))
}
