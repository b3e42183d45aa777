package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cliptag/backend/internal/recorder"
)

// RunRecorder starts the interactive recorder. CSV downloads are written to exportPath.
func RunRecorder(rec *recorder.Recorder, exportPath string) (recorder.ViewModel, error) {
	model := NewRecorderModel(rec, exportPath)

	p := tea.NewProgram(model, tea.WithAltScreen())
	rec.Observe(func(vm recorder.ViewModel) { p.Send(viewMsg(vm)) })
	finalModel, err := p.Run()
	if err != nil {
		return recorder.ViewModel{}, err
	}
	if m, ok := finalModel.(RecorderModel); ok {
		return m.vm, nil
	}
	return rec.View(), nil
}
