// Package export serializes the event store to CSV.
package export

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/cliptag/backend/internal/models"
	"github.com/cliptag/backend/internal/sessions"
)

// Filename is the download name of every export.
const Filename = "clip-tag-export.csv"

// ContentType is sent with CSV downloads and uploads.
const ContentType = "text/csv; charset=utf-8"

// Header is the fixed column header.
var Header = []string{
	"session_id",
	"user_id",
	"clip_start_time",
	"study_id",
	"participant_id",
	"event_id",
	"time_seconds",
	"event_created_at",
}

// WriteCSV writes one row per event, or one row with empty event columns for a
// session without events. Rows are CRLF separated with no trailing newline.
func WriteCSV(w io.Writer, list []models.Session) error {
	bw := bufio.NewWriter(w)
	writeRow(bw, Header)
	for _, s := range list {
		events := append([]models.Event(nil), s.Events...)
		sessions.SortEvents(events)

		base := []string{
			EscapeCSV(s.ID),
			EscapeCSV(s.UserID),
			EscapeCSV(s.ClipStartTime),
			EscapeCSV(deref(s.StudyID)),
			EscapeCSV(deref(s.ParticipantID)),
		}
		if len(events) == 0 {
			bw.WriteString("\r\n")
			writeRow(bw, append(base, "", "", ""))
			continue
		}
		for _, e := range events {
			bw.WriteString("\r\n")
			writeRow(bw, append(base[:5:5],
				EscapeCSV(e.ID),
				strconv.FormatFloat(e.TimeSeconds, 'f', -1, 64),
				EscapeCSV(sessions.FormatISO(e.CreatedAt)),
			))
		}
	}
	return bw.Flush()
}

// EscapeCSV quotes a value containing a comma, quote or line break and doubles
// its internal quotes.
func EscapeCSV(s string) string {
	if !strings.ContainsAny(s, ",\"\r\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func writeRow(w *bufio.Writer, fields []string) {
	w.WriteString(strings.Join(fields, ","))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
