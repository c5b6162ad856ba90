package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/arifmahmud/uptimebot/internal/domain"
)

// HistoryWindow is how many recent probe results a target view shows.
const HistoryWindow = 15

// TargetView is the presentation shape for one target: configuration,
// displayed status and a compact glyph rendering of recent raw outcomes.
type TargetView struct {
	Target   domain.Target
	Glyphs   string
	LogLines []string
}

// ViewTarget assembles the detail view for a target.
func (s *Service) ViewTarget(ctx context.Context, id domain.TargetID) (*TargetView, error) {
	t, err := s.store.GetTarget(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := s.store.RecentHistory(ctx, id, HistoryWindow)
	if err != nil {
		return nil, err
	}
	return &TargetView{
		Target:   *t,
		Glyphs:   RenderGlyphs(history),
		LogLines: renderLogLines(history),
	}, nil
}

// RenderGlyphs draws one glyph per raw outcome, oldest-first: a filled
// green square for UP, a red one for DOWN. An empty history renders a
// distinct "No data." marker rather than an empty string.
func RenderGlyphs(history []domain.HistoryEntry) string {
	if len(history) == 0 {
		return "No data."
	}
	var b strings.Builder
	for _, e := range history {
		if e.Up {
			b.WriteString("🟩")
		} else {
			b.WriteString("🟥")
		}
	}
	return b.String()
}

func renderLogLines(history []domain.HistoryEntry) []string {
	out := make([]string, 0, len(history))
	for _, e := range history {
		status := "DOWN"
		if e.Up {
			status = "UP"
		}
		out = append(out, fmt.Sprintf("%s  %-4s %s",
			e.CheckedAt.Format(time.TimeOnly), status, e.Detail))
	}
	return out
}
