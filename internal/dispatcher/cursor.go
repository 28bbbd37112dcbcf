package dispatcher

import (
	"strconv"
	"strings"

	"github.com/eventstore/eventcore/internal/domain"
)

// parseCursorSequence extracts the sequence number from a consumer's
// stored cursor text ("<topic>-<sequence>" or the scoped
// "<tenant>/<namespace>/<topic>-<sequence>" form). An empty cursor means
// delivery hasn't started yet, reported as (0, false). Topic names may
// themselves contain hyphens, so the sequence is parsed from the last "-"
// in the final path segment, not the first.
func parseCursorSequence(cursorText string) (int64, bool) {
	if cursorText == "" {
		return 0, false
	}
	if idx := strings.LastIndexByte(cursorText, '/'); idx >= 0 {
		cursorText = cursorText[idx+1:]
	}
	dash := strings.LastIndexByte(cursorText, '-')
	if dash < 0 {
		return 0, false
	}
	seq, err := strconv.ParseInt(cursorText[dash+1:], 10, 64)
	if err != nil {
		return 0, false
	}
	return seq, true
}

// sinceEventID builds the EventID form expected by Filter.SinceEventID
// from a consumer's cursor text for a given topic/scope, or nil if
// delivery hasn't started yet.
func sinceEventID(topic string, scope domain.Scope, cursorText string) *domain.EventID {
	seq, ok := parseCursorSequence(cursorText)
	if !ok {
		return nil
	}
	id := domain.NewEventID(topic, seq, scope)
	return &id
}
