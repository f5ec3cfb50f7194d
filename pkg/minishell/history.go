package minishell

import "strings"

// maxHistory is the largest number of entries (including the active line)
// the history will hold before evicting the oldest submission.
const maxHistory = 10

// history is a bounded sequence of lines. Index 0 is the active line
// currently being edited; indices 1..len-1 are past submissions,
// most-recent-first. It always has at least one entry.
type history struct {
	entries []string
	pos     int // index of the currently selected entry; 0 == active line
}

func newHistory() *history {
	return &history{entries: []string{""}}
}

func (h *history) selected() string {
	return h.entries[h.pos]
}

// materialize copies the selected entry into slot 0 and selects it, so a
// subsequent mutation never disturbs a past submission in place.
func (h *history) materialize() {
	if h.pos == 0 {
		return
	}
	h.entries[0] = h.entries[h.pos]
	h.pos = 0
}

func (h *history) setActive(s string) {
	h.materialize()
	h.entries[0] = s
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (h *history) up() {
	h.pos = clamp(h.pos+1, 0, len(h.entries)-1)
}

func (h *history) down() {
	h.pos = clamp(h.pos-1, 0, len(h.entries)-1)
}

// submit pops the selected entry, trims it, and pushes a fresh empty active
// line into slot 0 followed by the trimmed submission in slot 1 (unless it
// was empty), evicting the oldest entry if that would exceed maxHistory.
// Returns the trimmed line that was submitted.
func (h *history) submit() string {
	selected := h.entries[h.pos]
	trimmed := strings.TrimSpace(selected)

	rest := make([]string, 0, len(h.entries))
	rest = append(rest, h.entries[:h.pos]...)
	rest = append(rest, h.entries[h.pos+1:]...)

	if h.pos > 0 {
		// The stale active-line slot (index 0 of rest, since rest still
		// starts at the original index 0) is no longer needed: we are
		// submitting a history entry, not the in-progress active line.
		rest = rest[1:]
	}

	entries := make([]string, 0, len(rest)+2)
	entries = append(entries, "")
	if trimmed != "" {
		entries = append(entries, trimmed)
	}
	entries = append(entries, rest...)

	if len(entries) > maxHistory {
		entries = entries[:maxHistory]
	}

	h.entries = entries
	h.pos = 0

	return trimmed
}
