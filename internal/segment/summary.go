package segment

import (
	"fmt"
	"strings"
)

// minutesPerSubtask is the rough planning estimate surfaced in summaries.
const minutesPerSubtask = 5

// BreakdownEntry describes one draft within a split summary.
type BreakdownEntry struct {
	Number        int
	Title         string
	ContentLength int
	Lines         int
}

// Summary describes the shape of a proposed split.
type Summary struct {
	TotalSubtasks    int
	EstimatedMinutes int
	Breakdown        []BreakdownEntry
}

// Summarize reports subtask counts, a coarse duration estimate, and a
// per-draft breakdown for display before the user confirms a split.
func Summarize(drafts []Draft) Summary {
	summary := Summary{
		TotalSubtasks:    len(drafts),
		EstimatedMinutes: len(drafts) * minutesPerSubtask,
		Breakdown:        make([]BreakdownEntry, 0, len(drafts)),
	}
	for idx, draft := range drafts {
		title := draft.Title
		if strings.TrimSpace(title) == "" {
			title = fmt.Sprintf("Part %d", idx+1)
		}
		summary.Breakdown = append(summary.Breakdown, BreakdownEntry{
			Number:        idx + 1,
			Title:         title,
			ContentLength: len(draft.Content),
			Lines:         strings.Count(draft.Content, "\n") + 1,
		})
	}
	return summary
}
