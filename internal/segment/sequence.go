package segment

import "strings"

// SequenceInfo records a unit's 1-based rank within the final pruned list.
type SequenceInfo struct {
	Current int
	Total   int
}

// Sequenced is a draft annotated for standalone submission: FullContent embeds
// a positional preamble so the unit is self-contained when submitted alone.
type Sequenced struct {
	Title       string
	Content     string
	FullContent string
	Sequence    SequenceInfo
}

// Sequence numbers the user-selected drafts in order. The caller passes the
// final pruned list; Total is its length regardless of how many drafts were
// originally detected.
func Sequence(drafts []Draft) []Sequenced {
	total := len(drafts)
	sequenced := make([]Sequenced, 0, total)
	for idx, draft := range drafts {
		full := draft.Content
		if title := strings.TrimSpace(draft.Title); title != "" {
			full = "**Task:** " + title + "\n\n" + draft.Content
		}
		sequenced = append(sequenced, Sequenced{
			Title:       draft.Title,
			Content:     draft.Content,
			FullContent: full,
			Sequence:    SequenceInfo{Current: idx + 1, Total: total},
		})
	}
	return sequenced
}
