package segment

import (
	"fmt"
	"strings"
)

// Validation separates blocking errors from advisory warnings. Errors must be
// fixed before submission or queueing; warnings require explicit user
// confirmation before proceeding.
type Validation struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// Limits tunes the advisory thresholds used by Validate.
type Limits struct {
	// WarnSubtaskCount is the draft count above which Validate warns.
	WarnSubtaskCount int
	// WarnContentLength is the per-draft character count above which
	// Validate warns.
	WarnContentLength int
}

// DefaultLimits returns the advisory thresholds used when the caller has no
// config.
func DefaultLimits() Limits {
	return Limits{WarnSubtaskCount: 20, WarnContentLength: 10000}
}

func (l Limits) normalized() Limits {
	if l.WarnSubtaskCount <= 0 {
		l.WarnSubtaskCount = 20
	}
	if l.WarnContentLength <= 0 {
		l.WarnContentLength = 10000
	}
	return l
}

// Validate checks the pruned drafts before sequencing. Empty drafts are
// blocking; size anomalies (absolute or relative to siblings) only warn,
// signaling likely mis-segmentation.
func Validate(drafts []Draft, limits Limits) Validation {
	limits = limits.normalized()
	result := Validation{}

	if len(drafts) == 0 {
		result.Errors = append(result.Errors, "no subtasks selected")
	}
	if len(drafts) > limits.WarnSubtaskCount {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("many subtasks (%d) may take a long time to process", len(drafts)))
	}

	totalLength := 0
	for _, draft := range drafts {
		totalLength += len(draft.Content)
	}

	for idx, draft := range drafts {
		length := len(draft.Content)
		if strings.TrimSpace(draft.Content) == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("subtask %d is empty", idx+1))
			continue
		}
		if length > limits.WarnContentLength {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("subtask %d is very large (%d chars)", idx+1, length))
		}
		if len(drafts) >= 2 {
			siblingAverage := (totalLength - length) / (len(drafts) - 1)
			if siblingAverage > 0 && length*5 < siblingAverage {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("subtask %d is much smaller than its siblings (%d chars vs ~%d avg)", idx+1, length, siblingAverage))
			}
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}
