package segment

import (
	"regexp"
	"strings"
)

// Strategy names the rule family used to split a prompt.
type Strategy string

const (
	StrategyTaskStubs  Strategy = "task-stubs"
	StrategyNumbered   Strategy = "numbered-tasks"
	StrategyParagraphs Strategy = "paragraph-based"
	StrategyNone       Strategy = "none"
)

// Draft is a detected candidate subtask, order-significant.
type Draft struct {
	Title   string
	Content string
}

// Result carries the chosen strategy and the drafts it produced.
type Result struct {
	Strategy Strategy
	Subtasks []Draft
}

// Options tunes the paragraph fallback. The thresholds are deliberately
// configurable rather than hidden constants.
type Options struct {
	// MinParagraphs is the minimum section count before the paragraph
	// strategy applies.
	MinParagraphs int
	// MinSectionLength is the minimum trimmed length a section must have to
	// count as a paragraph subtask.
	MinSectionLength int
}

// DefaultOptions returns the thresholds used when the caller has no config.
func DefaultOptions() Options {
	return Options{MinParagraphs: 2, MinSectionLength: 1}
}

func (o Options) normalized() Options {
	if o.MinParagraphs < 2 {
		o.MinParagraphs = 2
	}
	if o.MinSectionLength < 1 {
		o.MinSectionLength = 1
	}
	return o
}

var (
	taskStubPattern = regexp.MustCompile(`(?s):::task-stub\{title="([^"]+)"\}\s*(.*?):::`)
	numberedPattern = regexp.MustCompile(`(?m)^Task\s+(\d+)\s*:[ \t]*(.+)$`)
)

// Analyze picks the best segmentation strategy for the prompt. Strategies are
// tried in fixed priority order; the first that matches wins. A Result with
// StrategyNone means the caller should submit the prompt unsplit.
func Analyze(text string, opts Options) Result {
	opts = opts.normalized()

	if stubs := extractTaskStubs(text); len(stubs) > 0 {
		return Result{Strategy: StrategyTaskStubs, Subtasks: stubs}
	}
	if tasks := extractNumberedTasks(text); len(tasks) >= 2 {
		return Result{Strategy: StrategyNumbered, Subtasks: tasks}
	}
	if paragraphs := breakIntoParagraphs(text, opts.MinSectionLength); len(paragraphs) >= opts.MinParagraphs {
		return Result{Strategy: StrategyParagraphs, Subtasks: paragraphs}
	}
	return Result{Strategy: StrategyNone}
}

// extractTaskStubs parses explicit :::task-stub{title="..."}...::: blocks in
// document order.
func extractTaskStubs(text string) []Draft {
	matches := taskStubPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	drafts := make([]Draft, 0, len(matches))
	for _, match := range matches {
		drafts = append(drafts, Draft{
			Title:   match[1],
			Content: strings.TrimSpace(match[2]),
		})
	}
	return drafts
}

// extractNumberedTasks parses "Task N: <title>" headings. Each subtask spans
// from its heading to the next heading or end of text.
func extractNumberedTasks(text string) []Draft {
	locs := numberedPattern.FindAllStringSubmatchIndex(text, -1)
	if len(locs) < 2 {
		return nil
	}
	drafts := make([]Draft, 0, len(locs))
	for i, loc := range locs {
		title := strings.TrimSpace(text[loc[4]:loc[5]])
		bodyStart := loc[1]
		bodyEnd := len(text)
		if i+1 < len(locs) {
			bodyEnd = locs[i+1][0]
		}
		drafts = append(drafts, Draft{
			Title:   title,
			Content: strings.TrimSpace(text[bodyStart:bodyEnd]),
		})
	}
	return drafts
}

// breakIntoParagraphs splits on blank lines and markdown headings. A heading
// line closes the current section and opens the next one.
func breakIntoParagraphs(text string, minSectionLength int) []Draft {
	var sections []Draft
	var current []string

	flush := func() {
		joined := strings.TrimSpace(strings.Join(current, "\n"))
		if len(joined) >= minSectionLength {
			sections = append(sections, Draft{Content: joined})
		}
		current = current[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		isHeading := strings.HasPrefix(line, "#")
		isBlank := strings.TrimSpace(line) == ""

		if (isHeading || isBlank) && len(current) > 0 {
			flush()
			if isHeading {
				current = append(current, line)
			}
			continue
		}
		if !isBlank {
			current = append(current, line)
		}
	}
	if len(current) > 0 {
		flush()
	}
	return sections
}
