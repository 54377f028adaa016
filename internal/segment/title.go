package segment

import "strings"

// maxTitleLength caps titles derived from prompt text.
const maxTitleLength = 100

// ExtractTitle derives a submission title from the first non-empty line of a
// prompt, stripping markdown decoration and truncating long lines.
func ExtractTitle(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimLeft(line, "#")
		line = strings.Trim(line, "*_` ")
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		runes := []rune(line)
		if len(runes) > maxTitleLength {
			line = string(runes[:maxTitleLength-1]) + "…"
		}
		return line
	}
	return "Untitled task"
}
