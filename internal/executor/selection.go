package executor

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Selection names what a run should process. Items lists whole items;
// Subtasks maps an item to the 1-based positions of the units to submit.
// An empty selection means every runnable item the owner has.
type Selection struct {
	Items    []string
	Subtasks map[string][]int
}

// IsEmpty reports whether the selection names nothing.
func (s Selection) IsEmpty() bool {
	return len(s.Items) == 0 && len(s.Subtasks) == 0
}

// ParseSelection reads run arguments. Each argument is either an item id or
// "id:3,5" naming specific unit positions within that item.
func ParseSelection(args []string) (Selection, error) {
	sel := Selection{}
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		id, spec, found := strings.Cut(arg, ":")
		id = strings.TrimSpace(id)
		if id == "" {
			return Selection{}, fmt.Errorf("invalid selection %q: missing item id", arg)
		}
		if !found {
			sel.Items = append(sel.Items, id)
			continue
		}
		indices, err := parseIndices(spec)
		if err != nil {
			return Selection{}, fmt.Errorf("invalid selection %q: %w", arg, err)
		}
		if sel.Subtasks == nil {
			sel.Subtasks = make(map[string][]int)
		}
		sel.Subtasks[id] = append(sel.Subtasks[id], indices...)
	}
	for id, indices := range sel.Subtasks {
		sel.Subtasks[id] = dedupeSorted(indices)
	}
	return sel, nil
}

func parseIndices(spec string) ([]int, error) {
	parts := strings.Split(spec, ",")
	indices := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("bad unit position %q", part)
		}
		if n < 1 {
			return nil, fmt.Errorf("unit positions start at 1, got %d", n)
		}
		indices = append(indices, n)
	}
	if len(indices) == 0 {
		return nil, fmt.Errorf("no unit positions given")
	}
	return indices, nil
}

func dedupeSorted(indices []int) []int {
	sort.Ints(indices)
	out := make([]int, 0, len(indices))
	for _, n := range indices {
		if len(out) == 0 || n != out[len(out)-1] {
			out = append(out, n)
		}
	}
	return out
}
