package executor_test

import (
	"reflect"
	"testing"

	"promptq/internal/executor"
)

func TestParseSelection(t *testing.T) {
	sel, err := executor.ParseSelection([]string{"abc", "def:3,1,3", "ghi"})
	if err != nil {
		t.Fatalf("ParseSelection failed: %v", err)
	}
	if !reflect.DeepEqual(sel.Items, []string{"abc", "ghi"}) {
		t.Errorf("items = %v", sel.Items)
	}
	if !reflect.DeepEqual(sel.Subtasks["def"], []int{1, 3}) {
		t.Errorf("subtasks = %v", sel.Subtasks)
	}
}

func TestParseSelectionEmpty(t *testing.T) {
	sel, err := executor.ParseSelection(nil)
	if err != nil {
		t.Fatalf("ParseSelection failed: %v", err)
	}
	if !sel.IsEmpty() {
		t.Fatalf("expected empty selection, got %#v", sel)
	}
}

func TestParseSelectionErrors(t *testing.T) {
	bad := [][]string{
		{"abc:"},
		{"abc:x"},
		{"abc:0"},
		{":1,2"},
	}
	for _, args := range bad {
		if _, err := executor.ParseSelection(args); err == nil {
			t.Errorf("ParseSelection(%v) should fail", args)
		}
	}
}
