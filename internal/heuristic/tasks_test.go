package heuristic

import (
	"fmt"
	"strings"
	"testing"
)

func TestExtractTasks(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantText string
		priority Priority
		dueDate  string
	}{
		{
			name:     "due date by weekday",
			body:     "Please review the attached document by Friday 10",
			wantText: "Please review the attached document by Friday 10",
			priority: PriorityMedium,
			dueDate:  "Friday 10",
		},
		{
			name:     "urgent",
			body:     "This is urgent, please send the report asap",
			wantText: "This is urgent, please send the report asap",
			priority: PriorityHigh,
		},
		{
			name:     "no rush",
			body:     "  Could you prepare slides when you can  ",
			wantText: "Could you prepare slides when you can",
			priority: PriorityLow,
		},
		{
			name:     "due keyword",
			body:     "Report is DUE March 3, can you complete it?",
			wantText: "Report is DUE March 3, can you complete it?",
			priority: PriorityMedium,
			dueDate:  "March 3",
		},
		{
			name:     "numeric date",
			body:     "Send the invoice on 4/15/2025",
			wantText: "Send the invoice on 4/15/2025",
			priority: PriorityMedium,
			dueDate:  "4/15/2025",
		},
		{
			name:     "urgent wins over no rush",
			body:     "URGENT: no rush on the rest, but send the file",
			wantText: "URGENT: no rush on the rest, but send the file",
			priority: PriorityHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := ExtractTasks(tt.body, "Subject")
			if len(items) != 1 {
				t.Fatalf("expected 1 item, got %d: %+v", len(items), items)
			}
			got := items[0]
			if got.Text != tt.wantText {
				t.Fatalf("text = %q, want %q", got.Text, tt.wantText)
			}
			if got.Priority != tt.priority {
				t.Fatalf("priority = %q, want %q", got.Priority, tt.priority)
			}
			if got.DueDate != tt.dueDate {
				t.Fatalf("due date = %q, want %q", got.DueDate, tt.dueDate)
			}
		})
	}
}

func TestExtractTasksFallback(t *testing.T) {
	for _, body := range []string{"", "Thanks for the update.\nSee you soon."} {
		items := ExtractTasks(body, "Quarterly numbers")
		if len(items) != 1 {
			t.Fatalf("expected fallback item, got %+v", items)
		}
		want := ActionItem{Text: "Follow up on: Quarterly numbers", Priority: PriorityMedium}
		if items[0] != want {
			t.Fatalf("fallback = %+v, want %+v", items[0], want)
		}
	}
}

func TestExtractTasksCapsAtTen(t *testing.T) {
	lines := make([]string, 0, 15)
	for i := 0; i < 15; i++ {
		lines = append(lines, fmt.Sprintf("please handle item %d", i))
	}
	items := ExtractTasks(strings.Join(lines, "\n"), "s")
	if len(items) != 10 {
		t.Fatalf("expected 10 items, got %d", len(items))
	}
	if items[0].Text != "please handle item 0" || items[9].Text != "please handle item 9" {
		t.Fatalf("unexpected order: first %q last %q", items[0].Text, items[9].Text)
	}
}

func TestExtractTasksIsDeterministic(t *testing.T) {
	body := "Please review this\nnothing here\nCan you schedule a call by June 5"
	first := ExtractTasks(body, "x")
	second := ExtractTasks(body, "x")
	if len(first) != len(second) {
		t.Fatalf("length changed between calls")
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("item %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestFormatTaskList(t *testing.T) {
	items := []ActionItem{{Text: "a"}, {Text: "b"}, {Text: "c"}}
	got := FormatTaskList(items, map[int]bool{1: true})
	if got != "a\nc" {
		t.Fatalf("export = %q", got)
	}
}
