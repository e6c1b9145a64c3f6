package heuristic

import "strings"

// ExtractTasks returns the action items found in body, in line order and
// capped at ten. A body without any candidate line yields a single
// follow-up item for subject.
func ExtractTasks(body, subject string) []ActionItem {
	items := []ActionItem{}
	for _, line := range strings.Split(body, "\n") {
		if !IsActionLine(line) {
			continue
		}
		item := ActionItem{
			Text:     strings.TrimSpace(line),
			Priority: ClassifyPriority(line),
		}
		if due, ok := ExtractDueDate(line); ok {
			item.DueDate = due
		}
		items = append(items, item)
		if len(items) == maxActionItems {
			break
		}
	}

	if len(items) == 0 {
		return []ActionItem{{
			Text:     followUpPrefix + subject,
			Priority: PriorityMedium,
		}}
	}
	return items
}

// FormatTaskList joins the text of items whose index is not in done, one per
// line. It is the plain-text export of the unchecked tasks.
func FormatTaskList(items []ActionItem, done map[int]bool) string {
	lines := make([]string, 0, len(items))
	for i, item := range items {
		if done[i] {
			continue
		}
		lines = append(lines, item.Text)
	}
	return strings.Join(lines, "\n")
}
