package editor

import (
	"fmt"
	"strings"

	"github.com/releasekit/releasekit-go/pkg/backend"
)

// NotesMarkdown assembles a markdown preview from the canonical sections.
// Presentation only: the backend's export endpoint renders the real thing.
func NotesMarkdown(notes *backend.ReleaseNotes) string {
	if notes == nil {
		return ""
	}
	var b strings.Builder
	for _, sec := range notes.Sections {
		items := make([]backend.NoteItem, 0, len(sec.Items))
		for _, item := range sec.Items {
			if !item.Excluded {
				items = append(items, item)
			}
		}
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", sec.Title)
		for _, item := range items {
			if item.PRNumber > 0 {
				fmt.Fprintf(&b, "- %s (#%d)\n", item.Text, item.PRNumber)
			} else {
				fmt.Fprintf(&b, "- %s\n", item.Text)
			}
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// PlanMarkdown assembles a markdown preview of the test plan.
func PlanMarkdown(plan *backend.TestPlan) string {
	if plan == nil {
		return ""
	}
	var b strings.Builder
	for _, sec := range plan.Sections {
		if len(sec.Cases) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", sec.Title)
		for _, tc := range sec.Cases {
			box := " "
			if tc.Checked {
				box = "x"
			}
			fmt.Fprintf(&b, "- [%s] **%s** %s\n", box, tc.Priority, tc.Text)
			for _, step := range tc.Checklist {
				fmt.Fprintf(&b, "  - %s\n", step)
			}
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
