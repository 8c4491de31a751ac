// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"todosync/internal/service"
)

// FormatTask formats one task line.
// Format: "{N:>4}  {MARK} {TITLE}\n" followed by an indented
// description line when the task has one.
func FormatTask(w io.Writer, num int, task service.Task) {
	mark := "[ ]"
	if task.Completed {
		mark = "[x]"
	}
	fmt.Fprintf(w, "%4d  %s %s\n", num, mark, normalizeText(task.Title))
	if strings.TrimSpace(task.Description) != "" {
		fmt.Fprintf(w, "          %s\n", normalizeText(task.Description))
	}
}

// FormatIdentity formats the whoami line.
func FormatIdentity(w io.Writer, id, email string) {
	if email != "" {
		fmt.Fprintf(w, "%s <%s>\n", id, email)
		return
	}
	fmt.Fprintln(w, id)
}

// normalizeText normalizes task text for single-line display.
// - Empty or whitespace-only text becomes "(untitled)"
// - Newlines are replaced with spaces
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r", " ")
	text = strings.ReplaceAll(text, "\n", " ")

	if strings.TrimSpace(text) == "" {
		return "(untitled)"
	}
	return text
}
