package enrich

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sgahlot/signalctx/internal/types"
)

// InjectedErrorEntry is the synthetic line appended when test injection is on.
var InjectedErrorEntry = types.LogEntry{
	Namespace: "dev",
	Pod:       "llama-3-2-3b-instruct-predictor-649469cd68-8zn49",
	Level:     types.LevelError,
	Message:   "Server running out of memory",
}

var lineBreaks = regexp.MustCompile(`[ \t]*[\r\n]+[ \t]*`)

// RenderLine formats one entry as "- namespace=<ns> pod=<pod> level=<LEVEL> <message>".
// Line breaks inside the message are folded into single spaces.
func RenderLine(e types.LogEntry) string {
	msg := strings.TrimSpace(lineBreaks.ReplaceAllString(e.Message, " "))
	return fmt.Sprintf("- namespace=%s pod=%s level=%s %s", e.Namespace, e.Pod, e.Level, msg)
}

// Render joins entries with newlines. No entries render as "".
func Render(entries []types.LogEntry) string {
	if len(entries) == 0 {
		return ""
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, RenderLine(e))
	}
	return strings.Join(lines, "\n")
}
