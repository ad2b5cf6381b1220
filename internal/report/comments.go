package report

import (
	"strings"

	"github.com/cghimire/eod-reporter/internal/activity"
)

const (
	maxCommentLines  = 2
	commentLineLimit = 100
)

// GroupComments groups non-empty comment texts by work-item ID,
// preserving arrival order.
func GroupComments(comments []activity.Comment) map[string][]string {
	grouped := make(map[string][]string)
	for _, c := range comments {
		text := strings.TrimSpace(c.Text)
		if text == "" {
			continue
		}
		grouped[c.TaskID] = append(grouped[c.TaskID], text)
	}
	return grouped
}

// shortenLine collapses internal whitespace runs to single spaces and
// truncates to limit visible runes, cutting at limit-1 and appending
// one ellipsis rune. The cut is rune-based so a multibyte sequence is
// never split.
func shortenLine(text string, limit int) string {
	clean := strings.Join(strings.Fields(text), " ")
	runes := []rune(clean)
	if len(runes) <= limit {
		return clean
	}
	return strings.TrimRight(string(runes[:limit-1]), " ") + "…"
}

// Subtext builds a compact comment summary for an item: at most the
// first two comments, each as its own "note:" line shortened to 100
// runes. Items with no comments get an empty string, never an empty
// line.
func Subtext(itemID string, grouped map[string][]string) string {
	items := grouped[itemID]
	if len(items) == 0 {
		return ""
	}

	out := "\nnote: " + shortenLine(items[0], commentLineLimit)
	if len(items) == 1 {
		return out
	}
	return out + "\nnote: " + shortenLine(items[1], commentLineLimit)
}
