package slack

import (
	"github.com/cghimire/eod-reporter/internal/report"
)

// Blocks serializes a report document into Slack Block Kit. The whole
// document becomes one rich_text block: sections map to
// rich_text_section elements and lists to rich_text_list elements with
// their indent carried through.
func Blocks(doc report.Document) []map[string]any {
	elements := make([]map[string]any, 0, len(doc.Blocks))

	for _, b := range doc.Blocks {
		switch b.Kind {
		case report.KindSection:
			for _, ln := range b.Lines {
				elements = append(elements, map[string]any{
					"type":     "rich_text_section",
					"elements": lineElements(ln),
				})
			}
		case report.KindList:
			items := make([]map[string]any, 0, len(b.Lines))
			for _, ln := range b.Lines {
				items = append(items, map[string]any{
					"type":     "rich_text_section",
					"elements": lineElements(ln),
				})
			}
			elements = append(elements, map[string]any{
				"type":     "rich_text_list",
				"style":    "bullet",
				"indent":   b.Indent,
				"elements": items,
			})
		}
	}

	return []map[string]any{{
		"type":     "rich_text",
		"elements": elements,
	}}
}

// lineElements converts one line's runs. Newlines inside a run (the
// "note:" subtext) pass through; Slack renders them within the bullet.
func lineElements(ln report.Line) []map[string]any {
	out := make([]map[string]any, 0, len(ln.Runs))
	for _, r := range ln.Runs {
		var el map[string]any
		if r.URL != "" {
			el = map[string]any{
				"type": "link",
				"url":  r.URL,
			}
			if r.Text != "" && r.Text != r.URL {
				el["text"] = r.Text
			}
		} else {
			el = map[string]any{
				"type": "text",
				"text": r.Text,
			}
		}
		if s := styleOf(r); s != nil {
			el["style"] = s
		}
		out = append(out, el)
	}
	return out
}

func styleOf(r report.Run) map[string]any {
	if !r.Bold && !r.Italic {
		return nil
	}
	s := map[string]any{}
	if r.Bold {
		s["bold"] = true
	}
	if r.Italic {
		s["italic"] = true
	}
	return s
}
