package slack

import (
	"testing"
	"time"

	"github.com/cghimire/eod-reporter/internal/activity"
	"github.com/cghimire/eod-reporter/internal/report"
)

func TestBlocksStructure(t *testing.T) {
	snap := activity.Snapshot{
		GitHub: activity.GitHubActivity{
			Commits: []activity.Commit{{SHA: "a", Message: "fix build", Repo: "org/app", URL: "https://github.com/org/app/commit/a", Timestamp: time.Now()}},
		},
	}
	doc := report.Render(snap)

	blocks := Blocks(doc)
	if len(blocks) != 1 {
		t.Fatalf("blocks = %d, want 1 rich_text block", len(blocks))
	}
	if blocks[0]["type"] != "rich_text" {
		t.Fatalf("type = %v", blocks[0]["type"])
	}

	elements := blocks[0]["elements"].([]map[string]any)
	if len(elements) == 0 {
		t.Fatal("no elements")
	}

	// First element is the Updates: header section.
	if elements[0]["type"] != "rich_text_section" {
		t.Errorf("first element = %v, want rich_text_section", elements[0]["type"])
	}

	var sawList, sawLink bool
	for _, el := range elements {
		if el["type"] != "rich_text_list" {
			continue
		}
		sawList = true
		if el["style"] != "bullet" {
			t.Errorf("list style = %v, want bullet", el["style"])
		}
		for _, item := range el["elements"].([]map[string]any) {
			for _, run := range item["elements"].([]map[string]any) {
				if run["type"] == "link" {
					sawLink = true
					if run["url"] == "" {
						t.Error("link without url")
					}
				}
				if run["type"] == "text" && run["text"] == "" {
					t.Error("empty text element")
				}
			}
		}
	}
	if !sawList {
		t.Error("expected at least one rich_text_list")
	}
	if !sawLink {
		t.Error("expected the commit link to serialize as a link element")
	}
}

func TestBlocksStyles(t *testing.T) {
	var doc report.Document
	doc.Blocks = []report.Block{
		{Kind: report.KindSection, Lines: []report.Line{{Runs: []report.Run{
			{Text: "Updates:", Bold: true},
		}}}},
		{Kind: report.KindList, Indent: 2, Lines: []report.Line{{Runs: []report.Run{
			{Text: "quiet day", Italic: true},
		}}}},
	}

	elements := Blocks(doc)[0]["elements"].([]map[string]any)

	header := elements[0]["elements"].([]map[string]any)[0]
	if style := header["style"].(map[string]any); style["bold"] != true {
		t.Errorf("header style = %v, want bold", style)
	}

	list := elements[1]
	if list["indent"] != 2 {
		t.Errorf("indent = %v, want 2", list["indent"])
	}
	run := list["elements"].([]map[string]any)[0]["elements"].([]map[string]any)[0]
	if style := run["style"].(map[string]any); style["italic"] != true {
		t.Errorf("run style = %v, want italic", style)
	}
}
