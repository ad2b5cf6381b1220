package report

import (
	"sort"
	"strings"

	"github.com/cghimire/eod-reporter/internal/activity"
)

const (
	maxDevItems     = 15
	maxManualShown  = 20
	manualLineLimit = 180
	maxNextItems    = 3
)

// nextStatuses are the in-progress labels eligible for the "Next:"
// section. Narrower than the in-progress bucket: QA/testing states are
// active work but not something the user picks up next.
var nextStatuses = map[string]bool{
	"in progress":    true,
	"in review":      true,
	"review":         true,
	"in development": true,
}

// Render turns a snapshot into the report document. It is a pure
// function: the same snapshot always yields the same document, and no
// state is carried across calls.
//
// Section order is fixed: Updates header, Development, Task updates,
// Additional updates, empty-state bullet, Next, Summary.
func Render(snap activity.Snapshot) Document {
	var doc Document

	doc.section(bold("Updates:"))

	if dev := buildDevBlocks(snap.GitHub); len(dev) > 0 {
		doc.list(0, line(bold("Development:")))
		doc.Blocks = append(doc.Blocks, dev...)
	}

	if tasks := buildTaskBlocks(snap.Tracker); len(tasks) > 0 {
		doc.list(0, line(bold("Task updates:")))
		doc.Blocks = append(doc.Blocks, tasks...)
	}

	if manual := buildManualLines(snap.ManualUpdates); len(manual) > 0 {
		doc.list(0, line(bold("Additional updates:")))
		doc.list(1, manual...)
	}

	// Only the header made it in: emit the empty-state bullet.
	if len(doc.Blocks) == 1 {
		doc.list(0, line(italic("No tracked activity today.")))
	}

	if next := buildNextLines(snap.Tracker); len(next) > 0 {
		doc.section(bold("Next:"))
		doc.list(0, next...)
	}

	if snap.AISummary != nil && strings.TrimSpace(snap.AISummary.Text) != "" {
		doc.section(bold("Summary:"))
		var lines []Line
		for _, l := range strings.Split(snap.AISummary.Text, "\n") {
			l = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(l), "-•* "))
			if l == "" {
				continue
			}
			lines = append(lines, line(text(l)))
		}
		doc.list(0, lines...)
	}

	return doc
}

// repoShort returns the substring after the final "/" in a repo slug.
func repoShort(repo string) string {
	if i := strings.LastIndex(repo, "/"); i >= 0 {
		return repo[i+1:]
	}
	return repo
}

type prEntry struct {
	action string // "opened" or "merged"
	pr     activity.PullRequest
}

// buildDevBlocks renders the Development section body: commits and PRs
// grouped by short repo name. With more than one repo touched, each
// repo gets an indent-1 name bullet and an indent-2 item list; with
// exactly one, the item list sits directly at indent 1.
func buildDevBlocks(gh activity.GitHubActivity) []Block {
	if len(gh.Commits) == 0 && len(gh.PRsOpened) == 0 && len(gh.PRsMerged) == 0 {
		return nil
	}

	commitsByRepo := make(map[string][]activity.Commit)
	for _, c := range capCommits(gh.Commits) {
		key := repoShort(c.Repo)
		commitsByRepo[key] = append(commitsByRepo[key], c)
	}

	prsByRepo := make(map[string][]prEntry)
	for _, pr := range capPRs(gh.PRsOpened) {
		key := repoShort(pr.Repo)
		prsByRepo[key] = append(prsByRepo[key], prEntry{action: "opened", pr: pr})
	}
	for _, pr := range capPRs(gh.PRsMerged) {
		key := repoShort(pr.Repo)
		prsByRepo[key] = append(prsByRepo[key], prEntry{action: "merged", pr: pr})
	}

	// Union of repos across commits and PRs, alphabetical.
	repoSet := make(map[string]bool)
	for r := range commitsByRepo {
		repoSet[r] = true
	}
	for r := range prsByRepo {
		repoSet[r] = true
	}
	repos := make([]string, 0, len(repoSet))
	for r := range repoSet {
		repos = append(repos, r)
	}
	sort.Strings(repos)

	itemLines := func(repo string) []Line {
		var items []Line
		for _, c := range commitsByRepo[repo] {
			items = append(items, line(text(c.Message)))
		}
		for _, e := range prsByRepo[repo] {
			label := "PR opened: "
			if e.action == "merged" {
				label = "PR merged: "
			}
			items = append(items, line(text(label), link(e.pr.URL, e.pr.Title)))
		}
		return items
	}

	var blocks []Block
	if len(repos) > 1 {
		for _, repo := range repos {
			blocks = append(blocks, Block{Kind: KindList, Indent: 1, Lines: []Line{line(text(repo + ":"))}})
			if items := itemLines(repo); len(items) > 0 {
				blocks = append(blocks, Block{Kind: KindList, Indent: 2, Lines: items})
			}
		}
	} else if len(repos) == 1 {
		if items := itemLines(repos[0]); len(items) > 0 {
			blocks = append(blocks, Block{Kind: KindList, Indent: 1, Lines: items})
		}
	}
	return blocks
}

func capCommits(commits []activity.Commit) []activity.Commit {
	if len(commits) > maxDevItems {
		return commits[:maxDevItems]
	}
	return commits
}

func capPRs(prs []activity.PullRequest) []activity.PullRequest {
	if len(prs) > maxDevItems {
		return prs[:maxDevItems]
	}
	return prs
}

// buildTaskBlocks renders the Task-updates section body. A fixed
// four-pass precedence guarantees each item is rendered exactly once:
// completed top-level parents with their children, then stray
// completed items, then remaining top-level parents with children,
// then anything still unrendered as a flat list. The rendered set is
// authoritative; every pass consults it before emitting.
func buildTaskBlocks(tr activity.TrackerActivity) []Block {
	if len(tr.AllItems) == 0 && len(tr.Completed) == 0 && len(tr.Comments) == 0 {
		return nil
	}

	topLevel, children := BuildHierarchy(tr.AllItems)
	grouped := GroupComments(tr.Comments)

	rendered := make(map[string]bool)
	completedIDs := make(map[string]bool, len(tr.Completed))
	for _, t := range tr.Completed {
		completedIDs[t.ID] = true
	}

	childLines := func(parentID string) []Line {
		var lines []Line
		for _, child := range children[parentID] {
			if rendered[child.ID] {
				continue
			}
			suffix := ""
			if prefix := StatusPrefix(child.Status); prefix != "" {
				suffix = " - " + prefix
			}
			lines = append(lines, line(
				link(child.URL, child.Name),
				text(suffix),
				italic(Subtext(child.ID, grouped)),
			))
			rendered[child.ID] = true
		}
		return lines
	}

	var blocks []Block
	parentBlock := func(l Line) {
		blocks = append(blocks, Block{Kind: KindList, Indent: 1, Lines: []Line{l}})
	}

	// Completed top-level parents first, children nested beneath.
	for _, t := range topLevel {
		if !completedIDs[t.ID] || rendered[t.ID] {
			continue
		}
		parentBlock(line(
			text("completed: "),
			link(t.URL, t.Name),
			italic(Subtext(t.ID, grouped)),
		))
		rendered[t.ID] = true

		if cl := childLines(t.ID); len(cl) > 0 {
			blocks = append(blocks, Block{Kind: KindList, Indent: 2, Lines: cl})
		}
	}

	// Completed items whose parent wasn't itself completed top-level.
	for _, t := range tr.Completed {
		if rendered[t.ID] {
			continue
		}
		parentBlock(line(
			text("completed: "),
			link(t.URL, t.Name),
			italic(Subtext(t.ID, grouped)),
		))
		rendered[t.ID] = true
	}

	// Remaining top-level parents with their children.
	for _, t := range topLevel {
		if rendered[t.ID] {
			continue
		}
		label := ""
		if prefix := StatusPrefix(t.Status); prefix != "" {
			label = prefix + ": "
		}
		parentBlock(line(
			text(label),
			link(t.URL, t.Name),
			italic(Subtext(t.ID, grouped)),
		))
		rendered[t.ID] = true

		if cl := childLines(t.ID); len(cl) > 0 {
			blocks = append(blocks, Block{Kind: KindList, Indent: 2, Lines: cl})
		}
	}

	// Orphans whose parent never got rendered: flush flat.
	var remaining []Line
	for _, t := range tr.AllItems {
		if rendered[t.ID] {
			continue
		}
		label := ""
		if prefix := StatusPrefix(t.Status); prefix != "" {
			label = prefix + ": "
		}
		remaining = append(remaining, line(
			text(label),
			link(t.URL, t.Name),
			italic(Subtext(t.ID, grouped)),
		))
		rendered[t.ID] = true
	}
	if len(remaining) > 0 {
		blocks = append(blocks, Block{Kind: KindList, Indent: 1, Lines: remaining})
	}

	return blocks
}

// buildManualLines renders user-authored notes: whitespace collapsed,
// truncated to 180 visible runes, blanks dropped, at most 20 shown.
func buildManualLines(updates []string) []Line {
	var lines []Line
	for i, u := range updates {
		if i == maxManualShown {
			break
		}
		clean := shortenLine(u, manualLineLimit)
		if clean == "" {
			continue
		}
		lines = append(lines, line(text(clean)))
	}
	return lines
}

// buildNextLines picks the first three top-level in-progress items
// whose status marks them as active next-up work, excluding anything
// already completed.
func buildNextLines(tr activity.TrackerActivity) []Line {
	completedIDs := make(map[string]bool, len(tr.Completed))
	for _, t := range tr.Completed {
		completedIDs[t.ID] = true
	}

	var lines []Line
	for _, t := range tr.InProgress {
		if len(lines) == maxNextItems {
			break
		}
		if !nextStatuses[strings.ToLower(t.Status)] || completedIDs[t.ID] || t.ParentID != "" {
			continue
		}
		label := "pick: "
		if prefix := StatusPrefix(t.Status); prefix != "" {
			label = prefix + ": "
		}
		lines = append(lines, line(text(label), link(t.URL, t.Name)))
	}
	return lines
}
