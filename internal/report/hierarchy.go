package report

import "github.com/cghimire/eod-reporter/internal/activity"

// BuildHierarchy groups a flat item list into top-level items and a
// children map keyed by parent ID.
//
// The lookup is built once over the input list only, so parent cycles
// and self-references cannot loop: whichever item is encountered first
// takes the parent slot and the other nests under it. Items whose
// parent is absent from the input are treated as top-level. Relative
// input order is preserved in both the top-level list and each child
// list, and only one level of nesting is produced.
func BuildHierarchy(items []activity.WorkItem) ([]activity.WorkItem, map[string][]activity.WorkItem) {
	byID := make(map[string]activity.WorkItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	var topLevel []activity.WorkItem
	children := make(map[string][]activity.WorkItem)

	for _, it := range items {
		if it.ParentID != "" {
			if _, ok := byID[it.ParentID]; ok {
				children[it.ParentID] = append(children[it.ParentID], it)
				continue
			}
		}
		topLevel = append(topLevel, it)
	}

	return topLevel, children
}
