package report

import (
	"testing"

	"github.com/cghimire/eod-reporter/internal/activity"
)

func item(id, parent string) activity.WorkItem {
	return activity.WorkItem{ID: id, Name: "task " + id, ParentID: parent, Status: "in progress"}
}

func ids(items []activity.WorkItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func equalIDs(a []string, b ...string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBuildHierarchy(t *testing.T) {
	items := []activity.WorkItem{
		item("a", ""),
		item("b", "a"),
		item("c", "a"),
		item("d", ""),
	}

	top, children := BuildHierarchy(items)

	if !equalIDs(ids(top), "a", "d") {
		t.Errorf("top-level = %v, want [a d]", ids(top))
	}
	if !equalIDs(ids(children["a"]), "b", "c") {
		t.Errorf("children[a] = %v, want [b c]", ids(children["a"]))
	}
	if len(children["d"]) != 0 {
		t.Errorf("children[d] = %v, want none", ids(children["d"]))
	}
}

func TestBuildHierarchyMissingParent(t *testing.T) {
	// An item whose parent is outside the working set is top-level.
	items := []activity.WorkItem{
		item("x", "not-fetched"),
		item("y", ""),
	}

	top, children := BuildHierarchy(items)

	if !equalIDs(ids(top), "x", "y") {
		t.Errorf("top-level = %v, want [x y]", ids(top))
	}
	if len(children) != 0 {
		t.Errorf("children = %v, want empty", children)
	}
}

func TestBuildHierarchyOrderPreserving(t *testing.T) {
	items := []activity.WorkItem{
		item("p2", ""),
		item("c3", "p1"),
		item("p1", ""),
		item("c1", "p2"),
		item("c2", "p2"),
	}

	top, children := BuildHierarchy(items)

	if !equalIDs(ids(top), "p2", "p1") {
		t.Errorf("top-level = %v, want input order [p2 p1]", ids(top))
	}
	if !equalIDs(ids(children["p2"]), "c1", "c2") {
		t.Errorf("children[p2] = %v, want input order [c1 c2]", ids(children["p2"]))
	}
	if !equalIDs(ids(children["p1"]), "c3") {
		t.Errorf("children[p1] = %v, want [c3]", ids(children["p1"]))
	}
}

func TestBuildHierarchyCycle(t *testing.T) {
	// A parents B, B parents A. Single-pass lookup means both simply
	// nest under each other without looping; neither is lost.
	items := []activity.WorkItem{
		item("a", "b"),
		item("b", "a"),
	}

	top, children := BuildHierarchy(items)

	if len(top) != 0 {
		t.Errorf("top-level = %v, want none (both are children)", ids(top))
	}
	if !equalIDs(ids(children["b"]), "a") {
		t.Errorf("children[b] = %v, want [a]", ids(children["b"]))
	}
	if !equalIDs(ids(children["a"]), "b") {
		t.Errorf("children[a] = %v, want [b]", ids(children["a"]))
	}
}

func TestBuildHierarchySelfParent(t *testing.T) {
	items := []activity.WorkItem{item("s", "s")}

	top, children := BuildHierarchy(items)

	// Self-parenting files the item under itself; it must not loop
	// and must not vanish.
	if len(top)+len(children["s"]) != 1 {
		t.Errorf("self-parented item lost: top=%v children=%v", ids(top), ids(children["s"]))
	}
}
