// Package report contains the deterministic core of the reporter: the
// work-item classifier, hierarchy builder, comment attacher, and the
// renderers that turn an activity snapshot into a document. Nothing in
// this package performs I/O.
package report

import "strings"

// Bucket is the classification outcome for a work item.
type Bucket int

const (
	// Excluded items carry statuses outside the known vocabularies
	// (e.g. "open", "to do", "backlog") and are dropped from both
	// completed and in-progress totals.
	Excluded Bucket = iota
	Completed
	InProgress
)

func (b Bucket) String() string {
	switch b {
	case Completed:
		return "completed"
	case InProgress:
		return "in_progress"
	default:
		return "excluded"
	}
}

// completedStatuses are labels that mean the task is done.
var completedStatuses = map[string]bool{
	"complete": true,
	"closed":   true,
	"done":     true,
	"resolved": true,
}

// inProgressStatuses are labels that indicate active work.
var inProgressStatuses = map[string]bool{
	"in progress":      true,
	"in review":        true,
	"review":           true,
	"qa":               true,
	"testing":          true,
	"dev-test":         true,
	"ready for review": true,
	"in development":   true,
}

// Classify maps a status label to a bucket. Matching is exact against
// the fixed vocabularies, case-insensitive, with surrounding
// whitespace ignored. Unknown labels are excluded, never an error.
func Classify(status string) Bucket {
	label := strings.ToLower(strings.TrimSpace(status))
	switch {
	case completedStatuses[label]:
		return Completed
	case inProgressStatuses[label]:
		return InProgress
	default:
		return Excluded
	}
}

// StatusPrefix maps a status label to the short display token shown
// before item links. The mapping is purely presentational and
// independent of the bucket decision; unrecognized labels get an
// empty prefix and the renderer shows the bare link.
func StatusPrefix(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "in progress":
		return "wip"
	case "in review", "review", "qa", "testing":
		return "dev-test"
	case "done", "complete", "closed", "resolved":
		return "completed"
	default:
		return ""
	}
}
