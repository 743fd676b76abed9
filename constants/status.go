package constants

// RunStatus is the canonical status of one anonymization run.
type RunStatus string

// Stable values (stored verbatim in the run history).
const (
	RunStatusRunning          RunStatus = "RUNNING"            // in progress
	RunStatusNoText           RunStatus = "NO_TEXT"            // extraction produced zero fragments
	RunStatusNothingToRewrite RunStatus = "NOTHING_TO_REWRITE" // planner produced zero rewrites
	RunStatusApplied          RunStatus = "APPLIED"            // rewrites handed to the document
	RunStatusFailed           RunStatus = "FAILED"             // systemic failure
)

// Terminal reports whether the status ends a run.
func (s RunStatus) Terminal() bool {
	return s != RunStatusRunning
}
