// Package metrics holds shared metric tag constants.
package metrics

// Result tag values shared across emitters.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultAborted = "aborted"
	ResultNoop    = "noop"
)
