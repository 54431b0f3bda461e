// Package raceerr holds the typed, fatal error kinds the core
// coordinator must recognise by type rather than by message text
// (spec.md §6 "Error surface to outer coordinator", §7). It is its own
// package so that both internal/runner (which raises SystemSetupError)
// and internal/driver (which raises AssertionError from the health
// gate) can depend on it without a cycle.
package raceerr

import "fmt"

// SystemSetupError is fatal and halts the client that raised it: the
// runner was invoked with a parameter bundle missing a key it requires.
// The message format is normative (spec.md §4.D).
type SystemSetupError struct {
	msg string
}

func (e *SystemSetupError) Error() string { return e.msg }

// NewSystemSetupError builds the canonical missing-parameter message:
//
//	Cannot execute [<runner>]. Provided parameters are: [<keys>]. Error: ['<missing key>'].
func NewSystemSetupError(runner string, providedKeys []string, missingKey string) *SystemSetupError {
	return &SystemSetupError{msg: fmt.Sprintf(
		"Cannot execute [%s]. Provided parameters are: [%s]. Error: ['%s'].",
		runner, formatKeys(providedKeys), missingKey,
	)}
}

func formatKeys(keys []string) string {
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += ", "
		}
		out += "'" + k + "'"
	}
	return out
}

// AssertionError is fatal and is raised by the Cluster Health Gate when
// the cluster's status cannot be reconciled with the expected status
// within the retry budget (spec.md §4.H). Message formats are normative.
type AssertionError struct {
	msg string
}

func (e *AssertionError) Error() string { return e.msg }

// NewRelocatingShardsError builds the canonical "status reached but
// shards still relocating" message.
func NewRelocatingShardsError(reached, expected string, relocating int) *AssertionError {
	return &AssertionError{msg: fmt.Sprintf(
		"Cluster reached status [%s] which is equal or better than the expected status [%s] but there were [%d] "+
			"relocating shards and we require zero relocating shards (Use the /_cat/shards API to check which shards are relocating.)",
		reached, expected, relocating,
	)}
}

// NewStatusNotReachedError builds the canonical health-gate timeout message.
func NewStatusNotReachedError(expected, lastReached string) *AssertionError {
	return &AssertionError{msg: fmt.Sprintf(
		"Cluster did not reach status [%s]. Last reached status: [%s]", expected, lastReached,
	)}
}
