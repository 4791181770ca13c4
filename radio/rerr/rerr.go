// Package rerr defines the error kinds the radio-resource simulator can
// return. Errors are plain stdlib values wrapped with fmt.Errorf so callers
// can branch with errors.Is against the sentinel Kind values below.
package rerr

import "errors"

// Kind identifies which class of failure produced an error. Kinds are not
// exhaustive type hierarchies — they are sentinels meant to be compared with
// errors.Is.
var (
	// ConfigError marks invalid construction-time configuration: bad
	// numerology, unknown flow type, max_lat < 2, empty users/slices where
	// required.
	ConfigError = errors.New("config error")

	// InvariantViolation marks a scheduler or model producing output that
	// breaks a structural invariant (e.g. RBG counts summing above the
	// available pool, or an infeasible MILP result).
	InvariantViolation = errors.New("invariant violation")

	// UnsetPrecondition marks an operation run before a required prior
	// step, e.g. Transmit before SetSpectralEfficiency for a user holding
	// RBGs.
	UnsetPrecondition = errors.New("unset precondition")

	// InvalidArgument marks a caller-supplied argument that is structurally
	// invalid, e.g. a non-positive rolling window or an unknown id.
	InvalidArgument = errors.New("invalid argument")

	// ModelError marks a learned-policy inference failure.
	ModelError = errors.New("model error")
)
