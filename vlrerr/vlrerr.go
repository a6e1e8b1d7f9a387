// Package vlrerr defines the error kinds shared by every package in
// this module, per the core's error handling design: a small,
// closed set of sentinel kinds that callers check with errors.Is,
// plus a thin per-site wrapper that records what actually went wrong.
package vlrerr

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Sentinel kinds. Every error returned across a package boundary in
// this module wraps exactly one of these.
var (
	// CapacityExhausted means a slot pool is full.
	CapacityExhausted = errors.New("capacity exhausted")

	// InvalidArgument means an unknown parameter name, a wrong array
	// length, an enum value outside its definition, or a plug whose
	// source type cannot convert to the parameter's expected type.
	InvalidArgument = errors.New("invalid argument")

	// InvalidDistribution means a Continuous2D was constructed from
	// weights whose top-level integral is not finite. A zero integral
	// is not an error (see sampling.NewDiscrete1D).
	InvalidDistribution = errors.New("invalid distribution")

	// NotFound means a child/parent removal targeted an attachment
	// that does not exist.
	NotFound = errors.New("not found")

	// FatalRuntime means the GPU runtime, the denoiser, or the
	// image/texture sampler layer returned an error. The context
	// that raised it is left in an undefined state.
	FatalRuntime = errors.New("fatal runtime error")

	// IOError means a PTX asset could not be read at initialization.
	IOError = errors.New("I/O error")
)

// New wraps kind with reason, identifying the call site. kind must be
// one of this package's sentinels. The result still satisfies
// errors.Is(err, kind).
func New(kind error, reason string) error {
	return fmt.Errorf("%s: %w", reason, kind)
}

// Newf is New with a formatted reason.
func Newf(kind error, format string, args ...any) error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Fatal wraps cause as kind (FatalRuntime or IOError) and annotates
// it, via github.com/pkg/errors, with the call stack at the point
// Fatal is called, so the host call site where the runtime or
// filesystem failure surfaced survives to whatever logs or reports
// the error. Other packages' "caller
// mistake" kinds (CapacityExhausted, InvalidArgument, NotFound,
// InvalidDistribution) never need this: the caller is already at the
// failure site.
func Fatal(kind error, cause error) error {
	wrapped := pkgerrors.WithStack(cause)
	return fmt.Errorf("%w: %w", kind, wrapped)
}
