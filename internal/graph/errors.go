package graph

import (
	"errors"

	"github.com/specialistvlad/cgraph/internal/kernel"
)

var (
	// ErrKernelSignatureMismatch is returned by Emplace when descriptors do
	// not fit the kernel's parameters.
	ErrKernelSignatureMismatch = kernel.ErrSignatureMismatch

	// ErrKernelCompilation wraps a failure reported by the kernel compiler.
	ErrKernelCompilation = errors.New("kernel compilation failed")

	// ErrDuplicateArgumentKind is returned by Compile when one argument name
	// is used with incompatible descriptors.
	ErrDuplicateArgumentKind = errors.New("duplicate argument kind")

	// ErrGraphFrozen is returned when mutating a compiled builder or a block
	// that has already been appended.
	ErrGraphFrozen = errors.New("graph is frozen")

	ErrCycle             = errors.New("sequential appended into itself")
	ErrForeignSequential = errors.New("sequential belongs to another builder")

	ErrMissingArgument       = errors.New("missing argument")
	ErrUnexpectedArgument    = errors.New("unexpected argument")
	ErrArgumentShapeMismatch = errors.New("argument shape mismatch")

	// ErrKernelExecution wraps the error of a failed kernel invocation; the
	// original error stays reachable through errors.Is and errors.As.
	ErrKernelExecution = errors.New("kernel execution failed")

	// ErrInvalidPlan is returned by FromPlan for a malformed plan.
	ErrInvalidPlan = errors.New("invalid plan")
)
