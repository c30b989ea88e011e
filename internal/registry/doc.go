// Package registry provides the central "glue" for the module system.
//
// The Registry stores the mapping between the kernel names used in
// definition files (e.g. "set_first") and the Go kernels that implement
// them. Modules add their kernels at startup; the registry is then validated
// against the loaded definitions so that every dispatch names a registered
// kernel with the right number of arguments before any graph is compiled.
package registry
