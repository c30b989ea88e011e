// Package hcl provides the concrete HCL implementation for the configuration
// loading and value conversion interfaces defined in the `config` package.
// It is responsible for file discovery and parsing, translation of `arg`,
// `sequential`, `graph` and binding blocks into the model, and CTY-to-storage
// data binding.
package hcl
