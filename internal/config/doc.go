// Package config defines the format-agnostic model of a graph definition
// file set, along with the interfaces (Loader, Converter) implemented by a
// concrete configuration format.
//
// The Model describes what to build (argument descriptors, sequentials and
// graphs as ordered step lists) and what to bind at run time. The builder
// package turns it into compiled graphs; the HCL implementation lives in
// the hcl package.
package config
