// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the primary execution lifecycle: load the
// definitions, compile every graph (or load them from an AOT module), run the
// selected graph and print its results. It is decoupled from any specific
// entrypoint like a CLI or server.
package app
