// Package cli turns command-line arguments into an app.Config. It owns the
// usage text and maps parse failures and --help onto ExitError codes; it
// does not load or run anything itself.
package cli
