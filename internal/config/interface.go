package config

import (
	"context"

	"github.com/specialistvlad/cgraph/internal/storage"
)

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads every definition found under paths, translates it into the
	// format-agnostic model, and returns a matching Converter.
	Load(ctx context.Context, paths ...string) (*Model, Converter, error)
}

// Converter moves values between the configuration format and storage.
type Converter interface {
	// ToValue allocates and fills the storage described by a binding.
	ToValue(ctx context.Context, def *BindingDef) (storage.Value, error)

	// FromValue renders storage contents as JSON.
	FromValue(v storage.Value) ([]byte, error)
}
