package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/cgraph/internal/config"
	"github.com/specialistvlad/cgraph/internal/ctxlog"
	"github.com/specialistvlad/cgraph/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file under paths and merges all blocks into one
// model. A name may be declared once per block kind across all files.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.FindFilesByExtension(".hcl", paths...)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	model := &config.Model{}
	seen := newNameIndex()
	parser := hclparse.NewParser()

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		src := config.Source{FilePath: file}
		if err := l.translate(ctx, &root, src, seen, model); err != nil {
			return nil, nil, err
		}
	}

	logger.Debug("HCL loading complete.",
		"args", len(model.Args),
		"sequentials", len(model.Sequentials),
		"graphs", len(model.Graphs),
		"bindings", len(model.Bindings),
	)
	return model, NewConverter(), nil
}

// nameIndex remembers where each name was first declared, per block kind.
type nameIndex map[string]map[string]config.Source

func newNameIndex() nameIndex { return make(nameIndex) }

func (n nameIndex) claim(kind, name string, src config.Source) error {
	byName, ok := n[kind]
	if !ok {
		byName = make(map[string]config.Source)
		n[kind] = byName
	}
	if first, dup := byName[name]; dup {
		return fmt.Errorf("%s: duplicate %s %q, first declared in %s", src, kind, name, first)
	}
	byName[name] = src
	return nil
}
