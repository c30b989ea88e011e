package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/specialistvlad/cgraph/internal/config"
	"github.com/specialistvlad/cgraph/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Bindings of every kind share one namespace.
const bindingKind = "binding"

func (l *Loader) translate(ctx context.Context, root *fileRoot, src config.Source, seen nameIndex, model *config.Model) error {
	for _, a := range root.Args {
		def, err := translateArg(a, src)
		if err != nil {
			return err
		}
		if err := seen.claim("arg", def.Name, src); err != nil {
			return err
		}
		model.Args = append(model.Args, def)
	}

	for _, s := range root.Sequentials {
		steps, desc, err := translateSteps(ctx, s, src)
		if err != nil {
			return err
		}
		if err := seen.claim("sequential", s.Name, src); err != nil {
			return err
		}
		model.Sequentials = append(model.Sequentials, &config.SequentialDef{Name: s.Name, Description: desc, Steps: steps, Source: src})
	}

	for _, g := range root.Graphs {
		steps, desc, err := translateSteps(ctx, g, src)
		if err != nil {
			return err
		}
		if err := seen.claim("graph", g.Name, src); err != nil {
			return err
		}
		model.Graphs = append(model.Graphs, &config.GraphDef{Name: g.Name, Description: desc, Steps: steps, Source: src})
	}

	groups := []struct {
		kind   string
		blocks []*hclBinding
	}{
		{"scalar", root.Scalars},
		{"ndarray", root.Ndarrays},
		{"vector", root.Vectors},
		{"matrix", root.Matrices},
	}
	for _, grp := range groups {
		for _, b := range grp.blocks {
			def, err := translateBinding(grp.kind, b, src)
			if err != nil {
				return err
			}
			if err := seen.claim(bindingKind, def.Name, src); err != nil {
				return err
			}
			model.Bindings = append(model.Bindings, def)
		}
	}
	return nil
}

func translateArg(a *hclArg, src config.Source) (*config.ArgDef, error) {
	def := &config.ArgDef{Name: a.Name, Kind: a.Kind, DType: a.DType, FieldDim: a.FieldDim, Source: src}

	if a.ElementShape == nil {
		return def, nil
	}
	val, diags := a.ElementShape.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%s: arg %q: %w", src, a.Name, diags)
	}
	if !val.IsNull() {
		shape, err := decodeInts(val)
		if err != nil {
			return nil, fmt.Errorf("%s: arg %q: element_shape: %w", src, a.Name, err)
		}
		def.ElementShape = shape
	}
	return def, nil
}

// decodeInts converts a number list or tuple into a non-nil []int.
func decodeInts(val cty.Value) ([]int, error) {
	list, err := convert.Convert(val, cty.List(cty.Number))
	if err != nil {
		return nil, err
	}
	out := []int{}
	if list.LengthInt() == 0 {
		return out, nil
	}
	if err := gocty.FromCtyValue(list, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func translateSteps(ctx context.Context, s *hclSteps, src config.Source) ([]config.Step, string, error) {
	logger := ctxlog.FromContext(ctx)

	content, diags := s.Body.Content(stepsBodySchema)
	if diags.HasErrors() {
		return nil, "", fmt.Errorf("%s: %q: %w", src, s.Name, diags)
	}

	var desc string
	if attr, ok := content.Attributes["description"]; ok {
		if diags := gohcl.DecodeExpression(attr.Expr, nil, &desc); diags.HasErrors() {
			return nil, "", fmt.Errorf("%s: %q: description: %w", src, s.Name, diags)
		}
	}

	steps := make([]config.Step, 0, len(content.Blocks))
	for _, block := range content.Blocks {
		step, err := translateStep(block)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %q: %w", src, s.Name, err)
		}
		steps = append(steps, step)
	}
	logger.Debug("Translated step list.", "name", s.Name, "steps", len(steps))
	return steps, desc, nil
}

func translateStep(block *hcl.Block) (config.Step, error) {
	switch block.Type {
	case "dispatch":
		var d hclDispatch
		if diags := gohcl.DecodeBody(block.Body, nil, &d); diags.HasErrors() {
			return config.Step{}, diags
		}
		return config.Step{Dispatch: &config.DispatchDef{Kernel: block.Labels[0], Args: d.Args}}, nil
	case "append":
		var a hclAppend
		if diags := gohcl.DecodeBody(block.Body, nil, &a); diags.HasErrors() {
			return config.Step{}, diags
		}
		count := 1
		if a.Count != nil {
			count = *a.Count
		}
		if count < 1 {
			return config.Step{}, fmt.Errorf("append %q: count must be at least 1, got %d", block.Labels[0], count)
		}
		return config.Step{Append: &config.AppendDef{Sequential: block.Labels[0], Count: count}}, nil
	}
	return config.Step{}, fmt.Errorf("unexpected block %q", block.Type)
}

func translateBinding(kind string, b *hclBinding, src config.Source) (*config.BindingDef, error) {
	def := &config.BindingDef{
		Name:         b.Name,
		Kind:         kind,
		DType:        b.DType,
		Shape:        b.Shape,
		ElementShape: b.ElementShape,
		Fill:         b.Fill,
		Value:        cty.NilVal,
		Source:       src,
	}
	if b.Value != nil {
		val, diags := b.Value.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("%s: %s %q: %w", src, kind, b.Name, diags)
		}
		if !val.IsNull() {
			def.Value = val
		}
	}
	return def, nil
}
