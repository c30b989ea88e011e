package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/cgraph/internal/config"
	"github.com/specialistvlad/cgraph/internal/ctxlog"
)

// Validate performs a strict parity check between the loaded definitions
// and the registered kernels. Every problem is reported, not just the first.
func (r *Registry) Validate(ctx context.Context, model *config.Model) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, a := range model.Args {
		if _, err := a.Descriptor(); err != nil {
			errs = append(errs, err.Error())
		}
	}

	appended := make(map[string]bool)
	check := func(owner string, src config.Source, steps []config.Step) {
		for i, st := range steps {
			switch {
			case st.Dispatch != nil:
				errs = append(errs, r.checkDispatch(model, owner, src, i, st.Dispatch)...)
			case st.Append != nil:
				appended[st.Append.Sequential] = true
				if _, ok := model.Sequential(st.Append.Sequential); !ok {
					errs = append(errs, fmt.Sprintf("%s: %s, step %d: unknown sequential '%s'", src, owner, i, st.Append.Sequential))
				}
			}
		}
	}
	for _, s := range model.Sequentials {
		check("sequential '"+s.Name+"'", s.Source, s.Steps)
	}
	for _, g := range model.Graphs {
		check("graph '"+g.Name+"'", g.Source, g.Steps)
	}

	for _, s := range model.Sequentials {
		if !appended[s.Name] {
			logger.Warn("Sequential is never appended.", "sequential", s.Name, "file", s.Source.FilePath)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func (r *Registry) checkDispatch(model *config.Model, owner string, src config.Source, i int, d *config.DispatchDef) []string {
	var errs []string
	where := fmt.Sprintf("%s: %s, step %d", src, owner, i)

	k, ok := r.Kernel(d.Kernel)
	if !ok {
		errs = append(errs, fmt.Sprintf("%s: unknown kernel '%s'", where, d.Kernel))
	} else if len(d.Args) != len(k.Params) {
		errs = append(errs, fmt.Sprintf("%s: kernel '%s' takes %d arguments, dispatch passes %d", where, d.Kernel, len(k.Params), len(d.Args)))
	}
	for _, name := range d.Args {
		if _, ok := model.Arg(name); !ok {
			errs = append(errs, fmt.Sprintf("%s: argument '%s' is not declared", where, name))
		}
	}
	return errs
}
