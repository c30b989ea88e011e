package aot

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Dump writes a readable listing of every graph: a header line per graph
// and one "kernel(arg, arg)" line per dispatch in execution order.
func Dump(w io.Writer, m *Module) error {
	bw := bufio.NewWriter(w)
	for i, name := range m.names {
		g := m.graphs[name]
		if i > 0 {
			fmt.Fprintln(bw)
		}
		fmt.Fprintf(bw, "graph %s (%d dispatches, fingerprint %.12s)\n", name, g.DispatchCount(), g.Fingerprint())
		if err := writeDispatches(bw, m, name); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// DumpDir writes one graph_<name>.txt file per graph into dir.
func DumpDir(dir string, m *Module) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, name := range m.names {
		path := filepath.Join(dir, "graph_"+name+".txt")
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		bw := bufio.NewWriter(f)
		err = writeDispatches(bw, m, name)
		if err == nil {
			err = bw.Flush()
		}
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("dumping graph %q: %w", name, err)
		}
	}
	return nil
}

func writeDispatches(w io.Writer, m *Module, name string) error {
	for _, d := range m.graphs[name].Dispatches() {
		if _, err := fmt.Fprintln(w, d.String()); err != nil {
			return err
		}
	}
	return nil
}
