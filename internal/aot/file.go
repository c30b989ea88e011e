package aot

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/specialistvlad/cgraph/internal/ctxlog"
	"github.com/specialistvlad/cgraph/internal/graph"
	"github.com/specialistvlad/cgraph/internal/kernel"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	magic = 0x46524743 // "CGRF"

	// Version is the current file format version.
	Version uint16 = 1

	headerSize = 4 + 2 + 4 + 4

	// maxBodySize bounds the body allocation when reading an untrusted file.
	maxBodySize = 256 << 20
)

type header struct {
	Magic   uint32
	Version uint16
	Length  uint32
	CRC     uint32
}

type fileBody struct {
	Graphs []fileGraph `msgpack:"graphs"`
}

type fileGraph struct {
	Plan        graph.Plan `msgpack:"plan"`
	Fingerprint string     `msgpack:"fingerprint"`
}

// Save writes every graph of m to w.
func Save(ctx context.Context, w io.Writer, m *Module) error {
	body := fileBody{Graphs: make([]fileGraph, 0, m.Len())}
	for _, name := range m.names {
		g := m.graphs[name]
		p := g.Plan()
		body.Graphs = append(body.Graphs, fileGraph{Plan: p, Fingerprint: p.Fingerprint()})
	}

	payload, err := msgpack.Marshal(&body)
	if err != nil {
		return fmt.Errorf("encoding module: %w", err)
	}
	if len(payload) > maxBodySize {
		return fmt.Errorf("encoded module is %d bytes, limit is %d", len(payload), maxBodySize)
	}

	h := header{Magic: magic, Version: Version, Length: uint32(len(payload)), CRC: crc32.ChecksumIEEE(payload)}
	var buf bytes.Buffer
	buf.Grow(headerSize + len(payload))
	if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
		return fmt.Errorf("writing module header: %w", err)
	}
	buf.Write(payload)
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing module: %w", err)
	}

	ctxlog.FromContext(ctx).Debug("Module saved.", "graphs", m.Len(), "bytes", buf.Len())
	return nil
}

// Load reads a module written by Save. Kernels are looked up by name and
// compiled again through compiler.
func Load(ctx context.Context, r io.Reader, kernels graph.KernelLookup, compiler kernel.Compiler, opts ...graph.Option) (*Module, error) {
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrCorrupt, err)
	}
	if h.Magic != magic {
		return nil, fmt.Errorf("%w: invalid magic number %#x", ErrCorrupt, h.Magic)
	}
	if h.Version != Version {
		return nil, fmt.Errorf("%w: file has version %d, this build reads %d", ErrVersion, h.Version, Version)
	}
	if h.Length > maxBodySize {
		return nil, fmt.Errorf("%w: body length %d exceeds limit", ErrCorrupt, h.Length)
	}

	payload := make([]byte, h.Length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrCorrupt, err)
	}
	if sum := crc32.ChecksumIEEE(payload); sum != h.CRC {
		return nil, fmt.Errorf("%w: checksum %#08x, header says %#08x", ErrCorrupt, sum, h.CRC)
	}

	var body fileBody
	if err := msgpack.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("%w: decoding body: %v", ErrCorrupt, err)
	}

	m := NewModule()
	for _, fg := range body.Graphs {
		g, err := graph.FromPlan(ctx, fg.Plan, kernels, compiler, opts...)
		if err != nil {
			return nil, fmt.Errorf("loading graph %q: %w", fg.Plan.Name, err)
		}
		if fp := g.Fingerprint(); fp != fg.Fingerprint {
			return nil, fmt.Errorf("%w: graph %q rebuilt with fingerprint %s, file records %s", ErrCorrupt, fg.Plan.Name, fp, fg.Fingerprint)
		}
		if err := m.AddGraph(g); err != nil {
			return nil, err
		}
	}

	ctxlog.FromContext(ctx).Debug("Module loaded.", "graphs", m.Len(), "bytes", headerSize+len(payload))
	return m, nil
}
