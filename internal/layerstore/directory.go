package layerstore

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/arclayer/layerstore/internal/adjacency"
	"github.com/arclayer/layerstore/internal/builder"
	"github.com/arclayer/layerstore/internal/dictionary"
	"github.com/arclayer/layerstore/internal/ids"
	"github.com/arclayer/layerstore/internal/layer"
	"github.com/arclayer/layerstore/internal/storelog"
	"github.com/arclayer/layerstore/internal/triple"
)

// Directory is a layer store backed by one subdirectory per layer
// under a root directory, named by the layer's 40-character hex name
// (spec §6). Each layer's own dictionaries and triples are persisted
// in a reconstructable form (sorted string lists, flat triple lists)
// rather than the raw in-memory rank/select bit arrays, so a load
// rebuilds the exact same accelerated indices via the same
// constructors a builder uses.
type Directory struct {
	root      string
	cache     *Memory // loaded layers, so ancestor chains aren't reparsed on every GetLayer
	blockSize int
	logger    *slog.Logger
}

// NewDirectory opens (and creates, if necessary) a directory-backed
// layer store rooted at root. Builders it hands out default to
// dictionary.DefaultBlockSize until SetBlockSize overrides it, and
// logging is discarded until SetLogger is called.
func NewDirectory(root string) (*Directory, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("layerstore: creating directory %s: %w", root, err)
	}
	return &Directory{root: root, cache: NewMemory(), blockSize: dictionary.DefaultBlockSize, logger: storelog.Discard()}, nil
}

// SetBlockSize overrides the dictionary block size given to builders
// this store hands out.
func (d *Directory) SetBlockSize(n int) {
	if n > 0 {
		d.blockSize = n
	}
}

// SetLogger directs this store's debug logging (layer commit) at
// logger instead of discarding it.
func (d *Directory) SetLogger(logger *slog.Logger) {
	if logger != nil {
		d.logger = logger
	}
}

func (d *Directory) layerDir(name ids.Name) string {
	return filepath.Join(d.root, name.String())
}

func (d *Directory) GetLayer(ctx context.Context, name ids.Name) (*layer.Layer, error) {
	return d.load(name, make(map[ids.Name]*layer.Layer))
}

// load resolves name, recursively loading its parent chain first, and
// memoizes within a single call via seen so a long chain is parsed
// once even when shared by sibling ancestors.
func (d *Directory) load(name ids.Name, seen map[ids.Name]*layer.Layer) (*layer.Layer, error) {
	if l, err := d.cache.GetLayer(context.Background(), name); err == nil {
		return l, nil
	}
	if l, ok := seen[name]; ok {
		return l, nil
	}

	dir := d.layerDir(name)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, ErrNotFound
	}

	var parent *layer.Layer
	parentName, hasParent, err := readParent(dir)
	if err != nil {
		return nil, err
	}
	if hasParent {
		parent, err = d.load(parentName, seen)
		if err != nil {
			return nil, fmt.Errorf("layerstore: loading parent %s of %s: %w", parentName, name, err)
		}
	}

	// A layer's three dictionary files and its additions/removals list
	// are independent of each other on disk; fan their reads out so a
	// chain load pays for the slowest one, not the sum of all five.
	var nodeStrs, predStrs, valStrs []string
	var additions, removals []adjacency.SPOTriple
	g := new(errgroup.Group)
	g.Go(func() (err error) {
		nodeStrs, err = readStrings(filepath.Join(dir, "node_strings"))
		return err
	})
	g.Go(func() (err error) {
		predStrs, err = readStrings(filepath.Join(dir, "predicate_strings"))
		return err
	})
	g.Go(func() (err error) {
		valStrs, err = readStrings(filepath.Join(dir, "value_strings"))
		return err
	})
	g.Go(func() (err error) {
		additions, err = readTriples(filepath.Join(dir, "additions"))
		return err
	})
	if hasParent {
		g.Go(func() (err error) {
			removals, err = readTriples(filepath.Join(dir, "removals"))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var removalsPtr *layer.SPOTriples
	if hasParent {
		rr := toIDTriples(removals)
		removalsPtr = &rr
	}

	additionsIT := toIDTriples(additions)
	l := layer.New(layer.Spec{
		Name:          name,
		Parent:        parent,
		NodeDict:      dictionary.Build(nodeStrs, dictionary.DefaultBlockSize),
		PredicateDict: dictionary.Build(predStrs, dictionary.DefaultBlockSize),
		ValueDict:     dictionary.Build(valStrs, dictionary.DefaultBlockSize),
		Additions:     additionsIT,
		Removals:      removalsPtr,
	})

	seen[name] = l
	d.cache.PutLayer(context.Background(), l)
	return l, nil
}

func toIDTriples(triples []adjacency.SPOTriple) layer.SPOTriples {
	out := make(layer.SPOTriples, len(triples))
	for i, t := range triples {
		out[i] = triple.IDTriple{Subject: t.Subject, Predicate: t.Predicate, Object: t.Object}
	}
	return out
}

func (d *Directory) PutLayer(ctx context.Context, l *layer.Layer) error {
	for cur := l; cur != nil; cur = cur.Parent() {
		if err := d.putOne(cur); err != nil {
			return err
		}
	}
	return nil
}

func (d *Directory) putOne(l *layer.Layer) error {
	dir := d.layerDir(l.Name())
	if _, err := os.Stat(dir); err == nil {
		return nil // already persisted
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("layerstore: creating %s: %w", dir, err)
	}

	if l.Parent() != nil {
		if err := writeFile(filepath.Join(dir, "parent"), []byte(l.Parent().Name().String())); err != nil {
			return err
		}
	}

	nodes, predicates, values := l.OwnDictionaries()
	if err := writeStrings(filepath.Join(dir, "node_strings"), nodes.Strings()); err != nil {
		return err
	}
	if err := writeStrings(filepath.Join(dir, "predicate_strings"), predicates.Strings()); err != nil {
		return err
	}
	if err := writeStrings(filepath.Join(dir, "value_strings"), values.Strings()); err != nil {
		return err
	}
	if err := writeTriples(filepath.Join(dir, "additions"), l.OwnAdditions()); err != nil {
		return err
	}
	if removals, ok := l.OwnRemovals(); ok {
		if err := writeTriples(filepath.Join(dir, "removals"), removals); err != nil {
			return err
		}
	}
	d.logger.Debug("layer commit", "layer", l.Name().String(), "base", l.IsBase())
	return nil
}

func (d *Directory) NewBaseBuilder() *builder.Builder {
	b := builder.New(nil)
	b.SetBlockSize(d.blockSize)
	return b
}

func (d *Directory) NewChildBuilder(parent *layer.Layer) *builder.Builder {
	b := builder.New(parent)
	b.SetBlockSize(d.blockSize)
	return b
}

func readParent(dir string) (ids.Name, bool, error) {
	path := filepath.Join(dir, "parent")
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ids.Name{}, false, nil
	}
	if err != nil {
		return ids.Name{}, false, fmt.Errorf("layerstore: reading %s: %w", path, err)
	}
	name, err := ids.Parse(string(b))
	if err != nil {
		return ids.Name{}, false, fmt.Errorf("layerstore: %s: %w", path, err)
	}
	return name, true, nil
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("layerstore: writing %s: %w", path, err)
	}
	return nil
}

func writeStrings(path string, strs []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("layerstore: creating %s: %w", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, uint64(len(strs))); err != nil {
		return fmt.Errorf("layerstore: writing %s: %w", path, err)
	}
	for _, s := range strs {
		if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
			return fmt.Errorf("layerstore: writing %s: %w", path, err)
		}
		if _, err := w.WriteString(s); err != nil {
			return fmt.Errorf("layerstore: writing %s: %w", path, err)
		}
	}
	return w.Flush()
}

func readStrings(path string) ([]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("layerstore: opening %s: %w", path, err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("layerstore: reading %s: %w", path, err)
	}
	out := make([]string, 0, count)
	for i := uint64(0); i < count; i++ {
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("layerstore: reading %s: %w", path, err)
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("layerstore: reading %s: %w", path, err)
		}
		out = append(out, string(buf))
	}
	return out, nil
}

func writeTriples(path string, triples []adjacency.SPOTriple) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("layerstore: creating %s: %w", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, uint64(len(triples))); err != nil {
		return fmt.Errorf("layerstore: writing %s: %w", path, err)
	}
	for _, t := range triples {
		for _, v := range [3]uint64{t.Subject, t.Predicate, t.Object} {
			if err := binary.Write(w, binary.LittleEndian, v); err != nil {
				return fmt.Errorf("layerstore: writing %s: %w", path, err)
			}
		}
	}
	return w.Flush()
}

func readTriples(path string) ([]adjacency.SPOTriple, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("layerstore: opening %s: %w", path, err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("layerstore: reading %s: %w", path, err)
	}
	out := make([]adjacency.SPOTriple, count)
	for i := range out {
		var s, p, o uint64
		if err := binary.Read(r, binary.LittleEndian, &s); err != nil {
			return nil, fmt.Errorf("layerstore: reading %s: %w", path, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &p); err != nil {
			return nil, fmt.Errorf("layerstore: reading %s: %w", path, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &o); err != nil {
			return nil, fmt.Errorf("layerstore: reading %s: %w", path, err)
		}
		out[i] = adjacency.SPOTriple{Subject: s, Predicate: p, Object: o}
	}
	return out, nil
}
