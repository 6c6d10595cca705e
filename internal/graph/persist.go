package graph

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"
)

// SchemaVersion is bumped whenever the persisted encoding changes shape.
// A cache file written by a different schema version is discarded rather
// than migrated.
const SchemaVersion = 1

// persistedVertex and persistedEdge are the gob-encoded wire shapes;
// kept distinct from Graph's internal maps so the on-disk format doesn't
// silently change if the in-memory representation is refactored.
type persistedVertex struct {
	Path  string
	Mtime Timestamp
}

type persistedEdge struct {
	From string
	To   string
}

type persistedGraph struct {
	SchemaVersion int
	IncludeRoots  []string
	Vertices      []persistedVertex
	Edges         []persistedEdge
}

// Load restores a graph previously persisted under includeRoots at path.
// If the file is missing, corrupted, built with a different schema
// version, or built with a different include-roots list, Load deletes
// the file (if present) and returns a fresh empty graph with ok=false.
// Load failures are recoverable, never fatal, and always leave the
// caller with a valid (possibly empty) graph.
func Load(path string, includeRoots []string) (g *Graph, ok bool, err error) {
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		return New(), false, nil
	}

	pg, decodeErr := decode(data)
	if decodeErr != nil {
		os.Remove(path)
		return New(), false, fmt.Errorf("decoding cache at %s: %w", path, decodeErr)
	}

	if pg.SchemaVersion != SchemaVersion || !sameIncludeRoots(pg.IncludeRoots, includeRoots) {
		os.Remove(path)
		return New(), false, nil
	}

	g = New()
	for _, v := range pg.Vertices {
		g.UpsertVertex(v.Path, v.Mtime)
	}
	for _, e := range pg.Edges {
		g.AddEdge(e.From, e.To)
	}
	return g, true, nil
}

// Save persists g to path under includeRoots, using an opaque
// gob-encoded, zstd-compressed binary format written atomically
// (temp file + rename) so a crash mid-write leaves the previous file, or
// nothing, never a torn one.
func Save(path string, g *Graph, includeRoots []string) error {
	pg := persistedGraph{
		SchemaVersion: SchemaVersion,
		IncludeRoots:  append([]string(nil), includeRoots...),
	}
	for path, mtime := range g.vertices {
		pg.Vertices = append(pg.Vertices, persistedVertex{Path: path, Mtime: mtime})
	}
	sort.Slice(pg.Vertices, func(i, j int) bool { return pg.Vertices[i].Path < pg.Vertices[j].Path })
	for _, e := range g.Edges() {
		pg.Edges = append(pg.Edges, persistedEdge{From: e.From, To: e.To})
	}
	sort.Slice(pg.Edges, func(i, j int) bool {
		if pg.Edges[i].From != pg.Edges[j].From {
			return pg.Edges[i].From < pg.Edges[j].From
		}
		return pg.Edges[i].To < pg.Edges[j].To
	})

	data, err := encode(pg)
	if err != nil {
		return fmt.Errorf("encoding graph cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing tmp cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming cache file into place: %w", err)
	}
	return nil
}

func encode(pg persistedGraph) ([]byte, error) {
	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(pg); err != nil {
		return nil, err
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(raw.Bytes(), nil), nil
}

func decode(data []byte) (persistedGraph, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return persistedGraph{}, err
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return persistedGraph{}, err
	}

	var pg persistedGraph
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&pg); err != nil {
		return persistedGraph{}, err
	}
	return pg, nil
}

func sameIncludeRoots(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
