// Package catalog loads and persists the ordered collection of hunting
// query definitions for one investigation kind. The file is the unit of
// persistence: a run reads it once, mutates hit counts in memory, and
// rewrites the whole document at the end.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Definition is one named, templated query plus attribution and the hit
// count of the last successful execution. Identity is position in the
// catalog; Name is a human label and not enforced unique.
type Definition struct {
	Name        string
	Query       string
	Source      string
	ResultCount int

	// extra carries fields this engine does not recognize. They are
	// round-tripped unchanged so a hand-maintained catalog never loses
	// annotations across a load/save cycle.
	extra map[string]json.RawMessage
}

// knownFields are the keys the engine owns in the catalog document.
var knownFields = map[string]bool{
	"Name":        true,
	"Query":       true,
	"Source":      true,
	"ResultCount": true,
}

// UnmarshalJSON decodes a definition, keeping unrecognized fields aside.
func (d *Definition) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	get := func(key string, dst any) error {
		msg, ok := raw[key]
		if !ok {
			return nil
		}
		return json.Unmarshal(msg, dst)
	}
	if err := get("Name", &d.Name); err != nil {
		return fmt.Errorf("field Name: %w", err)
	}
	if err := get("Query", &d.Query); err != nil {
		return fmt.Errorf("field Query: %w", err)
	}
	if err := get("Source", &d.Source); err != nil {
		return fmt.Errorf("field Source: %w", err)
	}
	if err := get("ResultCount", &d.ResultCount); err != nil {
		return fmt.Errorf("field ResultCount: %w", err)
	}

	d.extra = nil
	for k, v := range raw {
		if knownFields[k] {
			continue
		}
		if d.extra == nil {
			d.extra = make(map[string]json.RawMessage)
		}
		d.extra[k] = v
	}
	return nil
}

// MarshalJSON encodes the definition with the engine-owned fields first
// and any preserved unknown fields after, in sorted order.
func (d *Definition) MarshalJSON() ([]byte, error) {
	ordered := []struct {
		key string
		val any
	}{
		{"Name", d.Name},
		{"Query", d.Query},
		{"Source", d.Source},
		{"ResultCount", d.ResultCount},
	}

	var buf []byte
	buf = append(buf, '{')
	for i, f := range ordered {
		if i > 0 {
			buf = append(buf, ',')
		}
		k, _ := json.Marshal(f.key)
		v, err := json.Marshal(f.val)
		if err != nil {
			return nil, err
		}
		buf = append(buf, k...)
		buf = append(buf, ':')
		buf = append(buf, v...)
	}

	extraKeys := make([]string, 0, len(d.extra))
	for k := range d.extra {
		extraKeys = append(extraKeys, k)
	}
	sort.Strings(extraKeys)
	for _, k := range extraKeys {
		buf = append(buf, ',')
		kb, _ := json.Marshal(k)
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, d.extra[k]...)
	}

	buf = append(buf, '}')
	return buf, nil
}

// Catalog is an ordered sequence of definitions bound to a file path.
type Catalog struct {
	Path string
	Defs []*Definition
}

// Load parses the catalog document at path. A malformed document is
// fatal for the run that requested it: nothing executes without a
// readable catalog.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	var defs []*Definition
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return &Catalog{Path: path, Defs: defs}, nil
}

// Save rewrites the whole catalog document atomically: the new content
// is written to a temp file in the same directory and renamed over the
// original, so an interrupted save never leaves a half-written catalog.
func (c *Catalog) Save() error {
	data, err := json.MarshalIndent(c.Defs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(c.Path)
	tmp, err := os.CreateTemp(dir, ".catalog-*.json")
	if err != nil {
		return fmt.Errorf("create temp catalog: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp catalog: %w", err)
	}
	if err := os.Rename(tmpName, c.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace catalog %s: %w", c.Path, err)
	}
	return nil
}
