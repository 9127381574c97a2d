// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/caffix/stringset"
	"github.com/cayleygraph/cayley"
	"github.com/cayleygraph/cayley/clog"
	"github.com/cayleygraph/cayley/graph"
	_ "github.com/cayleygraph/cayley/graph/kv/bolt" // Used by the cayley package
	_ "github.com/cayleygraph/cayley/graph/sql/mysql"
	_ "github.com/cayleygraph/cayley/graph/sql/postgres"
	"github.com/cayleygraph/quad"
)

// Predicates and IRI prefixes of the quads that make up the knowledge graph.
const (
	predLabel  = "label"
	predType   = "type"
	predFrom   = "from"
	predTo     = "to"
	propPrefix = "prop:"
	nodePrefix = "node:"
	relPrefix  = "rel:"
)

// CayleyGraph is the object for managing a knowledge graph kept in a cayley quad store.
type CayleyGraph struct {
	sync.Mutex
	store *cayley.Handle
	name  string
	path  string
}

// NewCayleyGraph returns an intialized CayleyGraph object. The system can be "memory",
// "local" (a bolt store kept in the path directory), "postgres" or "mysql" (the path is
// the connection string). Options have the form "name=value,name=value".
func NewCayleyGraph(system, path, options string) (*CayleyGraph, error) {
	if system == "memory" {
		if g := NewCayleyGraphMemory(); g != nil {
			return g, nil
		}
		return nil, fmt.Errorf("memory: NewCayleyGraph: Failed to create the memory store")
	}

	// Some globally applicable things
	graph.IgnoreMissing = true
	graph.IgnoreDuplicates = true

	empty := true
	name := system
	opts := make(graph.Options)

	clog.SetLogger(nil)
	switch system {
	case "local":
		system = "bolt"
	case "mysql":
		empty = false
		opts["flavor"] = system
		system = "sql"
	case "postgres":
		empty = false
		opts["flavor"] = system
		system = "sql"
	default:
		return nil, fmt.Errorf("%s: NewCayleyGraph: Unsupported system", name)
	}

	for _, opt := range strings.Split(options, ",") {
		s := strings.Split(opt, "=")
		if len(s) != 2 {
			continue
		}

		empty = false
		key := strings.TrimSpace(s[0])
		value := strings.TrimSpace(s[1])
		switch value {
		case "true":
			opts[key] = true
		case "false":
			opts[key] = false
		default:
			opts[key] = value
		}
	}
	if empty {
		opts = nil
	}

	if path == "" {
		return nil, fmt.Errorf("%s: NewCayleyGraph: Empty path argument", name)
	}
	if system == "bolt" {
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, fmt.Errorf("%s: NewCayleyGraph: %v", name, err)
		}
	}

	_ = graph.InitQuadStore(system, path, opts)
	store, err := cayley.NewGraph(system, path, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: NewCayleyGraph: %v", name, err)
	}

	return &CayleyGraph{
		store: store,
		name:  name,
		path:  path,
	}, nil
}

// NewCayleyGraphMemory creates a temporary graph in memory.
func NewCayleyGraphMemory() *CayleyGraph {
	// Some globally applicable things
	graph.IgnoreMissing = true
	graph.IgnoreDuplicates = true

	store, err := cayley.NewMemoryGraph()
	if err != nil {
		return nil
	}

	return &CayleyGraph{
		store: store,
		name:  "memory",
		path:  "",
	}
}

// Close implements the GraphDatabase interface.
func (g *CayleyGraph) Close(ctx context.Context) error {
	return g.store.Close()
}

// String returns a description for the CayleyGraph object.
func (g *CayleyGraph) String() string {
	return g.name
}

// Counts implements the GraphDatabase interface.
func (g *CayleyGraph) Counts(ctx context.Context) (int64, int64, error) {
	g.Lock()
	defer g.Unlock()

	nodes, err := g.elementIDs(ctx, cayley.StartPath(g.store).Has(quad.IRI(predLabel)))
	if err != nil {
		return 0, 0, fmt.Errorf("%s: Counts: %v", g.String(), err)
	}

	rels, err := g.elementIDs(ctx, cayley.StartPath(g.store).Has(quad.IRI(predType)))
	if err != nil {
		return 0, 0, fmt.Errorf("%s: Counts: %v", g.String(), err)
	}

	return int64(len(nodes)), int64(len(rels)), nil
}

// WipeGraph implements the GraphDatabase interface.
func (g *CayleyGraph) WipeGraph(ctx context.Context) error {
	g.Lock()
	defer g.Unlock()

	// Build the transaction that will perform the deletion
	t := cayley.NewTransaction()
	p := cayley.StartPath(g.store).Tag("subject").OutWithTags([]string{"predicate"}).Tag("object")
	err := p.Iterate(ctx).TagValues(nil, func(m map[string]quad.Value) {
		t.RemoveQuad(quad.Make(m["subject"], m["predicate"], m["object"], nil))
	})
	if err != nil {
		return fmt.Errorf("%s: WipeGraph: Failed to iterate over the quads: %v", g.String(), err)
	}
	// Attempt to perform the deletion transaction
	return g.store.ApplyTransaction(t)
}

// DumpGraph returns a string containing all data currently in the graph.
func (g *CayleyGraph) DumpGraph(ctx context.Context) string {
	g.Lock()
	defer g.Unlock()

	var out string
	p := cayley.StartPath(g.store).Tag("subject").OutWithTags([]string{"predicate"}).Tag("object")
	err := p.Iterate(ctx).TagValues(nil, func(m map[string]quad.Value) {
		out += fmt.Sprintf("%s -> %s -> %s\n", m["subject"], m["predicate"], m["object"])
	})
	if err != nil {
		return ""
	}

	return out
}

// elementIDs returns the distinct IRIs produced by the path, in iteration order.
func (g *CayleyGraph) elementIDs(ctx context.Context, p *cayley.Path) ([]string, error) {
	var ids []string

	filter := stringset.New()
	defer filter.Close()

	err := p.Iterate(ctx).EachValue(nil, func(value quad.Value) {
		id := valToStr(value)

		if !filter.Has(id) {
			filter.Insert(id)
			ids = append(ids, id)
		}
	})
	return ids, err
}

// elementQuads returns the label or type, the property values and the IRI valued
// predicates of the element identified by id.
func (g *CayleyGraph) elementQuads(ctx context.Context, id string) (map[string]string, Properties, error) {
	refs := make(map[string]string)
	props := make(Properties)

	p := cayley.StartPath(g.store, quad.IRI(id)).OutWithTags([]string{"predicate"}).Tag("object")
	err := p.Iterate(ctx).TagValues(nil, func(m map[string]quad.Value) {
		pred := valToStr(m["predicate"])

		if strings.HasPrefix(pred, propPrefix) {
			props[strings.TrimPrefix(pred, propPrefix)] = quadToValue(m["object"])
		} else {
			refs[pred] = valToStr(m["object"])
		}
	})
	return refs, props, err
}

func (g *CayleyGraph) elementExists(ctx context.Context, id, pred string) bool {
	p := cayley.StartPath(g.store, quad.IRI(id)).Has(quad.IRI(pred))

	first, err := p.Iterate(ctx).FirstValue(nil)
	return err == nil && first != nil
}

func propertyQuads(id string, props Properties) ([]quad.Quad, error) {
	var quads []quad.Quad

	for _, k := range props.Keys() {
		v, err := valueToQuad(props[k])
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidProperty, k, err)
		}

		quads = append(quads, quad.Make(quad.IRI(id), quad.IRI(propPrefix+k), v, nil))
	}
	return quads, nil
}

func valueToQuad(v interface{}) (quad.Value, error) {
	switch x := v.(type) {
	case string:
		return quad.String(x), nil
	case bool:
		return quad.Bool(x), nil
	case int64:
		return quad.Int(x), nil
	case float64:
		return quad.Float(x), nil
	case time.Time:
		return quad.Time(x), nil
	}
	return nil, fmt.Errorf("unsupported type %T", v)
}

func quadToValue(v quad.Value) interface{} {
	switch x := v.(type) {
	case quad.String:
		return string(x)
	case quad.Bool:
		return bool(x)
	case quad.Int:
		return int64(x)
	case quad.Float:
		return float64(x)
	case quad.Time:
		return time.Time(x)
	}
	return valToStr(v)
}

func valToStr(v quad.Value) string {
	var result string

	switch x := v.(type) {
	case quad.IRI:
		result = strings.TrimRight(strings.TrimLeft(string(x), "<"), ">")
	case quad.String:
		result = string(x)
	default:
		if v != nil {
			result = quad.ToString(v)
		}
	}
	return result
}
