// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/gene1974/Neo4jKG/graph/db"
)

// Limits applied by FindRelationships.
const (
	DefaultRelationshipLimit = 10
	NoLimit                  = -1
)

// Aliases of the data model, so callers only need to import this package.
type (
	Node         = db.Node
	Relationship = db.Relationship
	Properties   = db.Properties
	Filter       = db.Filter
	ExactMatch   = db.ExactMatch
	Expression   = db.Expression
)

var (
	ErrEmptyLabel      = db.ErrEmptyLabel
	ErrEmptyType       = db.ErrEmptyType
	ErrInvalidFilter   = db.ErrInvalidFilter
	ErrInvalidArgument = db.ErrInvalidArgument
	ErrInvalidProperty = db.ErrInvalidProperty
	ErrNodeNotFound    = db.ErrNodeNotFound
)

// Graph is the facade over the graph database used to build the knowledge graph.
type Graph struct {
	db            db.GraphDatabase
	log           *slog.Logger
	alreadyClosed bool
}

// NewGraph accepts a graph database that stores the knowledge graph. A nil logger discards the log.
func NewGraph(database db.GraphDatabase, l *slog.Logger) *Graph {
	if database == nil {
		return nil
	}
	if l == nil {
		l = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Graph{
		db:  database,
		log: l.With("graphdb", database.String()),
	}
}

// Close will close the graph database being used by the Graph receiver.
func (g *Graph) Close(ctx context.Context) error {
	if g.alreadyClosed {
		return nil
	}

	g.alreadyClosed = true
	return g.db.Close(ctx)
}

// String returns the name of the graph database used by the Graph.
func (g *Graph) String() string {
	return g.db.String()
}

// CreateNode adds a new node, even when an identical node already exists.
// It returns the properties that were written along with the node.
func (g *Graph) CreateNode(ctx context.Context, label string, props Properties) (Properties, *Node, error) {
	node, err := g.db.CreateNode(ctx, label, props.Clone())
	if err != nil {
		return nil, nil, err
	}

	g.log.Debug("created node", "id", node.ID, "label", label)
	return node.Properties.Clone(), node, nil
}

// FindNodes returns the nodes with the label that satisfy the filter.
// A nil filter returns every node with the label.
func (g *Graph) FindNodes(ctx context.Context, label string, filter Filter) ([]*Node, error) {
	if err := g.checkFilter(filter); err != nil {
		return nil, err
	}

	return g.db.FindNodes(ctx, label, filter)
}

// NodeExists returns true when at least one node with the label satisfies the filter.
func (g *Graph) NodeExists(ctx context.Context, label string, filter Filter) (bool, error) {
	nodes, err := g.FindNodes(ctx, label, filter)
	if err != nil {
		return false, err
	}

	return len(nodes) != 0, nil
}

// NodeProperties returns the properties of the first matching node, or an empty map.
func (g *Graph) NodeProperties(ctx context.Context, label string, filter Filter) (Properties, error) {
	nodes, err := g.FindNodes(ctx, label, filter)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return Properties{}, nil
	}

	return nodes[0].Properties.Clone(), nil
}

// UpdateProperties merges the properties into the node, overwriting the matching keys.
func (g *Graph) UpdateProperties(ctx context.Context, node *Node, props Properties) error {
	if node == nil {
		return fmt.Errorf("UpdateProperties: %w: nil node", db.ErrInvalidArgument)
	}

	if err := g.db.UpdateProperties(ctx, node, props.Clone()); err != nil {
		return err
	}

	g.log.Debug("updated node properties", "id", node.ID, "keys", props.Keys())
	return nil
}

// CreateRelationship adds a new relationship from node1 to node2, even when an identical one exists.
func (g *Graph) CreateRelationship(ctx context.Context, node1 *Node, rtype string, node2 *Node, props Properties) (*Relationship, error) {
	if node1 == nil || node2 == nil {
		return nil, fmt.Errorf("CreateRelationship: %w: nil node", db.ErrInvalidArgument)
	}

	rel, err := g.db.CreateRelationship(ctx, node1, rtype, node2, props.Clone())
	if err != nil {
		return nil, err
	}

	g.log.Debug("created relationship", "id", rel.ID, "type", rtype, "from", node1.ID, "to", node2.ID)
	return rel, nil
}

// FindRelationships returns the relationships touching a single node in either direction,
// or those going from the first to the second of two nodes. An empty rtype matches any type.
// A zero limit selects DefaultRelationshipLimit and a negative limit returns all the results.
func (g *Graph) FindRelationships(ctx context.Context, nodes []*Node, rtype string, limit int) ([]*Relationship, error) {
	if len(nodes) > 2 {
		return nil, fmt.Errorf("FindRelationships: %w: expected one or two nodes, got %d", db.ErrInvalidArgument, len(nodes))
	}

	if limit == 0 {
		limit = DefaultRelationshipLimit
	}
	return g.db.FindRelationships(ctx, nodes, rtype, limit)
}

// FindAllRelationships returns every relationship touching the node, of any type and in either direction.
func (g *Graph) FindAllRelationships(ctx context.Context, node *Node) ([]*Relationship, error) {
	if node == nil {
		return nil, fmt.Errorf("FindAllRelationships: %w: nil node", db.ErrInvalidArgument)
	}

	return g.FindRelationships(ctx, []*Node{node}, "", NoLimit)
}

// DecomposeRelationship returns the start node, end node and type of the relationship.
func DecomposeRelationship(rel *Relationship) (*Node, *Node, string) {
	if rel == nil {
		return nil, nil, ""
	}

	return rel.Start, rel.End, rel.Type
}

// Counts returns the number of nodes and relationships in the graph.
func (g *Graph) Counts(ctx context.Context) (int64, int64, error) {
	return g.db.Counts(ctx)
}

// dumper is implemented by the stores that can list their raw contents.
type dumper interface {
	DumpGraph(ctx context.Context) string
}

// DumpGraph returns the raw contents of the store, one statement per line.
// Only the embedded stores support it.
func (g *Graph) DumpGraph(ctx context.Context) (string, error) {
	d, ok := g.db.(dumper)
	if !ok {
		return "", fmt.Errorf("%s: DumpGraph: %w: the store does not support dumps", g.db.String(), ErrInvalidArgument)
	}

	return d.DumpGraph(ctx), nil
}

// WipeGraph irrecoverably deletes every node and relationship in the graph.
func (g *Graph) WipeGraph(ctx context.Context) error {
	if err := g.db.WipeGraph(ctx); err != nil {
		return err
	}

	g.log.Info("wiped the graph")
	return nil
}

func (g *Graph) checkFilter(filter Filter) error {
	switch filter.(type) {
	case nil, db.ExactMatch, db.Expression:
		return nil
	}

	g.log.Warn("invalid filter type", "type", fmt.Sprintf("%T", filter))
	return fmt.Errorf("FindNodes: %w, got %T", db.ErrInvalidFilter, filter)
}
