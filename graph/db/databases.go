// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	ErrEmptyLabel      = errors.New("empty label")
	ErrEmptyType       = errors.New("empty relationship type")
	ErrInvalidFilter   = errors.New("invalid filter: expected an exact match or an expression")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidProperty = errors.New("invalid property value")
	ErrNodeNotFound    = errors.New("node does not exist")
)

// Properties maps property names to scalar values.
type Properties map[string]interface{}

// Keys returns the property names in sorted order.
func (p Properties) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a copy of the receiver that is never nil.
func (p Properties) Clone() Properties {
	c := make(Properties, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

// Merge overwrites the receiver's values with the ones found in update.
func (p Properties) Merge(update Properties) {
	for k, v := range update {
		p[k] = v
	}
}

// Node represents a node in the graph.
type Node struct {
	ID         string
	Label      string
	Properties Properties
}

// Relationship represents a directed edge in the graph.
type Relationship struct {
	ID         string
	Type       string
	Start      *Node
	End        *Node
	Properties Properties
}

// Filter selects nodes within a label. The implementations are ExactMatch and Expression.
type Filter interface {
	filter()
}

// ExactMatch selects the nodes holding every one of the provided property values.
type ExactMatch Properties

func (ExactMatch) filter() {}

// Expression is a Cypher predicate over the node placeholder '_', e.g. "_.age > 20".
type Expression string

func (Expression) filter() {}

// GraphDatabase is the interface for storage of the knowledge graph.
type GraphDatabase interface {
	fmt.Stringer

	// Graph operations for adding and querying nodes
	CreateNode(ctx context.Context, label string, props Properties) (*Node, error)
	// A nil filter selects every node with the label, and an empty label selects any label
	FindNodes(ctx context.Context, label string, filter Filter) ([]*Node, error)
	// Merges props into the stored node and refreshes node.Properties
	UpdateProperties(ctx context.Context, node *Node, props Properties) error

	// Graph operations for adding and querying relationships
	CreateRelationship(ctx context.Context, from *Node, rtype string, to *Node, props Properties) (*Relationship, error)
	// Zero nodes selects all relationships, one node selects both directions and two nodes
	// select the relationships from the first to the second. A limit <= 0 is unlimited.
	FindRelationships(ctx context.Context, nodes []*Node, rtype string, limit int) ([]*Relationship, error)

	// Returns the number of nodes and relationships in the graph
	Counts(ctx context.Context) (int64, int64, error)
	// Removes every node and relationship
	WipeGraph(ctx context.Context) error

	// Signals for the database to close
	Close(ctx context.Context) error
}

// NormalizeProperties returns a copy of props with integer and float kinds widened
// to int64 and float64. Values that are not scalars cause an ErrInvalidProperty.
func NormalizeProperties(props Properties) (Properties, error) {
	norm := make(Properties, len(props))

	for k, v := range props {
		if k == "" {
			return nil, fmt.Errorf("%w: empty property name", ErrInvalidProperty)
		}

		nv, err := normalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidProperty, k, err)
		}
		norm[k] = nv
	}
	return norm, nil
}

func normalizeValue(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case string, bool, int64, float64, time.Time:
		return x, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint:
		return uintToInt64(uint64(x))
	case uint64:
		return uintToInt64(x)
	case float32:
		return float64(x), nil
	}
	return nil, fmt.Errorf("unsupported type %T", v)
}

func uintToInt64(x uint64) (interface{}, error) {
	if x > math.MaxInt64 {
		return nil, fmt.Errorf("%d overflows a 64-bit signed integer", x)
	}
	return int64(x), nil
}
