// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"context"
	"fmt"

	"github.com/cayleygraph/cayley"
	"github.com/cayleygraph/quad"
	"github.com/google/uuid"
)

// CreateNode implements the GraphDatabase interface.
func (g *CayleyGraph) CreateNode(ctx context.Context, label string, props Properties) (*Node, error) {
	g.Lock()
	defer g.Unlock()

	if label == "" {
		return nil, fmt.Errorf("%s: CreateNode: %w", g.String(), ErrEmptyLabel)
	}

	norm, err := NormalizeProperties(props)
	if err != nil {
		return nil, fmt.Errorf("%s: CreateNode: %w", g.String(), err)
	}

	id := nodePrefix + uuid.NewString()
	quads, err := propertyQuads(id, norm)
	if err != nil {
		return nil, fmt.Errorf("%s: CreateNode: %w", g.String(), err)
	}

	t := cayley.NewTransaction()
	t.AddQuad(quad.Make(quad.IRI(id), quad.IRI(predLabel), quad.String(label), nil))
	for _, q := range quads {
		t.AddQuad(q)
	}
	if err := g.store.ApplyTransaction(t); err != nil {
		return nil, err
	}

	return &Node{
		ID:         id,
		Label:      label,
		Properties: norm,
	}, nil
}

// FindNodes implements the GraphDatabase interface.
func (g *CayleyGraph) FindNodes(ctx context.Context, label string, filter Filter) ([]*Node, error) {
	g.Lock()
	defer g.Unlock()

	p := cayley.StartPath(g.store)
	if label == "" {
		p = p.Has(quad.IRI(predLabel))
	} else {
		p = p.Has(quad.IRI(predLabel), quad.String(label))
	}

	var match *expression
	// Numbers are compared by value after the query, since quad.Int(30) and quad.Float(30) differ
	numbers := make(Properties)
	switch f := filter.(type) {
	case nil:
	case ExactMatch:
		norm, err := NormalizeProperties(Properties(f))
		if err != nil {
			return nil, fmt.Errorf("%s: FindNodes: %w", g.String(), err)
		}

		for _, k := range norm.Keys() {
			if _, ok := toFloat64(norm[k]); ok {
				numbers[k] = norm[k]
				p = p.Has(quad.IRI(propPrefix + k))
				continue
			}

			v, err := valueToQuad(norm[k])
			if err != nil {
				return nil, fmt.Errorf("%s: FindNodes: %w: %s: %v", g.String(), ErrInvalidProperty, k, err)
			}
			p = p.Has(quad.IRI(propPrefix+k), v)
		}
	case Expression:
		var err error

		match, err = compileExpression(string(f))
		if err != nil {
			return nil, fmt.Errorf("%s: FindNodes: %w", g.String(), err)
		}
	default:
		return nil, fmt.Errorf("%s: FindNodes: %w, got %T", g.String(), ErrInvalidFilter, filter)
	}

	ids, err := g.elementIDs(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("%s: FindNodes: %v", g.String(), err)
	}

	nodes := make([]*Node, 0, len(ids))
	for _, id := range ids {
		node, err := g.readNode(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%s: FindNodes: %w", g.String(), err)
		}

		if !numbersEqual(node.Properties, numbers) {
			continue
		}
		if match == nil || match.Matches(node.Properties) {
			nodes = append(nodes, node)
		}
	}
	return nodes, nil
}

func numbersEqual(props, numbers Properties) bool {
	for k, v := range numbers {
		if eq, ok := valuesEqual(props[k], v).(bool); !ok || !eq {
			return false
		}
	}
	return true
}

// UpdateProperties implements the GraphDatabase interface.
func (g *CayleyGraph) UpdateProperties(ctx context.Context, node *Node, props Properties) error {
	g.Lock()
	defer g.Unlock()

	if node == nil || node.ID == "" {
		return fmt.Errorf("%s: UpdateProperties: %w: empty node reference", g.String(), ErrInvalidArgument)
	}
	if !g.elementExists(ctx, node.ID, predLabel) {
		return fmt.Errorf("%s: UpdateProperties: %w: %s", g.String(), ErrNodeNotFound, node.ID)
	}

	norm, err := NormalizeProperties(props)
	if err != nil {
		return fmt.Errorf("%s: UpdateProperties: %w", g.String(), err)
	}

	quads, err := propertyQuads(node.ID, norm)
	if err != nil {
		return fmt.Errorf("%s: UpdateProperties: %w", g.String(), err)
	}

	// Build the transaction that replaces the old values of the updated properties
	t := cayley.NewTransaction()
	for _, q := range quads {
		old := cayley.StartPath(g.store, q.Subject).Out(q.Predicate)

		err := old.Iterate(ctx).EachValue(nil, func(value quad.Value) {
			if value.String() != q.Object.String() {
				t.RemoveQuad(quad.Make(q.Subject, q.Predicate, value, nil))
			}
		})
		if err != nil {
			return fmt.Errorf("%s: UpdateProperties: %v", g.String(), err)
		}

		t.AddQuad(q)
	}
	if err := g.store.ApplyTransaction(t); err != nil {
		return err
	}

	updated, err := g.readNode(ctx, node.ID)
	if err != nil {
		return fmt.Errorf("%s: UpdateProperties: %w", g.String(), err)
	}

	node.Label = updated.Label
	node.Properties = updated.Properties
	return nil
}

func (g *CayleyGraph) readNode(ctx context.Context, id string) (*Node, error) {
	refs, props, err := g.elementQuads(ctx, id)
	if err != nil {
		return nil, err
	}

	label, found := refs[predLabel]
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	return &Node{
		ID:         id,
		Label:      label,
		Properties: props,
	}, nil
}
