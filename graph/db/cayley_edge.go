// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"context"
	"fmt"

	"github.com/caffix/stringset"
	"github.com/cayleygraph/cayley"
	"github.com/cayleygraph/quad"
	"github.com/google/uuid"
)

// CreateRelationship implements the GraphDatabase interface.
func (g *CayleyGraph) CreateRelationship(ctx context.Context, from *Node, rtype string, to *Node, props Properties) (*Relationship, error) {
	g.Lock()
	defer g.Unlock()

	if rtype == "" {
		return nil, fmt.Errorf("%s: CreateRelationship: %w", g.String(), ErrEmptyType)
	}
	if from == nil || to == nil {
		return nil, fmt.Errorf("%s: CreateRelationship: %w: missing node", g.String(), ErrInvalidArgument)
	}

	start, err := g.readNode(ctx, from.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: CreateRelationship: Invalid from node: %w", g.String(), err)
	}
	end, err := g.readNode(ctx, to.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: CreateRelationship: Invalid to node: %w", g.String(), err)
	}

	norm, err := NormalizeProperties(props)
	if err != nil {
		return nil, fmt.Errorf("%s: CreateRelationship: %w", g.String(), err)
	}

	id := relPrefix + uuid.NewString()
	quads, err := propertyQuads(id, norm)
	if err != nil {
		return nil, fmt.Errorf("%s: CreateRelationship: %w", g.String(), err)
	}

	t := cayley.NewTransaction()
	t.AddQuad(quad.Make(quad.IRI(id), quad.IRI(predType), quad.String(rtype), nil))
	t.AddQuad(quad.Make(quad.IRI(id), quad.IRI(predFrom), quad.IRI(start.ID), nil))
	t.AddQuad(quad.Make(quad.IRI(id), quad.IRI(predTo), quad.IRI(end.ID), nil))
	for _, q := range quads {
		t.AddQuad(q)
	}
	if err := g.store.ApplyTransaction(t); err != nil {
		return nil, err
	}

	return &Relationship{
		ID:         id,
		Type:       rtype,
		Start:      start,
		End:        end,
		Properties: norm,
	}, nil
}

// FindRelationships implements the GraphDatabase interface.
func (g *CayleyGraph) FindRelationships(ctx context.Context, nodes []*Node, rtype string, limit int) ([]*Relationship, error) {
	g.Lock()
	defer g.Unlock()

	for _, n := range nodes {
		if n == nil || n.ID == "" {
			return nil, fmt.Errorf("%s: FindRelationships: %w: empty node reference", g.String(), ErrInvalidArgument)
		}
	}

	base := cayley.StartPath(g.store)
	if rtype == "" {
		base = base.Has(quad.IRI(predType))
	} else {
		base = base.Has(quad.IRI(predType), quad.String(rtype))
	}

	var paths []*cayley.Path
	switch len(nodes) {
	case 0:
		paths = append(paths, base)
	case 1:
		id := quad.IRI(nodes[0].ID)

		paths = append(paths, base.Has(quad.IRI(predFrom), id), base.Has(quad.IRI(predTo), id))
	case 2:
		from := quad.IRI(nodes[0].ID)
		to := quad.IRI(nodes[1].ID)

		paths = append(paths, base.Has(quad.IRI(predFrom), from).Has(quad.IRI(predTo), to))
	default:
		return nil, fmt.Errorf("%s: FindRelationships: %w: expected at most two nodes, got %d",
			g.String(), ErrInvalidArgument, len(nodes))
	}

	var ids []string
	filter := stringset.New()
	defer filter.Close()

	for _, p := range paths {
		found, err := g.elementIDs(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("%s: FindRelationships: %v", g.String(), err)
		}

		for _, id := range found {
			if !filter.Has(id) {
				filter.Insert(id)
				ids = append(ids, id)
			}
		}
	}

	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	rels := make([]*Relationship, 0, len(ids))
	for _, id := range ids {
		rel, err := g.readRelationship(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%s: FindRelationships: %w", g.String(), err)
		}
		rels = append(rels, rel)
	}
	return rels, nil
}

func (g *CayleyGraph) readRelationship(ctx context.Context, id string) (*Relationship, error) {
	refs, props, err := g.elementQuads(ctx, id)
	if err != nil {
		return nil, err
	}

	rtype, found := refs[predType]
	if !found {
		return nil, fmt.Errorf("relationship %s does not exist", id)
	}

	start, err := g.readNode(ctx, refs[predFrom])
	if err != nil {
		return nil, err
	}

	end, err := g.readNode(ctx, refs[predTo])
	if err != nil {
		return nil, err
	}

	return &Relationship{
		ID:         id,
		Type:       rtype,
		Start:      start,
		End:        end,
		Properties: props,
	}, nil
}
