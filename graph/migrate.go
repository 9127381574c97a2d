// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"context"
	"fmt"
)

// Migrate copies every node and relationship from the receiver Graph into another.
// The copies receive new identifiers and the counts of migrated elements are returned.
func (g *Graph) Migrate(ctx context.Context, to *Graph) (int, int, error) {
	if to == nil {
		return 0, 0, fmt.Errorf("Migrate: %w: nil destination graph", ErrInvalidArgument)
	}

	nodes, err := g.FindNodes(ctx, "", nil)
	if err != nil {
		return 0, 0, err
	}

	// Maps the identifiers in the receiver to the nodes created in the destination
	ids := make(map[string]*Node, len(nodes))
	for _, node := range nodes {
		if _, err := g.migrateNode(ctx, node, ids, to); err != nil {
			return len(ids), 0, err
		}
	}

	rels, err := g.FindRelationships(ctx, nil, "", NoLimit)
	if err != nil {
		return len(ids), 0, err
	}

	var count int
	for _, rel := range rels {
		start, err := g.migrateNode(ctx, rel.Start, ids, to)
		if err != nil {
			return len(ids), count, err
		}

		end, err := g.migrateNode(ctx, rel.End, ids, to)
		if err != nil {
			return len(ids), count, err
		}

		if _, err := to.CreateRelationship(ctx, start, rel.Type, end, rel.Properties); err != nil {
			return len(ids), count, err
		}
		count++
	}

	g.log.Info("migrated the graph", "to", to.String(), "nodes", len(ids), "relationships", count)
	return len(ids), count, nil
}

func (g *Graph) migrateNode(ctx context.Context, node *Node, ids map[string]*Node, to *Graph) (*Node, error) {
	if tonode, found := ids[node.ID]; found {
		return tonode, nil
	}

	_, tonode, err := to.CreateNode(ctx, node.Label, node.Properties)
	if err != nil {
		return nil, err
	}

	ids[node.ID] = tonode
	return tonode, nil
}
