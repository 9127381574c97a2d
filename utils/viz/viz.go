// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package viz

import (
	"context"
	"fmt"

	"github.com/gene1974/Neo4jKG/graph"
	"github.com/gene1974/Neo4jKG/utils/afmt"
)

// Edge represents a knowledge graph relationship in the viz package.
type Edge struct {
	From, To int
	Label    string
	Title    string
}

// Node represents a knowledge graph node in the viz package.
type Node struct {
	ID    int
	Type  string
	Label string
	Title string
}

// The property used to name a node, when present.
const nameProperty = "name"

// VizData returns the current state of the Graph as viz package Nodes and Edges.
// An empty label includes the nodes of every label.
func VizData(ctx context.Context, g *graph.Graph, label string) ([]Node, []Edge, error) {
	nodes, err := g.FindNodes(ctx, label, nil)
	if err != nil {
		return nil, nil, err
	}

	var viznodes []Node
	nodeToIdx := make(map[string]int, len(nodes))
	for idx, n := range nodes {
		nodeToIdx[n.ID] = idx
		viznodes = append(viznodes, newNode(idx, n))
	}

	rels, err := g.FindRelationships(ctx, nil, "", graph.NoLimit)
	if err != nil {
		return nil, nil, err
	}

	var vizedges []Edge
	for _, rel := range rels {
		start, end, rtype := graph.DecomposeRelationship(rel)

		from, found := nodeToIdx[start.ID]
		if !found {
			continue
		}
		to, found := nodeToIdx[end.ID]
		if !found {
			continue
		}

		title := rtype
		if len(rel.Properties) > 0 {
			title = fmt.Sprintf("%s %s", rtype, afmt.FormatProperties(rel.Properties, false))
		}

		vizedges = append(vizedges, Edge{
			From:  from,
			To:    to,
			Label: rtype,
			Title: title,
		})
	}
	return viznodes, vizedges, nil
}

func newNode(idx int, n *graph.Node) Node {
	key := n.ID
	if name, ok := n.Properties[nameProperty]; ok {
		key = fmt.Sprint(name)
	}

	return Node{
		ID:    idx,
		Type:  n.Label,
		Label: key,
		Title: fmt.Sprintf("%s: %s", n.Label, afmt.FormatProperties(n.Properties, false)),
	}
}

// typeIndexes numbers the node types in order of appearance, so each type keeps one color.
func typeIndexes(nodes []Node) map[string]int {
	types := make(map[string]int)

	for _, n := range nodes {
		if _, found := types[n.Type]; !found {
			types[n.Type] = len(types)
		}
	}
	return types
}
