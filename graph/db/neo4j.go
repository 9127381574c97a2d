// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// DefaultNeo4jUser is used when a password is provided without a username.
const DefaultNeo4jUser = "neo4j"

// queryFunc executes a single Cypher statement and returns all the records it produced.
type queryFunc func(ctx context.Context, cypher string, params map[string]interface{}, write bool) ([]*neo4j.Record, error)

// Neo4jGraph is the client object for a Neo4j graph database connection.
type Neo4jGraph struct {
	driver neo4j.DriverWithContext
	dbname string
	url    string
	run    queryFunc
}

// NewNeo4jGraph returns a client object that implements the GraphDatabase interface.
// The url param typically looks like the following: bolt://localhost:7687
func NewNeo4jGraph(ctx context.Context, url, username, password, dbname string) (*Neo4jGraph, error) {
	auth := neo4j.NoAuth()
	if password != "" {
		if username == "" {
			username = DefaultNeo4jUser
		}
		auth = neo4j.BasicAuth(username, password, "")
	}

	driver, err := neo4j.NewDriverWithContext(url, auth)
	if err != nil {
		return nil, err
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}

	g := &Neo4jGraph{
		driver: driver,
		dbname: dbname,
		url:    url,
	}
	g.run = g.executeQuery
	return g, nil
}

func (g *Neo4jGraph) executeQuery(ctx context.Context, cypher string, params map[string]interface{}, write bool) ([]*neo4j.Record, error) {
	routing := neo4j.ExecuteQueryWithReadersRouting()
	if write {
		routing = neo4j.ExecuteQueryWithWritersRouting()
	}

	result, err := neo4j.ExecuteQuery(ctx, g.driver, cypher, params,
		neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithDatabase(g.dbname), routing)
	if err != nil {
		return nil, err
	}
	return result.Records, nil
}

// Close implements the GraphDatabase interface.
func (g *Neo4jGraph) Close(ctx context.Context) error {
	if g.driver == nil {
		return nil
	}
	return g.driver.Close(ctx)
}

// String returns a description for the Neo4jGraph object.
func (g *Neo4jGraph) String() string {
	return "neo4j"
}

// CreateNode implements the GraphDatabase interface.
func (g *Neo4jGraph) CreateNode(ctx context.Context, label string, props Properties) (*Node, error) {
	if label == "" {
		return nil, fmt.Errorf("%s: CreateNode: %w", g.String(), ErrEmptyLabel)
	}

	norm, err := NormalizeProperties(props)
	if err != nil {
		return nil, fmt.Errorf("%s: CreateNode: %w", g.String(), err)
	}

	cypher := "CREATE (n:" + quoteName(label) + ") SET n = $props RETURN n"
	records, err := g.run(ctx, cypher, map[string]interface{}{"props": map[string]interface{}(norm)}, true)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: CreateNode: No node was returned", g.String())
	}

	return recordNode(records[0], "n")
}

// FindNodes implements the GraphDatabase interface.
func (g *Neo4jGraph) FindNodes(ctx context.Context, label string, filter Filter) ([]*Node, error) {
	cypher := "MATCH (_"
	if label != "" {
		cypher += ":" + quoteName(label)
	}
	cypher += ")"

	params := make(map[string]interface{})
	switch f := filter.(type) {
	case nil:
	case ExactMatch:
		norm, err := NormalizeProperties(Properties(f))
		if err != nil {
			return nil, fmt.Errorf("%s: FindNodes: %w", g.String(), err)
		}

		var preds []string
		for i, k := range norm.Keys() {
			pname := fmt.Sprintf("p%d", i)

			preds = append(preds, "_."+quoteName(k)+" = $"+pname)
			params[pname] = norm[k]
		}
		if len(preds) > 0 {
			cypher += " WHERE " + strings.Join(preds, " AND ")
		}
	case Expression:
		if strings.TrimSpace(string(f)) == "" {
			return nil, fmt.Errorf("%s: FindNodes: %w: empty expression", g.String(), ErrInvalidFilter)
		}
		cypher += " WHERE " + string(f)
	default:
		return nil, fmt.Errorf("%s: FindNodes: %w, got %T", g.String(), ErrInvalidFilter, filter)
	}
	cypher += " RETURN _"

	records, err := g.run(ctx, cypher, params, false)
	if err != nil {
		return nil, err
	}

	nodes := make([]*Node, 0, len(records))
	for _, rec := range records {
		node, err := recordNode(rec, "_")
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// UpdateProperties implements the GraphDatabase interface.
func (g *Neo4jGraph) UpdateProperties(ctx context.Context, node *Node, props Properties) error {
	if node == nil || node.ID == "" {
		return fmt.Errorf("%s: UpdateProperties: %w: empty node reference", g.String(), ErrInvalidArgument)
	}

	norm, err := NormalizeProperties(props)
	if err != nil {
		return fmt.Errorf("%s: UpdateProperties: %w", g.String(), err)
	}

	cypher := "MATCH (n) WHERE elementId(n) = $id SET n += $props RETURN n"
	records, err := g.run(ctx, cypher, map[string]interface{}{
		"id":    node.ID,
		"props": map[string]interface{}(norm),
	}, true)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("%s: UpdateProperties: %w: %s", g.String(), ErrNodeNotFound, node.ID)
	}

	updated, err := recordNode(records[0], "n")
	if err != nil {
		return err
	}

	node.Label = updated.Label
	node.Properties = updated.Properties
	return nil
}

// CreateRelationship implements the GraphDatabase interface.
func (g *Neo4jGraph) CreateRelationship(ctx context.Context, from *Node, rtype string, to *Node, props Properties) (*Relationship, error) {
	if rtype == "" {
		return nil, fmt.Errorf("%s: CreateRelationship: %w", g.String(), ErrEmptyType)
	}
	if from == nil || to == nil {
		return nil, fmt.Errorf("%s: CreateRelationship: %w: missing node", g.String(), ErrInvalidArgument)
	}

	norm, err := NormalizeProperties(props)
	if err != nil {
		return nil, fmt.Errorf("%s: CreateRelationship: %w", g.String(), err)
	}

	cypher := "MATCH (s), (e) WHERE elementId(s) = $from AND elementId(e) = $to " +
		"CREATE (s)-[r:" + quoteName(rtype) + "]->(e) SET r = $props RETURN r, s, e"
	records, err := g.run(ctx, cypher, map[string]interface{}{
		"from":  from.ID,
		"to":    to.ID,
		"props": map[string]interface{}(norm),
	}, true)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: CreateRelationship: %w: %s or %s", g.String(), ErrNodeNotFound, from.ID, to.ID)
	}

	return recordRelationship(records[0])
}

// FindRelationships implements the GraphDatabase interface.
func (g *Neo4jGraph) FindRelationships(ctx context.Context, nodes []*Node, rtype string, limit int) ([]*Relationship, error) {
	for _, n := range nodes {
		if n == nil || n.ID == "" {
			return nil, fmt.Errorf("%s: FindRelationships: %w: empty node reference", g.String(), ErrInvalidArgument)
		}
	}

	rel := "[r]"
	if rtype != "" {
		rel = "[r:" + quoteName(rtype) + "]"
	}

	var cypher string
	params := make(map[string]interface{})
	switch len(nodes) {
	case 0:
		cypher = "MATCH ()-" + rel + "->()"
	case 1:
		cypher = "MATCH (a)-" + rel + "-() WHERE elementId(a) = $a WITH DISTINCT r"
		params["a"] = nodes[0].ID
	case 2:
		cypher = "MATCH (a)-" + rel + "->(b) WHERE elementId(a) = $a AND elementId(b) = $b"
		params["a"] = nodes[0].ID
		params["b"] = nodes[1].ID
	default:
		return nil, fmt.Errorf("%s: FindRelationships: %w: expected at most two nodes, got %d",
			g.String(), ErrInvalidArgument, len(nodes))
	}
	cypher += " RETURN r, startNode(r) AS s, endNode(r) AS e"
	if limit > 0 {
		cypher += " LIMIT $limit"
		params["limit"] = int64(limit)
	}

	records, err := g.run(ctx, cypher, params, false)
	if err != nil {
		return nil, err
	}

	rels := make([]*Relationship, 0, len(records))
	for _, rec := range records {
		r, err := recordRelationship(rec)
		if err != nil {
			return nil, err
		}
		rels = append(rels, r)
	}
	return rels, nil
}

// Counts implements the GraphDatabase interface.
func (g *Neo4jGraph) Counts(ctx context.Context) (int64, int64, error) {
	cypher := "CALL { MATCH (n) RETURN count(n) AS nodes } " +
		"CALL { MATCH ()-[r]->() RETURN count(r) AS rels } RETURN nodes, rels"

	records, err := g.run(ctx, cypher, nil, false)
	if err != nil {
		return 0, 0, err
	}
	if len(records) == 0 {
		return 0, 0, fmt.Errorf("%s: Counts: No counts were returned", g.String())
	}

	nodes, _ := records[0].Get("nodes")
	rels, _ := records[0].Get("rels")
	n, ok1 := nodes.(int64)
	r, ok2 := rels.(int64)
	if !ok1 || !ok2 {
		return 0, 0, fmt.Errorf("%s: Counts: Unexpected count values %T and %T", g.String(), nodes, rels)
	}
	return n, r, nil
}

// WipeGraph implements the GraphDatabase interface.
func (g *Neo4jGraph) WipeGraph(ctx context.Context) error {
	_, err := g.run(ctx, "MATCH (n) DETACH DELETE n", nil, true)
	return err
}

// quoteName escapes a label, relationship type or property key for use in Cypher.
func quoteName(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func recordNode(rec *neo4j.Record, key string) (*Node, error) {
	v, found := rec.Get(key)
	if !found {
		return nil, fmt.Errorf("neo4j: The record has no %s column", key)
	}

	var n dbtype.Node
	switch x := v.(type) {
	case dbtype.Node:
		n = x
	case *dbtype.Node:
		n = *x
	default:
		return nil, fmt.Errorf("neo4j: Expected a node in the %s column, got %T", key, v)
	}

	var label string
	if len(n.Labels) > 0 {
		label = n.Labels[0]
	}

	props := make(Properties, len(n.Props))
	for k, v := range n.Props {
		props[k] = v
	}

	return &Node{
		ID:         n.ElementId,
		Label:      label,
		Properties: props,
	}, nil
}

func recordRelationship(rec *neo4j.Record) (*Relationship, error) {
	v, found := rec.Get("r")
	if !found {
		return nil, fmt.Errorf("neo4j: The record has no r column")
	}

	var r dbtype.Relationship
	switch x := v.(type) {
	case dbtype.Relationship:
		r = x
	case *dbtype.Relationship:
		r = *x
	default:
		return nil, fmt.Errorf("neo4j: Expected a relationship in the r column, got %T", v)
	}

	start, err := recordNode(rec, "s")
	if err != nil {
		return nil, err
	}

	end, err := recordNode(rec, "e")
	if err != nil {
		return nil, err
	}

	props := make(Properties, len(r.Props))
	for k, v := range r.Props {
		props[k] = v
	}

	return &Relationship{
		ID:         r.ElementId,
		Type:       r.Type,
		Start:      start,
		End:        end,
		Properties: props,
	}, nil
}
