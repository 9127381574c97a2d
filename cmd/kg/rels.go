// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"errors"
	"flag"

	"github.com/fatih/color"
	"github.com/gene1974/Neo4jKG/graph"
	"github.com/gene1974/Neo4jKG/utils/afmt"
)

const (
	createRelUsageMsg = "create-rel -from-label LABEL -from key=value ... -type TYPE -to-label LABEL -to key=value ... [-p key=value ...] [options]"
	findRelsUsageMsg  = "find-rels [-label LABEL -p key=value ... [-other-label LABEL -other key=value ...]] [-type TYPE] [-limit N|-all] [options]"
)

// nodeSelector picks a node by label and filter from the command-line.
type nodeSelector struct {
	Label string
	Where string
	Props *propertyFlags
}

func (s *nodeSelector) register(fs *flag.FlagSet, prefix, desc string) {
	s.Props = newPropertyFlags()
	fs.StringVar(&s.Label, prefix+"label", "", "Label of the "+desc+" node")
	fs.StringVar(&s.Where, prefix+"where", "", "Expression selecting the "+desc+" node")
}

func (s *nodeSelector) selected() bool {
	return s.Label != "" || s.Where != "" || s.Props.Len() > 0
}

func (s *nodeSelector) find(ctx context.Context, g *graph.Graph) (*graph.Node, error) {
	filter, err := nodeFilter(s.Props, s.Where)
	if err != nil {
		return nil, err
	}
	return firstNode(ctx, g, s.Label, filter)
}

type relArgs struct {
	globalArgs
	From  nodeSelector
	To    nodeSelector
	Type  string
	Props *propertyFlags
	Limit int
	All   bool
}

func runCreateRelCommand(clArgs []string) error {
	var args relArgs
	fs := flag.NewFlagSet("create-rel", flag.ContinueOnError)
	buf := new(bytes.Buffer)
	fs.SetOutput(buf)

	args.Props = newPropertyFlags()
	args.register(fs)
	args.From.register(fs, "from-", "start")
	args.To.register(fs, "to-", "end")
	fs.Var(args.From.Props, "from", "Property selecting the start node as key=value (can be used multiple times)")
	fs.Var(args.To.Props, "to", "Property selecting the end node as key=value (can be used multiple times)")
	fs.StringVar(&args.Type, "type", "", "Type of the relationship")
	fs.Var(args.Props, "p", "Relationship property as key=value (can be used multiple times)")

	if ok, err := parseCommand(fs, buf, createRelUsageMsg, clArgs); !ok {
		return err
	}
	args.apply()
	if !args.From.selected() || !args.To.selected() {
		return errors.New("both the start and the end node must be selected")
	}

	return withGraph(&args.globalArgs, func(ctx context.Context, g *graph.Graph) error {
		start, err := args.From.find(ctx, g)
		if err != nil {
			return err
		}
		end, err := args.To.find(ctx, g)
		if err != nil {
			return err
		}

		rel, err := g.CreateRelationship(ctx, start, args.Type, end, args.Props.Properties())
		if err != nil {
			return err
		}

		afmt.FprintRelationship(color.Output, rel, args.Options.DemoMode)
		return nil
	})
}

func runFindRelsCommand(clArgs []string) error {
	var args relArgs
	fs := flag.NewFlagSet("find-rels", flag.ContinueOnError)
	buf := new(bytes.Buffer)
	fs.SetOutput(buf)

	args.register(fs)
	args.From.register(fs, "", "first")
	args.To.register(fs, "other-", "second")
	fs.Var(args.From.Props, "p", "Property selecting the first node as key=value (can be used multiple times)")
	fs.Var(args.To.Props, "other", "Property selecting the second node as key=value (can be used multiple times)")
	fs.StringVar(&args.Type, "type", "", "Type of the relationships, any type when empty")
	fs.IntVar(&args.Limit, "limit", graph.DefaultRelationshipLimit, "Maximum number of relationships returned")
	fs.BoolVar(&args.All, "all", false, "Return every relationship of the first node, of any type and direction")

	if ok, err := parseCommand(fs, buf, findRelsUsageMsg, clArgs); !ok {
		return err
	}
	args.apply()
	if args.All && !args.From.selected() {
		return errors.New("the -all option requires the first node to be selected")
	}
	if args.To.selected() && !args.From.selected() {
		return errors.New("the second node requires the first node to be selected")
	}

	return withGraph(&args.globalArgs, func(ctx context.Context, g *graph.Graph) error {
		var nodes []*graph.Node

		for _, sel := range []*nodeSelector{&args.From, &args.To} {
			if !sel.selected() {
				continue
			}

			node, err := sel.find(ctx, g)
			if err != nil {
				return err
			}
			nodes = append(nodes, node)
		}

		var err error
		var rels []*graph.Relationship
		if args.All {
			rels, err = g.FindAllRelationships(ctx, nodes[0])
		} else {
			rels, err = g.FindRelationships(ctx, nodes, args.Type, args.Limit)
		}
		if err != nil {
			return err
		}

		for _, rel := range rels {
			afmt.FprintRelationship(color.Output, rel, args.Options.DemoMode)
		}
		return nil
	})
}
