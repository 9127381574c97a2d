// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/fatih/color"
	"github.com/gene1974/Neo4jKG/graph"
	"github.com/gene1974/Neo4jKG/utils/afmt"
)

const (
	createNodeUsageMsg = "create-node -label LABEL [-p key=value ...] [options]"
	findNodesUsageMsg  = "find-nodes -label LABEL [-p key=value ... | -where EXPR] [-first|-exists] [options]"
	updateUsageMsg     = "update -label LABEL [-p key=value ... | -where EXPR] -set key=value ... [options]"
)

type nodeArgs struct {
	globalArgs
	Label     string
	Where     string
	PropFile  string
	Props     *propertyFlags
	First     bool
	Exists    bool
	SetValues *propertyFlags
}

func newNodeFlagSet(name string, args *nodeArgs) (*flag.FlagSet, *bytes.Buffer) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	buf := new(bytes.Buffer)
	fs.SetOutput(buf)

	args.Props = newPropertyFlags()
	args.SetValues = newPropertyFlags()
	args.register(fs)
	fs.StringVar(&args.Label, "label", "", "Label of the nodes")
	fs.Var(args.Props, "p", "Property as key=value (can be used multiple times)")
	fs.StringVar(&args.PropFile, "pf", "", "Path to a file providing key=value properties, one per line")
	return fs, buf
}

func (a *nodeArgs) loadPropFile() error {
	if a.PropFile == "" {
		return nil
	}
	if err := a.Props.LoadFile(a.PropFile); err != nil {
		return fmt.Errorf("failed to parse the properties file: %v", err)
	}
	return nil
}

func runCreateNodeCommand(clArgs []string) error {
	var args nodeArgs
	fs, buf := newNodeFlagSet("create-node", &args)

	if ok, err := parseCommand(fs, buf, createNodeUsageMsg, clArgs); !ok {
		return err
	}
	args.apply()
	if err := args.loadPropFile(); err != nil {
		return err
	}

	return withGraph(&args.globalArgs, func(ctx context.Context, g *graph.Graph) error {
		_, node, err := g.CreateNode(ctx, args.Label, args.Props.Properties())
		if err != nil {
			return err
		}

		afmt.FprintNode(color.Output, node, args.Options.DemoMode)
		return nil
	})
}

func runFindNodesCommand(clArgs []string) error {
	var args nodeArgs
	fs, buf := newNodeFlagSet("find-nodes", &args)
	fs.StringVar(&args.Where, "where", "", "Expression over the node '_', e.g. \"_.age > 20\"")
	fs.BoolVar(&args.First, "first", false, "Print only the properties of the first matching node")
	fs.BoolVar(&args.Exists, "exists", false, "Report whether a matching node exists")

	if ok, err := parseCommand(fs, buf, findNodesUsageMsg, clArgs); !ok {
		return err
	}
	args.apply()
	if err := args.loadPropFile(); err != nil {
		return err
	}
	if args.First && args.Exists {
		return errors.New("the -first and -exists options cannot be combined")
	}

	filter, err := nodeFilter(args.Props, args.Where)
	if err != nil {
		return err
	}

	return withGraph(&args.globalArgs, func(ctx context.Context, g *graph.Graph) error {
		switch {
		case args.Exists:
			found, err := g.NodeExists(ctx, args.Label, filter)
			if err != nil {
				return err
			}
			fmt.Fprintln(color.Output, found)
		case args.First:
			props, err := g.NodeProperties(ctx, args.Label, filter)
			if err != nil {
				return err
			}
			fmt.Fprintln(color.Output, afmt.Yellow(afmt.FormatProperties(props, args.Options.DemoMode)))
		default:
			nodes, err := g.FindNodes(ctx, args.Label, filter)
			if err != nil {
				return err
			}
			for _, node := range nodes {
				afmt.FprintNode(color.Output, node, args.Options.DemoMode)
			}
		}
		return nil
	})
}

func runUpdateCommand(clArgs []string) error {
	var args nodeArgs
	fs, buf := newNodeFlagSet("update", &args)
	fs.StringVar(&args.Where, "where", "", "Expression over the node '_', e.g. \"_.age > 20\"")
	fs.Var(args.SetValues, "set", "Property to write as key=value (can be used multiple times)")

	if ok, err := parseCommand(fs, buf, updateUsageMsg, clArgs); !ok {
		return err
	}
	args.apply()
	if err := args.loadPropFile(); err != nil {
		return err
	}
	if args.SetValues.Len() == 0 {
		return errors.New("no properties were provided with -set")
	}

	filter, err := nodeFilter(args.Props, args.Where)
	if err != nil {
		return err
	}

	return withGraph(&args.globalArgs, func(ctx context.Context, g *graph.Graph) error {
		node, err := firstNode(ctx, g, args.Label, filter)
		if err != nil {
			return err
		}
		if err := g.UpdateProperties(ctx, node, args.SetValues.Properties()); err != nil {
			return err
		}

		afmt.FprintNode(color.Output, node, args.Options.DemoMode)
		return nil
	})
}

func firstNode(ctx context.Context, g *graph.Graph, label string, filter graph.Filter) (*graph.Node, error) {
	nodes, err := g.FindNodes(ctx, label, filter)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: no %s node matches the filter", graph.ErrNodeNotFound, label)
	}
	return nodes[0], nil
}
