// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/gene1974/Neo4jKG/graph"
	"github.com/gene1974/Neo4jKG/utils/afmt"
	"github.com/gene1974/Neo4jKG/utils/viz"
)

const vizUsageMsg = "viz -dot|-gexf [options]"

type vizArgs struct {
	globalArgs
	Label   string
	Format struct {
		DOT  bool
		GEXF bool
	}
	Output string
}

func runVizCommand(clArgs []string) error {
	var args vizArgs
	fs, buf := newAdminFlagSet("viz", &args.globalArgs)
	fs.StringVar(&args.Label, "label", "", "Only include the nodes with this label")
	fs.BoolVar(&args.Format.DOT, "dot", false, "Generate the DOT output file")
	fs.BoolVar(&args.Format.GEXF, "gexf", false, "Generate the Gephi Graph Exchange XML Format (GEXF) file")
	fs.StringVar(&args.Output, "o", "", "Path to the output file, or the standard output when empty")

	if ok, err := parseCommand(fs, buf, vizUsageMsg, clArgs); !ok {
		return err
	}
	args.apply()
	if args.Format.DOT == args.Format.GEXF {
		return errors.New("exactly one of the -dot and -gexf options is required")
	}

	return withGraph(&args.globalArgs, func(ctx context.Context, g *graph.Graph) error {
		nodes, edges, err := viz.VizData(ctx, g, args.Label)
		if err != nil {
			return err
		}
		if len(nodes) == 0 {
			return errors.New("no nodes were found in the graph")
		}

		write := viz.WriteDOTData
		if args.Format.GEXF {
			write = viz.WriteGEXFData
		}
		return writeVizFile(args.Output, nodes, edges, write)
	})
}

func writeVizFile(path string, nodes []viz.Node, edges []viz.Edge, write func(io.Writer, []viz.Node, []viz.Edge) error) error {
	if path == "" {
		return write(color.Output, nodes, edges)
	}

	f, err := os.OpenFile(filepath.Clean(path), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open the output file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if err := write(f, nodes, edges); err != nil {
		return err
	}

	afmt.G.Fprintf(color.Error, "Wrote %d nodes and %d relationships to %s\n", len(nodes), len(edges), path)
	return nil
}
