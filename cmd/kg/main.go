// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

// kg: Build and query a knowledge graph stored in Neo4j
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/fatih/color"
	"github.com/gene1974/Neo4jKG/config"
	"github.com/gene1974/Neo4jKG/graph"
	"github.com/gene1974/Neo4jKG/utils/afmt"
)

const (
	mainUsageMsg   = "create-node|find-nodes|update|create-rel|find-rels|stats|wipe|config|migrate|viz [options]"
	defaultTimeout = 2 * time.Minute
)

// globalArgs are shared by every subcommand.
type globalArgs struct {
	Options struct {
		DemoMode bool
		NoColor  bool
		Silent   bool
		Verbose  bool
	}
	Filepaths struct {
		ConfigFile string
		Directory  string
	}
}

func (a *globalArgs) register(fs *flag.FlagSet) {
	fs.BoolVar(&a.Options.DemoMode, "demo", false, "Censor property values to make the output suitable for demonstrations")
	fs.BoolVar(&a.Options.NoColor, "nocolor", false, "Disable colorized output")
	fs.BoolVar(&a.Options.Silent, "silent", false, "Disable all output during execution")
	fs.BoolVar(&a.Options.Verbose, "v", false, "Output debug log messages")
	fs.StringVar(&a.Filepaths.ConfigFile, "config", "", "Path to the YAML configuration file")
	fs.StringVar(&a.Filepaths.Directory, "dir", "", "Path to the directory containing the local graph database")
}

func (a *globalArgs) apply() {
	if a.Options.NoColor {
		color.NoColor = true
	}
	if a.Options.Silent {
		color.Output = io.Discard
		color.Error = io.Discard
	}
}

func (a *globalArgs) logger() *slog.Logger {
	level := slog.LevelWarn
	if a.Options.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(color.Error, &slog.HandlerOptions{Level: level}))
}

func commandUsage(msg string, cmdFlagSet *flag.FlagSet, errBuf *bytes.Buffer) {
	afmt.PrintBanner()
	afmt.G.Fprintf(color.Error, "Usage: %s %s\n\n", path.Base(os.Args[0]), msg)
	cmdFlagSet.PrintDefaults()
	afmt.G.Fprintln(color.Error, errBuf.String())

	if msg == mainUsageMsg {
		afmt.G.Fprintf(color.Error, "\nSubcommands: \n\n")
		afmt.G.Fprintf(color.Error, "\t%-14s - Add a node with a label and properties\n", "kg create-node")
		afmt.G.Fprintf(color.Error, "\t%-14s - List the nodes matching a label and filter\n", "kg find-nodes")
		afmt.G.Fprintf(color.Error, "\t%-14s - Merge properties into the first matching node\n", "kg update")
		afmt.G.Fprintf(color.Error, "\t%-14s - Connect two nodes with a typed relationship\n", "kg create-rel")
		afmt.G.Fprintf(color.Error, "\t%-14s - List the relationships of one or two nodes\n", "kg find-rels")
		afmt.G.Fprintf(color.Error, "\t%-14s - Count the nodes and relationships\n", "kg stats")
		afmt.G.Fprintf(color.Error, "\t%-14s - Delete everything in the graph\n", "kg wipe")
		afmt.G.Fprintf(color.Error, "\t%-14s - Show the database settings in use\n", "kg config")
		afmt.G.Fprintf(color.Error, "\t%-14s - Copy the graph into another database\n", "kg migrate")
		afmt.G.Fprintf(color.Error, "\t%-14s - Export the graph for visualization\n", "kg viz")
	}
	afmt.G.Fprintln(color.Error)
}

func main() {
	var version, help1, help2 bool
	mainFlagSet := flag.NewFlagSet("kg", flag.ContinueOnError)

	defaultBuf := new(bytes.Buffer)
	mainFlagSet.SetOutput(defaultBuf)

	mainFlagSet.BoolVar(&help1, "h", false, "Show the program usage message")
	mainFlagSet.BoolVar(&help2, "help", false, "Show the program usage message")
	mainFlagSet.BoolVar(&version, "version", false, "Print the version number of this kg binary")

	if len(os.Args) < 2 {
		commandUsage(mainUsageMsg, mainFlagSet, defaultBuf)
		return
	}
	if err := mainFlagSet.Parse(os.Args[1:]); err != nil {
		afmt.R.Fprintf(color.Error, "%v\n", err)
		os.Exit(1)
	}
	if help1 || help2 {
		commandUsage(mainUsageMsg, mainFlagSet, defaultBuf)
		return
	}
	if version {
		fmt.Fprintf(color.Error, "%s\n", afmt.Version)
		return
	}

	var err error
	switch os.Args[1] {
	case "create-node":
		err = runCreateNodeCommand(os.Args[2:])
	case "find-nodes":
		err = runFindNodesCommand(os.Args[2:])
	case "update":
		err = runUpdateCommand(os.Args[2:])
	case "create-rel":
		err = runCreateRelCommand(os.Args[2:])
	case "find-rels":
		err = runFindRelsCommand(os.Args[2:])
	case "stats":
		err = runStatsCommand(os.Args[2:])
	case "wipe":
		err = runWipeCommand(os.Args[2:])
	case "config":
		err = runConfigCommand(os.Args[2:])
	case "migrate":
		err = runMigrateCommand(os.Args[2:])
	case "viz":
		err = runVizCommand(os.Args[2:])
	default:
		commandUsage(mainUsageMsg, mainFlagSet, defaultBuf)
		os.Exit(1)
	}

	if err != nil {
		afmt.R.Fprintf(color.Error, "%v\n", err)
		os.Exit(1)
	}
}

// parseCommand parses the subcommand arguments. It returns false when only the usage was requested.
func parseCommand(fs *flag.FlagSet, buf *bytes.Buffer, msg string, args []string) (bool, error) {
	var help1, help2 bool

	fs.BoolVar(&help1, "h", false, "Show the program usage message")
	fs.BoolVar(&help2, "help", false, "Show the program usage message")

	if err := fs.Parse(args); err != nil {
		return false, err
	}
	if help1 || help2 {
		commandUsage(msg, fs, buf)
		return false, nil
	}
	return true, nil
}

func loadConfig(args *globalArgs) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Log = args.logger()

	if err := config.AcquireConfig(args.Filepaths.Directory, args.Filepaths.ConfigFile, cfg); err != nil {
		if args.Filepaths.ConfigFile != "" {
			return nil, fmt.Errorf("failed to load the configuration file: %v", err)
		}
		cfg.Log.Warn("falling back on the environment for the database settings", "error", err)
	}
	if args.Options.Verbose {
		cfg.Verbose = true
	}
	if err := cfg.CheckSettings(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openGraph(ctx context.Context, args *globalArgs) (*graph.Graph, error) {
	cfg, err := loadConfig(args)
	if err != nil {
		return nil, err
	}
	if cfg.GraphDB.System == "local" {
		createOutputDirectory(cfg.GraphDB.URL)
	}

	g, err := graph.Open(ctx, cfg.GraphDB, cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect with the database: %v", err)
	}
	return g, nil
}

func createOutputDirectory(dir string) {
	if dir == "" {
		afmt.R.Fprintln(color.Error, "Failed to obtain the output directory")
		os.Exit(1)
	}
	// If the directory does not yet exist, create it
	if err := os.MkdirAll(dir, 0755); err != nil {
		afmt.R.Fprintf(color.Error, "Failed to create the directory: %v\n", err)
		os.Exit(1)
	}
}

func withGraph(args *globalArgs, fn func(ctx context.Context, g *graph.Graph) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	g, err := openGraph(ctx, args)
	if err != nil {
		return err
	}
	defer func() { _ = g.Close(ctx) }()

	return fn(ctx, g)
}

// nodeFilter builds the filter selected on the command-line. A nil filter matches every node.
func nodeFilter(props *propertyFlags, where string) (graph.Filter, error) {
	if props.Len() > 0 && where != "" {
		return nil, fmt.Errorf("properties and an expression cannot be combined in one filter")
	}
	if where != "" {
		return graph.Expression(where), nil
	}
	if props.Len() > 0 {
		return graph.ExactMatch(props.Properties()), nil
	}
	return nil, nil
}
