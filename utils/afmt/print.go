// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package afmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gene1974/Neo4jKG/graph"
)

// Banner is the ASCII art logo used within help output.
const Banner = `   _  __  ____
  | |/ / / ___|
  | ' / | |  _
  | . \ | |_| |
  |_|\_\ \____|`

const (
	// Version is used to display the current version of kg.
	Version = "v1.0.0"

	// Description is the slogan for kg.
	Description = "Knowledge graph construction on Neo4j"
)

var (
	// Colors used to ease the reading of program output
	B       = color.New(color.FgHiBlue)
	Y       = color.New(color.FgHiYellow)
	G       = color.New(color.FgHiGreen)
	R       = color.New(color.FgHiRed)
	Yellow  = color.New(color.FgHiYellow).SprintFunc()
	Green   = color.New(color.FgHiGreen).SprintFunc()
	Blue    = color.New(color.FgHiBlue).SprintFunc()
	Magenta = color.New(color.FgHiMagenta).SprintFunc()
)

// PrintBanner outputs the kg banner to stderr.
func PrintBanner() {
	FprintBanner(color.Error)
}

// FprintBanner outputs the kg banner.
func FprintBanner(out io.Writer) {
	rightmost := 50

	pad := func(num int) {
		for i := 0; i < num; i++ {
			_, _ = fmt.Fprint(out, " ")
		}
	}

	_, _ = R.Fprintf(out, "\n%s\n\n", Banner)
	pad(rightmost - len(Version))
	_, _ = Y.Fprintln(out, Version)
	pad(rightmost - len(Description))
	_, _ = Y.Fprintf(out, "%s\n\n", Description)
}

// FormatProperties returns the properties as {key: value, ...} with the keys in sorted order.
// Demo mode censors the values.
func FormatProperties(props graph.Properties, demo bool) string {
	parts := make([]string, 0, len(props))

	for _, k := range props.Keys() {
		v := formatValue(props[k])
		if demo {
			v = censorString(v, 0, len(v))
		}
		parts = append(parts, k+": "+v)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func formatValue(v interface{}) string {
	switch x := v.(type) {
	case string:
		return strconv.Quote(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	}
	return fmt.Sprint(v)
}

// FprintNode outputs a single node line.
func FprintNode(out io.Writer, node *graph.Node, demo bool) {
	_, _ = fmt.Fprintf(out, "%s%s %s\n", Blue("("+node.Label+") "), Green(node.ID), Yellow(FormatProperties(node.Properties, demo)))
}

// FprintRelationship outputs a single relationship line.
func FprintRelationship(out io.Writer, rel *graph.Relationship, demo bool) {
	start, end, rtype := graph.DecomposeRelationship(rel)

	_, _ = fmt.Fprintf(out, "%s %s %s %s\n",
		Green(start.ID), Magenta("-["+rtype+"]->"), Green(end.ID), Yellow(FormatProperties(rel.Properties, demo)))
}

// FprintSummary outputs the number of nodes and relationships in the graph.
func FprintSummary(out io.Writer, store string, nodes, rels int64) {
	pad := func(num int, chr string) {
		for i := 0; i < num; i++ {
			_, _ = B.Fprint(out, chr)
		}
	}

	_, _ = fmt.Fprintln(out)
	_, _ = B.Fprintf(out, "kg %s - %s\n", Version, store)
	pad(5, "----------")
	_, _ = fmt.Fprintf(out, "\n%s%s\n", Yellow(strconv.FormatInt(nodes, 10)), Green(" nodes"))
	_, _ = fmt.Fprintf(out, "%s%s\n", Yellow(strconv.FormatInt(rels, 10)), Green(" relationships"))
}

func censorString(input string, start, end int) string {
	runes := []rune(input)
	if end > len(runes) {
		end = len(runes)
	}

	for i := start; i < end; i++ {
		if runes[i] == '.' ||
			runes[i] == '"' ||
			runes[i] == '-' ||
			runes[i] == ' ' {
			continue
		}
		runes[i] = 'x'
	}
	return string(runes)
}
