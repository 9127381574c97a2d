// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package viz

import (
	"io"
	"strconv"
	"strings"
	"text/template"
)

const dotTemplate = `
digraph "{{ .Name }}" {
	size = "7.5,10"; ranksep="2.5 equally"; ratio=auto;

{{ range .Nodes }}
        node [label="{{ .Label }}",color="{{ .Color }}",type="{{ .Type }}"]; n{{ .ID }};
{{ end }}

{{ range .Edges }}
        n{{ .Source }} -> n{{ .Destination }} [label="{{ .Label }}"];
{{ end }}
}
`

var dotColors = []string{"green", "red", "orange", "cyan", "pink", "blue", "purple", "brown"}

type dotEdge struct {
	Source      string
	Destination string
	Label       string
}

type dotNode struct {
	ID    string
	Label string
	Color string
	Type  string
}

type dotGraph struct {
	Name  string
	Nodes []dotNode
	Edges []dotEdge
}

// WriteDOTData generates a DOT file to display the knowledge graph.
func WriteDOTData(output io.Writer, nodes []Node, edges []Edge) error {
	types := typeIndexes(nodes)
	graph := &dotGraph{Name: "Knowledge Graph"}

	for idx, node := range nodes {
		graph.Nodes = append(graph.Nodes, dotNode{
			ID:    strconv.Itoa(idx + 1),
			Label: dotEscape(node.Label),
			Color: dotColors[types[node.Type]%len(dotColors)],
			Type:  dotEscape(node.Type),
		})
	}

	for _, edge := range edges {
		graph.Edges = append(graph.Edges, dotEdge{
			Source:      strconv.Itoa(edge.From + 1),
			Destination: strconv.Itoa(edge.To + 1),
			Label:       dotEscape(edge.Label),
		})
	}

	t := template.Must(template.New("graph").Parse(dotTemplate))
	return t.Execute(output, graph)
}

func dotEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`).Replace(s)
}
