// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gene1974/Neo4jKG/config"
	"github.com/gene1974/Neo4jKG/graph"
)

// propertyFlags collects repeated key=value command-line arguments.
type propertyFlags struct {
	props graph.Properties
}

func newPropertyFlags() *propertyFlags {
	return &propertyFlags{props: make(graph.Properties)}
}

func (p *propertyFlags) String() string {
	if p == nil || len(p.props) == 0 {
		return ""
	}

	var pairs []string
	for _, k := range p.props.Keys() {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, p.props[k]))
	}
	return strings.Join(pairs, ",")
}

func (p *propertyFlags) Set(s string) error {
	key, value, err := parseProperty(s)
	if err != nil {
		return err
	}

	p.props[key] = value
	return nil
}

// Len returns the number of properties collected.
func (p *propertyFlags) Len() int {
	return len(p.props)
}

// Properties returns a copy of the collected properties.
func (p *propertyFlags) Properties() graph.Properties {
	return p.props.Clone()
}

// LoadFile adds the key=value lines found in the file.
func (p *propertyFlags) LoadFile(path string) error {
	lines, err := config.GetListFromFile(path)
	if err != nil {
		return err
	}

	for _, line := range lines {
		if err := p.Set(line); err != nil {
			return fmt.Errorf("%s: %v", path, err)
		}
	}
	return nil
}

// parseProperty splits a key=value argument and types the value as an integer,
// float, boolean or string, in that order. Quoted values are always strings.
func parseProperty(s string) (string, interface{}, error) {
	key, raw, found := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !found || key == "" {
		return "", nil, fmt.Errorf("expected key=value, got %q", s)
	}

	return key, parseValue(strings.TrimSpace(raw)), nil
}

func parseValue(raw string) interface{} {
	if n := len(raw); n >= 2 {
		if (raw[0] == '"' && raw[n-1] == '"') || (raw[0] == '\'' && raw[n-1] == '\'') {
			return raw[1 : n-1]
		}
	}

	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && strings.ContainsAny(raw, "0123456789") {
		return f
	}
	switch strings.ToLower(raw) {
	case "true":
		return true
	case "false":
		return false
	}
	return raw
}
