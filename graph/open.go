// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gene1974/Neo4jKG/config"
	"github.com/gene1974/Neo4jKG/graph/db"
)

// Open connects to the graph database described by the settings and returns the Graph using it.
func Open(ctx context.Context, settings *config.Database, l *slog.Logger) (*Graph, error) {
	if settings == nil {
		return nil, errors.New("no graph database has been configured")
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	var database db.GraphDatabase
	if settings.IsNeo4j() {
		store, err := db.NewNeo4jGraph(ctx, settings.URL, settings.Username, settings.Password, settings.DBName)
		if err != nil {
			return nil, err
		}
		database = store
	} else {
		store, err := db.NewCayleyGraph(settings.System, settings.URL, settings.Options)
		if err != nil {
			return nil, err
		}
		database = store
	}

	return NewGraph(database, l), nil
}
