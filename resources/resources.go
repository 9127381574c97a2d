// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package resources

import "embed"

// ExampleConfigFile is the name of the embedded example configuration.
const ExampleConfigFile = "config.yaml"

//go:embed config.yaml
var resourceFS embed.FS

// GetResourceFileData returns the contents of the embedded file.
func GetResourceFileData(path string) ([]byte, error) {
	return resourceFS.ReadFile(path)
}
