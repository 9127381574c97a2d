// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/caffix/stringset"
	"github.com/google/uuid"
	homedir "github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

const (
	outputDirName  = "kg"
	defaultCfgFile = "config.yaml"
	cfgEnvironVar  = "KG_CONFIG"
	systemCfgDir   = "/etc"
)

// Config passes along the knowledge graph configuration settings and options.
type Config struct {
	sync.Mutex `yaml:"-" json:"-"`

	// A Universally Unique Identifier (UUID) for the process using the configuration
	UUID uuid.UUID `yaml:"-" json:"uuid"`

	// Logger for error messages
	Log *slog.Logger `yaml:"-" json:"-"`

	// Defines options like the graph database URI
	Options map[string]interface{} `yaml:"options,omitempty" json:"options,omitempty"`

	// The graph database used to store the knowledge graph
	GraphDB *Database `yaml:"database,omitempty" json:"database,omitempty"`

	// Option for verbose logging and output
	Verbose bool `yaml:"verbose,omitempty" json:"verbose,omitempty"`

	// Filepath of the configuration file that was loaded
	Filepath string `yaml:"-" json:"-"`

	// The directory that stores the local bolt db and other files created
	Dir string `yaml:"-" json:"-"`
}

// NewConfig returns a default configuration object.
func NewConfig() *Config {
	return &Config{
		UUID:    uuid.New(),
		Log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Options: make(map[string]interface{}),
	}
}

// LoadSettings parses settings from an .yaml file and assigns them to the Config.
func (c *Config) LoadSettings(path string) error {
	// Determine and store the absolute path of the config file
	absolutePath, err := filepath.Abs(path)
	if err != nil {
		_ = c.LoadDatabaseEnvSettings()
		return fmt.Errorf("failed to get absolute path of the configuration file: %v", err)
	}
	c.Filepath = absolutePath

	// Open the configuration file
	data, err := os.ReadFile(c.Filepath)
	if err != nil {
		_ = c.LoadDatabaseEnvSettings()
		return fmt.Errorf("failed to load the main configuration file: %v", err)
	}

	err = yaml.Unmarshal(data, c)
	if err != nil {
		_ = c.LoadDatabaseEnvSettings()
		return fmt.Errorf("error mapping configuration settings to internal values: %v", err)
	}

	loads := []func(cfg *Config) error{
		c.loadDatabaseSettings,
	}
	for _, load := range loads {
		if err := load(c); err != nil {
			return err
		}
	}

	return nil
}

// CheckSettings runs some sanity checks on the configuration options selected.
func (c *Config) CheckSettings() error {
	if c.GraphDB == nil {
		return fmt.Errorf("no graph database has been configured")
	}

	return c.GraphDB.Validate()
}

// AcquireConfig populates the Config struct provided by the Config argument.
// Without a configuration file, the database settings come from the environment.
func AcquireConfig(dir, file string, cfg *Config) error {
	var path, dircfg, syscfg string

	cfg.Dir = OutputDirectory(dir)
	if finfo, err := os.Stat(cfg.Dir); cfg.Dir != "" && !os.IsNotExist(err) && finfo.IsDir() {
		dircfg = filepath.Join(cfg.Dir, defaultCfgFile)
	}

	if runtime.GOOS != "windows" {
		syscfg = filepath.Join(filepath.Join(systemCfgDir, outputDirName), defaultCfgFile)
	}

	if file != "" {
		path = expandPath(file)
	} else if f, set := os.LookupEnv(cfgEnvironVar); set {
		path = expandPath(f)
	} else if _, err := os.Stat(dircfg); err == nil {
		path = dircfg
	} else if _, err := os.Stat(syscfg); err == nil {
		path = syscfg
	}

	if path == "" {
		return cfg.LoadDatabaseEnvSettings()
	}
	return cfg.LoadSettings(path)
}

// OutputDirectory returns the file path of the output directory. A suitable
// path provided will be used as the output directory instead.
func OutputDirectory(dir ...string) string {
	if len(dir) > 0 && dir[0] != "" {
		return expandPath(dir[0])
	}

	if path, err := os.UserConfigDir(); err == nil {
		return filepath.Join(path, outputDirName)
	}

	return ""
}

// expandPath replaces a leading tilde with the home directory of the user.
func expandPath(path string) string {
	if p, err := homedir.Expand(path); err == nil {
		return p
	}
	return path
}

// GetListFromFile reads a text or gzip file and returns the slice of non-empty lines.
func GetListFromFile(path string) ([]string, error) {
	var reader io.Reader

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %v", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("error opening the file %s: %v", absPath, err)
	}
	defer func() { _ = file.Close() }()
	reader = file

	// We need to determine if this is a gzipped file or a plain text file, so we
	// first read the first 512 bytes to pass them down to http.DetectContentType
	// for mime detection. The file is rewinded before passing it along to the
	// next reader
	head := make([]byte, 512)
	if _, err = file.Read(head); err != nil && err != io.EOF {
		return nil, fmt.Errorf("error reading the first 512 bytes from %s: %s", absPath, err)
	}
	if _, err = file.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("error rewinding the file %s: %s", absPath, err)
	}

	// Read the file as gzip if it's actually compressed
	if mt := http.DetectContentType(head); mt == "application/gzip" || mt == "application/x-gzip" {
		gzReader, err := gzip.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("error gz-reading the file %s: %v", absPath, err)
		}
		defer func() { _ = gzReader.Close() }()
		reader = gzReader
	}

	return getLineList(reader)
}

func getLineList(reader io.Reader) ([]string, error) {
	var lines []string

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		// Get the next line in the list, skipping comments
		l := strings.TrimSpace(scanner.Text())
		if l != "" && !strings.HasPrefix(l, "#") {
			lines = append(lines, l)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return stringset.Deduplicate(lines), nil
}

// JSON returns the JSON encoding of the configuration without escaping HTML characters.
func (c *Config) JSON() ([]byte, error) {
	type Alias Config
	buffer := &bytes.Buffer{}
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)

	err := encoder.Encode(&struct{ *Alias }{Alias: (*Alias)(c)})
	if err != nil {
		return nil, err
	}

	return buffer.Bytes(), nil
}
