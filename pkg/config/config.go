// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

const (
	DefaultFreeformPattern  = "PULLED"
	DefaultCandidatePattern = "*.html"
	DefaultSessionType      = "sftp"
)

// DefaultPresentationExtensions are media extensions relocated next to the
// zip instead of being archived inside it.
var DefaultPresentationExtensions = []string{".pptx"}

// 📄 FileType is one entry of a network's ordered filter table
type FileType struct {
	Pattern string `json:"pattern" yaml:"pattern"`
	MD5     bool   `json:"md5,omitempty" yaml:"md5,omitempty"`
	Base64  bool   `json:"base64,omitempty" yaml:"base64,omitempty"`
}

// 📎 OtherFileArgs is one ad-hoc file to send in addition to the filters. Path
// is an exact path, a glob, or the freeform marker.
type OtherFileArgs struct {
	Path string `json:"path" yaml:"path"`
	Keep bool   `json:"keep,omitempty" yaml:"keep,omitempty"`
	MD5  bool   `json:"md5,omitempty" yaml:"md5,omitempty"`
}

// 🌐 NetworkArgs holds the per-network settings
type NetworkArgs struct {
	ReviewDir   string          `json:"review_dir,omitempty" yaml:"review_dir,omitempty"`
	CompleteDir string          `json:"complete_dir,omitempty" yaml:"complete_dir,omitempty"`
	RemoteDir   string          `json:"remote_dir" yaml:"remote_dir"`
	JobLog      string          `json:"job_log,omitempty" yaml:"job_log,omitempty"`
	FileTypes   []FileType      `json:"file_types,omitempty" yaml:"file_types,omitempty"`
	OtherFiles  []OtherFileArgs `json:"other_files,omitempty" yaml:"other_files,omitempty"`
}

// 📦 PackagingArgs configures the moveapproved pipeline
type PackagingArgs struct {
	CandidatePattern       string   `json:"candidate_pattern,omitempty" yaml:"candidate_pattern,omitempty"`
	ProductLines           []string `json:"product_lines,omitempty" yaml:"product_lines,omitempty"`
	DissemLevels           []string `json:"dissem_levels,omitempty" yaml:"dissem_levels,omitempty"`
	PresentationExtensions []string `json:"presentation_extensions,omitempty" yaml:"presentation_extensions,omitempty"`
}

// 🔗 SessionArgs selects the transport to the guard
type SessionArgs struct {
	Type   string `json:"type,omitempty" yaml:"type,omitempty"`
	Config string `json:"config,omitempty" yaml:"config,omitempty"`
}

// 📚 Config represents the complete configuration
type Config struct {
	DissemDir       string                  `json:"dissem_dir" yaml:"dissem_dir"`
	TransferDir     string                  `json:"transfer_dir" yaml:"transfer_dir"`
	LogDir          string                  `json:"log_dir" yaml:"log_dir"`
	Backup          *bool                   `json:"backup" yaml:"backup"`
	FreeformPattern string                  `json:"freeform_pattern,omitempty" yaml:"freeform_pattern,omitempty"`
	Ledger          string                  `json:"ledger,omitempty" yaml:"ledger,omitempty"`
	Packaging       PackagingArgs           `json:"packaging,omitempty" yaml:"packaging,omitempty"`
	Session         SessionArgs             `json:"session,omitempty" yaml:"session,omitempty"`
	Networks        map[string]*NetworkArgs `json:"networks" yaml:"networks"`

	location string
}

// 🎯 Load loads the configuration from a file
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}
	cfg.location = path

	return cfg, nil
}

// 📍 Location returns the file the config was loaded from, if any
func (cfg *Config) Location() string {
	return cfg.location
}

// 🔍 Validate checks required fields and fills in defaults. Every problem is
// reported, not just the first.
func (cfg *Config) Validate() error {
	var result *multierror.Error

	if cfg.DissemDir == "" {
		result = multierror.Append(result, errors.New("dissem_dir is required"))
	}
	if cfg.TransferDir == "" {
		result = multierror.Append(result, errors.New("transfer_dir is required"))
	}
	if cfg.LogDir == "" {
		result = multierror.Append(result, errors.New("log_dir is required"))
	}
	if cfg.Backup == nil {
		result = multierror.Append(result, errors.New("backup is required and must be true or false"))
	}

	if cfg.FreeformPattern == "" {
		cfg.FreeformPattern = DefaultFreeformPattern
	}
	if _, err := regexp.Compile(cfg.FreeformPattern); err != nil {
		result = multierror.Append(result, errors.Errorf("freeform_pattern %q: %w", cfg.FreeformPattern, err))
	}
	if cfg.Packaging.CandidatePattern == "" {
		cfg.Packaging.CandidatePattern = DefaultCandidatePattern
	}
	if !doublestar.ValidatePattern(cfg.Packaging.CandidatePattern) {
		result = multierror.Append(result, errors.Errorf("packaging.candidate_pattern %q is not a valid pattern", cfg.Packaging.CandidatePattern))
	}
	if len(cfg.Packaging.PresentationExtensions) == 0 {
		cfg.Packaging.PresentationExtensions = append([]string(nil), DefaultPresentationExtensions...)
	}

	if cfg.Session.Type == "" {
		cfg.Session.Type = DefaultSessionType
	}
	switch cfg.Session.Type {
	case "sftp", "local", "s3":
	default:
		result = multierror.Append(result, errors.Errorf("session.type %q must be one of sftp, local, s3", cfg.Session.Type))
	}

	if len(cfg.Networks) == 0 {
		result = multierror.Append(result, errors.New("at least one network is required"))
	}

	normalized := make(map[string]*NetworkArgs, len(cfg.Networks))
	for _, name := range cfg.NetworkNames() {
		args := cfg.Networks[name]
		net, err := ParseNetwork(name)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if args == nil {
			args = &NetworkArgs{}
		}
		if args.RemoteDir == "" {
			result = multierror.Append(result, errors.Errorf("networks.%s.remote_dir is required", net))
		}
		for i, ft := range args.FileTypes {
			if ft.Pattern == "" || !doublestar.ValidatePattern(ft.Pattern) {
				result = multierror.Append(result, errors.Errorf("networks.%s.file_types[%d].pattern %q is not a valid pattern", net, i, ft.Pattern))
			}
		}
		for i, of := range args.OtherFiles {
			if of.Path == "" {
				result = multierror.Append(result, errors.Errorf("networks.%s.other_files[%d].path is required", net, i))
			}
		}
		normalized[string(net)] = args
	}
	cfg.Networks = normalized

	return result.ErrorOrNil()
}

// 📋 NetworkNames returns the configured network names in sorted order
func (cfg *Config) NetworkNames() []string {
	names := make([]string, 0, len(cfg.Networks))
	for name := range cfg.Networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	backup := "unset"
	if cfg.Backup != nil {
		backup = fmt.Sprintf("%t", *cfg.Backup)
	}
	return fmt.Sprintf("%s -> %s [%s] backup=%s",
		cfg.DissemDir, cfg.TransferDir, strings.Join(cfg.NetworkNames(), ","), backup)
}

// absDir cleans a configured directory relative to the config file location
func (cfg *Config) absDir(dir string) string {
	if dir == "" || filepath.IsAbs(dir) || cfg.location == "" {
		return filepath.Clean(dir)
	}
	return filepath.Join(filepath.Dir(cfg.location), dir)
}

// SessionConfigPath returns the session settings file, with a relative path
// resolved against the config file
func (cfg *Config) SessionConfigPath() string {
	if cfg.Session.Config == "" {
		return ""
	}
	return cfg.absDir(cfg.Session.Config)
}

// LedgerPath returns the transfer ledger file, empty when none is configured
func (cfg *Config) LedgerPath() string {
	if cfg.Ledger == "" {
		return ""
	}
	return cfg.absDir(cfg.Ledger)
}
