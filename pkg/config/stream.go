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
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// streamDecoder is a strict decoder over one config document
type streamDecoder interface {
	Decode(v any) error
}

// 🔧 StreamParser decodes a document straight into Config through its struct
// tags. YAML and JSON differ only in extensions and decoder.
type StreamParser struct {
	format     string
	extensions []string
	decoder    func(r io.Reader) streamDecoder
}

func init() {
	// unknown keys are rejected, and so is a backup that is not a boolean
	Register(&StreamParser{
		format:     "YAML",
		extensions: []string{".yaml", ".yml"},
		decoder: func(r io.Reader) streamDecoder {
			d := yaml.NewDecoder(r)
			d.KnownFields(true)
			return d
		},
	})
	Register(&StreamParser{
		format:     "JSON",
		extensions: []string{".json"},
		decoder: func(r io.Reader) streamDecoder {
			d := json.NewDecoder(r)
			d.DisallowUnknownFields()
			return d
		},
	})
}

// Format names the document format
func (p *StreamParser) Format() string {
	return p.format
}

// 🔍 CanParse checks if this parser can handle the given file
func (p *StreamParser) CanParse(filename string) bool {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	return slices.Contains(p.extensions, ext)
}

// 📝 Parse parses the config from bytes
func (p *StreamParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	var cfg Config
	if err := p.decoder(bytes.NewReader(data)).Decode(&cfg); err != nil {
		return nil, errors.Errorf("parsing %s: %w", p.format, err)
	}
	return &cfg, nil
}
