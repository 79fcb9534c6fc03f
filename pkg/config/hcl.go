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
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".hcl")
}

type hclFileType struct {
	Pattern string `hcl:"pattern,label"`
	MD5     bool   `hcl:"md5,optional"`
	Base64  bool   `hcl:"base64,optional"`
}

type hclOtherFile struct {
	Path string `hcl:"path,label"`
	Keep bool   `hcl:"keep,optional"`
	MD5  bool   `hcl:"md5,optional"`
}

type hclNetwork struct {
	Name        string         `hcl:"name,label"`
	ReviewDir   string         `hcl:"review_dir,optional"`
	CompleteDir string         `hcl:"complete_dir,optional"`
	RemoteDir   string         `hcl:"remote_dir,optional"`
	JobLog      string         `hcl:"job_log,optional"`
	FileTypes   []hclFileType  `hcl:"file_type,block"`
	OtherFiles  []hclOtherFile `hcl:"other_file,block"`
}

type hclPackaging struct {
	CandidatePattern       string   `hcl:"candidate_pattern,optional"`
	ProductLines           []string `hcl:"product_lines,optional"`
	DissemLevels           []string `hcl:"dissem_levels,optional"`
	PresentationExtensions []string `hcl:"presentation_extensions,optional"`
}

type hclSession struct {
	Type   string `hcl:"type,optional"`
	Config string `hcl:"config,optional"`
}

type hclConfig struct {
	DissemDir       string         `hcl:"dissem_dir,optional"`
	TransferDir     string         `hcl:"transfer_dir,optional"`
	LogDir          string         `hcl:"log_dir,optional"`
	Backup          hcl.Expression `hcl:"backup"`
	FreeformPattern string         `hcl:"freeform_pattern,optional"`
	Ledger          string         `hcl:"ledger,optional"`
	Packaging       *hclPackaging  `hcl:"packaging,block"`
	Session         *hclSession    `hcl:"session,block"`
	Networks        []hclNetwork   `hcl:"network,block"`
}

// 📝 Parse parses the config from HCL
func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "config.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{},
	}

	var hclCfg hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &hclCfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	// backup must be a literal bool; "true" as a string is not accepted
	backupVal, diags := hclCfg.Backup.Value(evalCtx)
	if diags.HasErrors() {
		return nil, errors.Errorf("evaluating backup: %s", diags.Error())
	}
	if backupVal.IsNull() || !backupVal.Type().Equals(cty.Bool) {
		return nil, errors.Errorf("backup must be a boolean, got %s", backupVal.Type().FriendlyName())
	}
	backup := backupVal.True()

	cfg := &Config{
		DissemDir:       hclCfg.DissemDir,
		TransferDir:     hclCfg.TransferDir,
		LogDir:          hclCfg.LogDir,
		Backup:          &backup,
		FreeformPattern: hclCfg.FreeformPattern,
		Ledger:          hclCfg.Ledger,
		Networks:        make(map[string]*NetworkArgs, len(hclCfg.Networks)),
	}

	if hclCfg.Packaging != nil {
		cfg.Packaging = PackagingArgs{
			CandidatePattern:       hclCfg.Packaging.CandidatePattern,
			ProductLines:           hclCfg.Packaging.ProductLines,
			DissemLevels:           hclCfg.Packaging.DissemLevels,
			PresentationExtensions: hclCfg.Packaging.PresentationExtensions,
		}
	}

	if hclCfg.Session != nil {
		cfg.Session = SessionArgs{
			Type:   hclCfg.Session.Type,
			Config: hclCfg.Session.Config,
		}
	}

	for _, n := range hclCfg.Networks {
		if _, dup := cfg.Networks[n.Name]; dup {
			return nil, errors.Errorf("network %q declared twice", n.Name)
		}
		args := &NetworkArgs{
			ReviewDir:   n.ReviewDir,
			CompleteDir: n.CompleteDir,
			RemoteDir:   n.RemoteDir,
			JobLog:      n.JobLog,
		}
		for _, ft := range n.FileTypes {
			args.FileTypes = append(args.FileTypes, FileType{
				Pattern: ft.Pattern,
				MD5:     ft.MD5,
				Base64:  ft.Base64,
			})
		}
		for _, of := range n.OtherFiles {
			args.OtherFiles = append(args.OtherFiles, OtherFileArgs{
				Path: of.Path,
				Keep: of.Keep,
				MD5:  of.MD5,
			})
		}
		cfg.Networks[n.Name] = args
	}

	return cfg, nil
}
