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

// Package metadata reads the XML descriptor that accompanies each approved
// product in the dissem directory.
package metadata

import (
	"bytes"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// 📄 ProductFile describes one approved product: the names derived from its
// path at construction time, and the fields filled in by Parse.
type ProductFile struct {
	// derived from the candidate path
	FileName  string // candidate file name (e.g. report.html)
	FileDir   string // directory holding the candidate
	XMLName   string // companion metadata file name
	XMLPath   string // companion metadata file path
	ZipPath   string // archive destination in the review directory
	ReviewDir string
	DissemDir string

	// filled by Parse
	ProductLine string
	ObjectID    string
	DissemLevel string
	Org         string
	TapeDir     string
	Images      []string
	Media       []string
}

// wire format of the companion XML
type productXML struct {
	XMLName     xml.Name `xml:"product"`
	ProductLine string   `xml:"productLine"`
	ObjectID    string   `xml:"objectId"`
	DissemLevel string   `xml:"dissemLevel"`
	Org         string   `xml:"org"`
	TapeDir     string   `xml:"tapeDir"`
	Images      []string `xml:"images>image"`
	Media       []string `xml:"media>item"`
}

// 🏭 NewProductFile derives the fixed names for the candidate at path.
func NewProductFile(path, reviewDir, dissemDir string) *ProductFile {
	name := filepath.Base(path)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	dir := filepath.Dir(path)

	return &ProductFile{
		FileName:  name,
		FileDir:   dir,
		XMLName:   stem + ".xml",
		XMLPath:   filepath.Join(dir, stem+".xml"),
		ZipPath:   filepath.Join(reviewDir, stem+".zip"),
		ReviewDir: reviewDir,
		DissemDir: dissemDir,
	}
}

// 📝 Parse reads the companion XML and fills in the product fields.
func (p *ProductFile) Parse() error {
	data, err := os.ReadFile(p.XMLPath)
	if err != nil {
		return errors.Errorf("reading %s: %w", p.XMLPath, err)
	}

	var doc productXML
	dec := xml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return errors.Errorf("decoding %s: %w", p.XMLPath, err)
	}

	p.ProductLine = strings.TrimSpace(doc.ProductLine)
	p.ObjectID = strings.TrimSpace(doc.ObjectID)
	p.DissemLevel = strings.TrimSpace(doc.DissemLevel)
	p.Org = strings.TrimSpace(doc.Org)
	p.TapeDir = strings.Trim(strings.TrimSpace(doc.TapeDir), "/")
	p.Images = trimAll(doc.Images)
	p.Media = trimAll(doc.Media)

	return nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
