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

package packager

import (
	"path/filepath"
	"strings"

	"github.com/walteh/guardxfer/pkg/metadata"
)

const (
	imageDir      = "sgraphics"
	thumbnailDir  = "sgraphics/thumbnails"
	attachmentDir = "attachments"
	thumbnailExt  = ".jpg"
)

// 📦 Job is the working state for one product. The entry and cleanup lists
// only grow, and the zip is built at most once.
type Job struct {
	Product *metadata.ProductFile

	entries []string // relative to the candidate directory
	cleanup []string // absolute
	zipped  bool
}

func newJob(p *metadata.ProductFile) *Job {
	return &Job{Product: p}
}

// AddEntry registers a path, relative to the candidate directory, for the zip
func (j *Job) AddEntry(rel string) {
	j.entries = append(j.entries, filepath.ToSlash(rel))
}

// AddCleanup registers an absolute path to delete once packaging is done
func (j *Job) AddCleanup(path string) {
	j.cleanup = append(j.cleanup, path)
}

// Entries returns the zip entries in registration order
func (j *Job) Entries() []string {
	return append([]string(nil), j.entries...)
}

// Cleanup returns the cleanup targets in registration order
func (j *Job) Cleanup() []string {
	return append([]string(nil), j.cleanup...)
}

// Zipped reports whether the zip has been built for this job
func (j *Job) Zipped() bool {
	return j.zipped
}

// imageEntries returns the zip paths of an image and its thumbnail
func imageEntries(image string) (string, string) {
	name := filepath.Base(image)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return imageDir + "/" + name, thumbnailDir + "/" + stem + thumbnailExt
}

// mediaName returns the review dir name of a relocated presentation
func mediaName(org, tapeDir, name string) string {
	return org + "-" + tapeDir + "-" + name
}
