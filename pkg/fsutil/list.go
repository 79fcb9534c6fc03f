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

package fsutil

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
)

// 📄 Candidate is a file found by a directory scan. It lives for one pass and
// is never persisted.
type Candidate struct {
	Path    string // absolute or dir-joined path to the file
	Dir     string // directory the scan ran in
	Pattern string // filter that matched
}

// 🔎 ListFiltered returns the regular files matching pattern, sorted by path.
// A relative pattern is matched inside dir; an absolute pattern is matched
// from its own static prefix. Patterns follow doublestar syntax, so "*"
// never crosses a directory boundary.
func ListFiltered(dir, pattern string) ([]Candidate, error) {
	root := dir
	pat := filepath.ToSlash(pattern)
	if filepath.IsAbs(pattern) {
		root, pat = doublestar.SplitPattern(pat)
		root = filepath.FromSlash(root)
	}

	if !doublestar.ValidatePattern(pat) {
		return nil, errors.Errorf("invalid filter pattern %q", pattern)
	}

	matches, err := doublestar.Glob(os.DirFS(root), pat, doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.Errorf("listing %s with %q: %w", root, pattern, err)
	}

	sort.Strings(matches)

	out := make([]Candidate, 0, len(matches))
	for _, m := range matches {
		out = append(out, Candidate{
			Path:    filepath.Join(root, filepath.FromSlash(m)),
			Dir:     dir,
			Pattern: pattern,
		})
	}
	return out, nil
}
