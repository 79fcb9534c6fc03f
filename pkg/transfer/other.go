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

package transfer

import (
	"os"
	"regexp"

	"github.com/walteh/guardxfer/pkg/config"
)

// OtherKind says how an ad-hoc entry is interpreted
type OtherKind int

const (
	// FreeformPattern entries match the configured freeform regexp and are
	// run as filters
	FreeformPattern OtherKind = iota
	// ExactPath entries name an existing regular file
	ExactPath
	// GlobPattern entries are anything else, run as filters
	GlobPattern
)

func (k OtherKind) String() string {
	switch k {
	case FreeformPattern:
		return "freeform"
	case ExactPath:
		return "path"
	case GlobPattern:
		return "glob"
	default:
		return "unknown"
	}
}

// 📎 OtherFile is one resolved ad-hoc entry
type OtherFile struct {
	Kind OtherKind
	Key  string
	Keep bool
	MD5  bool
}

// 🔍 ResolveOtherFiles decides once what each ad-hoc entry is. The freeform
// check runs first, so a matching key is a filter even if it names a file.
// A nil freeform matches nothing.
func ResolveOtherFiles(args []config.OtherFileArgs, freeform *regexp.Regexp) []OtherFile {
	out := make([]OtherFile, 0, len(args))
	for _, a := range args {
		of := OtherFile{Key: a.Path, Keep: a.Keep, MD5: a.MD5}
		switch {
		case freeform != nil && freeform.MatchString(a.Path):
			of.Kind = FreeformPattern
		case isRegularFile(a.Path):
			of.Kind = ExactPath
		default:
			of.Kind = GlobPattern
		}
		out = append(out, of)
	}
	return out
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
