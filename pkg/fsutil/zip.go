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
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
	"gitlab.com/tozd/go/errors"
)

// 📦 MakeZip writes an archive at zipPath holding entries, each a path
// relative to baseDir. The archive is built in a temp file next to zipPath
// and renamed into place, so a failure never leaves a partial zip behind.
func MakeZip(zipPath, baseDir string, entries []string) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(zipPath), ".zip-*")
	if err != nil {
		return errors.Errorf("creating temp archive: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	zw := zip.NewWriter(tmp)
	for _, entry := range entries {
		if err = addZipEntry(zw, baseDir, entry); err != nil {
			return err
		}
	}

	if err = zw.Close(); err != nil {
		return errors.Errorf("finalizing archive: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return errors.Errorf("closing temp archive: %w", err)
	}
	if err = os.Rename(tmp.Name(), zipPath); err != nil {
		return errors.Errorf("renaming archive into place: %w", err)
	}
	return nil
}

func addZipEntry(zw *zip.Writer, baseDir, entry string) error {
	src := filepath.Join(baseDir, entry)

	f, err := os.Open(src)
	if err != nil {
		return errors.Errorf("opening zip entry %s: %w", entry, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.Errorf("stat zip entry %s: %w", entry, err)
	}

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return errors.Errorf("building header for %s: %w", entry, err)
	}
	hdr.Name = filepath.ToSlash(entry)
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return errors.Errorf("adding %s to archive: %w", entry, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return errors.Errorf("writing %s to archive: %w", entry, err)
	}
	return nil
}
