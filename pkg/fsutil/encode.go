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
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gitlab.com/tozd/go/errors"
)

const (
	// HashSuffix is appended to a file name to form its digest file.
	HashSuffix = ".md5.txt"
	// Base64Suffix is appended to the encoded sibling of a file.
	Base64Suffix = ".64.txt"

	base64LineLen = 76
)

// 🔐 MakeMD5 writes the hex MD5 digest of path to path+".md5.txt" and returns
// the digest file path.
func MakeMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Errorf("hashing %s: %w", path, err)
	}

	hashPath := path + HashSuffix
	if err := os.WriteFile(hashPath, []byte(hex.EncodeToString(h.Sum(nil))), 0o644); err != nil {
		return "", errors.Errorf("writing %s: %w", hashPath, err)
	}
	return hashPath, nil
}

// 🏷️ Base64Name returns the name of the encoded sibling of path: the dot of the
// extension becomes an underscore and ".64.txt" is appended, so "a/b.zip"
// becomes "a/b_zip.64.txt".
func Base64Name(path string) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	if ext != "" {
		ext = "_" + ext[1:]
	}
	return base + ext + Base64Suffix
}

// 🔤 EncodeBase64 writes src to dst as base64 text in 76 column lines, each
// ending with a newline.
func EncodeBase64(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return errors.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return errors.Errorf("creating %s: %w", dst, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = errors.Errorf("closing %s: %w", dst, cerr)
		}
		if err != nil {
			os.Remove(dst)
		}
	}()

	lw := &lineWriter{w: out, width: base64LineLen}
	enc := base64.NewEncoder(base64.StdEncoding, lw)
	if _, err := io.Copy(enc, in); err != nil {
		return errors.Errorf("encoding %s: %w", src, err)
	}
	if err := enc.Close(); err != nil {
		return errors.Errorf("flushing encoder: %w", err)
	}
	if err := lw.finish(); err != nil {
		return errors.Errorf("finishing %s: %w", dst, err)
	}
	return nil
}

// lineWriter breaks a byte stream into fixed width lines.
type lineWriter struct {
	w     io.Writer
	width int
	col   int
}

func (l *lineWriter) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		n := l.width - l.col
		if n > len(p) {
			n = len(p)
		}
		if _, err := l.w.Write(p[:n]); err != nil {
			return written, err
		}
		written += n
		l.col += n
		p = p[n:]
		if l.col == l.width {
			if _, err := l.w.Write([]byte{'\n'}); err != nil {
				return written, err
			}
			l.col = 0
		}
	}
	return written, nil
}

func (l *lineWriter) finish() error {
	if l.col == 0 {
		return nil
	}
	_, err := l.w.Write([]byte{'\n'})
	l.col = 0
	return err
}
