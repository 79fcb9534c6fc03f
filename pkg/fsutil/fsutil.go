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
	"strings"

	"gitlab.com/tozd/go/errors"
)

// 🔍 CheckFile reports whether path is an existing regular file the process
// can read and write. The error carries the reason when ok is false.
func CheckFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, errors.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return false, errors.Errorf("%s is not a regular file", path)
	}
	if err := access(path, false); err != nil {
		return false, errors.Errorf("access %s: %w", path, err)
	}
	return true, nil
}

// 📁 CheckDir reports whether path is a readable and writable directory,
// creating it first when it does not exist.
func CheckDir(path string) (bool, error) {
	if path == "" {
		return false, errors.New("directory path is empty")
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return false, errors.Errorf("creating directory %s: %w", path, err)
		}
		info, err = os.Stat(path)
	}
	if err != nil {
		return false, errors.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return false, errors.Errorf("%s is not a directory", path)
	}
	if err := access(path, true); err != nil {
		return false, errors.Errorf("access %s: %w", path, err)
	}
	return true, nil
}

// 📐 WithTrailingSep returns dir with exactly one trailing path separator.
func WithTrailingSep(dir string) string {
	if dir == "" {
		return dir
	}
	return strings.TrimRight(dir, string(os.PathSeparator)) + string(os.PathSeparator)
}

// 🚚 MoveFile moves src into dstDir, renaming it to newName when newName is
// not empty. It returns the destination path.
func MoveFile(src, dstDir, newName string) (string, error) {
	name := newName
	if name == "" {
		name = filepath.Base(src)
	}
	dst := filepath.Join(dstDir, name)

	if err := os.Rename(src, dst); err == nil {
		return dst, nil
	} else if _, statErr := os.Stat(src); statErr != nil {
		return "", errors.Errorf("moving %s: %w", src, err)
	}

	// rename fails across devices, fall back to copy and remove
	if err := copyFile(src, dst); err != nil {
		return "", errors.Errorf("moving %s to %s: %w", src, dst, err)
	}
	if err := os.Remove(src); err != nil {
		return dst, errors.Errorf("removing %s after copy: %w", src, err)
	}
	return dst, nil
}

// 🗑️ RemoveFile deletes a single file.
func RemoveFile(path string) error {
	if err := os.Remove(path); err != nil {
		return errors.Errorf("removing %s: %w", path, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Errorf("opening source: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return errors.Errorf("stat source: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return errors.Errorf("creating destination: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return errors.Errorf("copying: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return errors.Errorf("closing destination: %w", err)
	}
	return nil
}
