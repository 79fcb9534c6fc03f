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

package log

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 📒 ProgramLog is the diagnostic log of one invocation. Events go to the
// console and are appended to a file under the log directory.
type ProgramLog struct {
	zerolog.Logger
	file *os.File
	once sync.Once
}

// 🏭 OpenProgramLog opens (appending) the diagnostic log at path and returns a
// logger writing to both it and console.
func OpenProgramLog(path string, console io.Writer, level zerolog.Level) (*ProgramLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Errorf("creating log dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Errorf("opening program log %s: %w", path, err)
	}

	cw := zerolog.ConsoleWriter{Out: console, TimeFormat: "15:04:05"}
	mw := zerolog.MultiLevelWriter(cw, f)

	return &ProgramLog{
		Logger: zerolog.New(mw).Level(level).With().Timestamp().Logger(),
		file:   f,
	}, nil
}

// 📝 Path returns the file backing the log
func (p *ProgramLog) Path() string {
	return p.file.Name()
}

// 🔒 Close flushes and closes the log file. Safe to call more than once.
func (p *ProgramLog) Close() error {
	var err error
	p.once.Do(func() {
		if serr := p.file.Sync(); serr != nil {
			err = errors.Errorf("syncing program log: %w", serr)
		}
		if cerr := p.file.Close(); cerr != nil && err == nil {
			err = errors.Errorf("closing program log: %w", cerr)
		}
	})
	return err
}
