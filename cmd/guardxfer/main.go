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

package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/guardxfer/pkg/lock"
	"gitlab.com/tozd/go/errors"
)

func main() {
	ctx := setupLogging()
	root, o := newRootCmd(ctx)
	os.Exit(execute(ctx, root, o.UserLogger, os.Args[1:]))
}

// execute runs the command line and maps the result to an exit code. Only
// startup failures exit non-zero; a run that found its lock taken is not a
// failure.
func execute(ctx context.Context, root *cobra.Command, u userLogger, args []string) int {
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, lock.ErrLocked):
		return 0
	default:
		u.LogValidation(false, "Command failed", err)
		return 1
	}
}

type userLogger interface {
	LogValidation(valid bool, description string, err error)
}

// setupLogging builds the startup logger used until a run opens its program
// log
func setupLogging() context.Context {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		Level(zerolog.InfoLevel).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger
	return logger.WithContext(context.Background())
}
