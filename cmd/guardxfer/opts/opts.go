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

package opts

import (
	"github.com/rs/zerolog"
	"github.com/walteh/guardxfer/cmd/guardxfer/pkg/ui"
)

// RootOpts contains shared options used by all commands
type RootOpts struct {
	ConfigFile    string
	Network       string
	SessionConfig string // overrides session.config from the config file
	Debug         bool

	UserLogger *ui.UserLogger
}

// Level returns the program log level the flags ask for
func (o *RootOpts) Level() zerolog.Level {
	if o.Debug {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}
