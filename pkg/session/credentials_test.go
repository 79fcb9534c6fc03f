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

package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCredentials(t *testing.T) {
	t.Run("file_with_defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
host: guard.example
user: xfer
known_hosts: /etc/ssh/known_hosts
`), 0o600))

		creds, err := LoadCredentials(path)
		require.NoError(t, err)
		assert.Equal(t, "guard.example", creds.Host)
		assert.Equal(t, "xfer", creds.User)
		assert.Equal(t, 22, creds.Port, "port should default")
		assert.Equal(t, 30*time.Second, creds.Timeout, "timeout should default")
	})

	t.Run("env_overrides", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
host: guard.example
user: xfer
port: 2222
timeout: 5s
`), 0o600))

		t.Setenv("GUARDXFER_PASSWORD", "secret")
		t.Setenv("GUARDXFER_USER", "other")

		creds, err := LoadCredentials(path)
		require.NoError(t, err)
		assert.Equal(t, "secret", creds.Password, "password should come from the environment")
		assert.Equal(t, "other", creds.User, "environment should win over the file")
		assert.Equal(t, 2222, creds.Port)
		assert.Equal(t, 5*time.Second, creds.Timeout)
	})

	t.Run("env_only", func(t *testing.T) {
		t.Setenv("GUARDXFER_ROOT", "/mnt/guard")

		creds, err := LoadCredentials("")
		require.NoError(t, err)
		assert.Equal(t, "/mnt/guard", creds.Root)
	})

	t.Run("malformed_file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.yaml")
		require.NoError(t, os.WriteFile(path, []byte("host: [unclosed"), 0o600))

		_, err := LoadCredentials(path)
		assert.Error(t, err)
	})

	t.Run("missing_file", func(t *testing.T) {
		_, err := LoadCredentials(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
