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

package lock

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "locks")

	h, err := Acquire(dir, "process", "SIPR")
	require.NoError(t, err)
	assert.True(t, h.Held())
	assert.Equal(t, filepath.Join(dir, "guardxfer-process-sipr.lock"), h.Path())

	_, err = Acquire(dir, "process", "SIPR")
	assert.ErrorIs(t, err, ErrLocked, "a second lock on the same pair should fail")

	other, err := Acquire(dir, "process", "CW")
	require.NoError(t, err, "a different network is a different lock")
	require.NoError(t, other.Release())

	require.NoError(t, h.Release())
	assert.False(t, h.Held())
	require.NoError(t, h.Release(), "releasing twice should be harmless")

	again, err := Acquire(dir, "process", "SIPR")
	require.NoError(t, err, "a released lock can be taken again")
	require.NoError(t, again.Release())
}

func TestNilHandle(t *testing.T) {
	var h *Handle
	assert.False(t, h.Held())
	assert.Empty(t, h.Path())
	assert.NoError(t, h.Release())
}
