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

package ledger

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "nested", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBoltStoreRuns(t *testing.T) {
	s := openStore(t)
	start := time.Date(2024, 3, 9, 14, 0, 0, 0, time.UTC)

	ids := []string{NewRunID(), NewRunID(), NewRunID()}
	for i, id := range ids {
		require.NoError(t, s.StartRun(&RunRecord{
			ID:      id,
			Network: "SIPR",
			Action:  "process",
			Started: start.Add(time.Duration(i) * time.Minute),
		}))
	}

	require.NoError(t, s.FinishRun(ids[1], 4, start.Add(90*time.Second)))

	got, err := s.GetRun(ids[1])
	require.NoError(t, err)
	assert.Equal(t, 4, got.Transferred)
	assert.True(t, got.Finished.Equal(start.Add(90*time.Second)))

	runs, err := s.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID, "newest run should come first")
	assert.Equal(t, ids[1], runs[1].ID)

	all, err := s.ListRuns(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestBoltStoreTransfers(t *testing.T) {
	s := openStore(t)
	runID := NewRunID()
	require.NoError(t, s.StartRun(&RunRecord{ID: runID, Network: "CW", Action: "process"}))

	first := &TransferRecord{RunID: runID, Name: "a.zip", OK: true, Disposition: DispositionArchived}
	second := &TransferRecord{RunID: runID, Name: "b.zip", Error: "permission denied"}
	require.NoError(t, s.RecordTransfer(first))
	require.NoError(t, s.RecordTransfer(second))
	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, uint64(2), second.Seq)

	recs, err := s.ListTransfers(runID)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "a.zip", recs[0].Name)
	assert.True(t, recs[0].OK)
	assert.Equal(t, DispositionArchived, recs[0].Disposition)
	assert.Equal(t, "permission denied", recs[1].Error)

	other := NewRunID()
	require.NoError(t, s.StartRun(&RunRecord{ID: other}))
	empty, err := s.ListTransfers(other)
	require.NoError(t, err)
	assert.Empty(t, empty, "a run without puts has no transfers")
}

func TestBoltStoreNotFound(t *testing.T) {
	s := openStore(t)

	_, err := s.GetRun("missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)

	assert.ErrorIs(t, s.FinishRun("missing", 1, time.Now()), ErrRecordNotFound)
	assert.ErrorIs(t, s.RecordTransfer(&TransferRecord{RunID: "missing"}), ErrRecordNotFound)

	_, err = s.ListTransfers("missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)

	assert.Error(t, s.StartRun(&RunRecord{}), "a run needs an id")
}

func TestBoltStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := NewBoltStore(path)
	require.NoError(t, err)

	id := NewRunID()
	require.NoError(t, s.StartRun(&RunRecord{ID: id, Network: "BICES"}))
	require.NoError(t, s.Close())

	s, err = NewBoltStore(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetRun(id)
	require.NoError(t, err)
	assert.Equal(t, "BICES", got.Network)
}

func TestBoltStoreSharedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	sipr, err := NewBoltStore(path)
	require.NoError(t, err)
	defer sipr.Close()

	cw, err := NewBoltStore(path)
	require.NoError(t, err, "a second store on the same file should open while the first is in use")
	defer cw.Close()

	siprRun := NewRunID()
	cwRun := NewRunID()
	require.NoError(t, sipr.StartRun(&RunRecord{ID: siprRun, Network: "SIPR", Action: "process"}))
	require.NoError(t, cw.StartRun(&RunRecord{ID: cwRun, Network: "CW", Action: "process"}))

	var wg sync.WaitGroup
	for i, s := range []*BoltStore{sipr, cw} {
		runID := []string{siprRun, cwRun}[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 5 {
				assert.NoError(t, s.RecordTransfer(&TransferRecord{RunID: runID, Name: "a.zip", OK: true}))
			}
		}()
	}
	wg.Wait()

	reader, err := NewBoltStore(path)
	require.NoError(t, err)
	runs, err := reader.ListRuns(0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	for _, id := range []string{siprRun, cwRun} {
		recs, err := reader.ListTransfers(id)
		require.NoError(t, err)
		assert.Len(t, recs, 5)
	}
}
