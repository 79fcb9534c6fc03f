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

// Package ledger keeps a local history of runs and the files each one put on
// the guard, for reconciling after a crash or a partial run.
package ledger

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gitlab.com/tozd/go/errors"
	"go.etcd.io/bbolt"
)

var (
	// ErrRecordNotFound is returned when a run is not in the ledger
	ErrRecordNotFound = errors.Base("record not found")
)

var (
	runsBucket      = []byte("runs")
	transfersBucket = []byte("transfers")
)

// Disposition is what happened to the local copy after a put
type Disposition string

const (
	DispositionArchived Disposition = "archived"
	DispositionDeleted  Disposition = "deleted"
	DispositionKept     Disposition = "kept" // disposition failed, file still in place
	DispositionNone     Disposition = ""     // put failed
)

// RunRecord is one invocation of a pipeline
type RunRecord struct {
	ID          string    `json:"id"`
	Network     string    `json:"network"`
	Action      string    `json:"action"`
	Started     time.Time `json:"started"`
	Finished    time.Time `json:"finished,omitempty"`
	Transferred int       `json:"transferred"`
}

// TransferRecord is one put attempt within a run
type TransferRecord struct {
	RunID       string      `json:"run_id"`
	Seq         uint64      `json:"seq"`
	Name        string      `json:"name"`
	Source      string      `json:"source"`
	Remote      string      `json:"remote"`
	Size        int64       `json:"size"`
	OK          bool        `json:"ok"`
	Disposition Disposition `json:"disposition,omitempty"`
	Error       string      `json:"error,omitempty"`
	At          time.Time   `json:"at"`
}

// Store is the ledger interface
type Store interface {
	StartRun(run *RunRecord) error
	FinishRun(id string, transferred int, finished time.Time) error
	RecordTransfer(rec *TransferRecord) error
	GetRun(id string) (*RunRecord, error)
	ListRuns(limit int) ([]*RunRecord, error)
	ListTransfers(runID string) ([]*TransferRecord, error)
	Close() error
}

// NewRunID returns a time-ordered run id, so ledger keys sort by start time
func NewRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

var _ Store = (*BoltStore)(nil)

// DefaultTimeout bounds how long an operation waits for another process
// holding the ledger file
const DefaultTimeout = 5 * time.Second

// BoltStore is a Store implementation backed by bbolt. The file is opened
// for each operation and closed right after, so runs for other networks and
// the history command can share it.
type BoltStore struct {
	path    string
	timeout time.Duration
}

// NewBoltStore creates the ledger at path if needed
func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Errorf("creating ledger dir: %w", err)
	}

	s := &BoltStore{path: path, timeout: DefaultTimeout}
	err := s.update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(runsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(transfersBucket)
		return err
	})
	if err != nil {
		return nil, errors.Errorf("creating ledger buckets: %w", err)
	}

	return s, nil
}

func (s *BoltStore) open(readOnly bool) (*bbolt.DB, error) {
	db, err := bbolt.Open(s.path, 0o600, &bbolt.Options{Timeout: s.timeout, ReadOnly: readOnly})
	if err != nil {
		return nil, errors.Errorf("opening ledger %s: %w", s.path, err)
	}
	return db, nil
}

func (s *BoltStore) update(fn func(tx *bbolt.Tx) error) error {
	db, err := s.open(false)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Update(fn)
}

func (s *BoltStore) view(fn func(tx *bbolt.Tx) error) error {
	db, err := s.open(true)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.View(fn)
}

// StartRun saves a new run
func (s *BoltStore) StartRun(run *RunRecord) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}
	return s.update(func(tx *bbolt.Tx) error {
		return putJSON(tx.Bucket(runsBucket), []byte(run.ID), run)
	})
}

// FinishRun stamps the end of a run with its transferred count
func (s *BoltStore) FinishRun(id string, transferred int, finished time.Time) error {
	return s.update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(runsBucket)
		var run RunRecord
		if err := getJSON(b, []byte(id), &run); err != nil {
			return err
		}
		run.Finished = finished
		run.Transferred = transferred
		return putJSON(b, []byte(id), &run)
	})
}

// RecordTransfer appends a put attempt to its run and sets rec.Seq
func (s *BoltStore) RecordTransfer(rec *TransferRecord) error {
	return s.update(func(tx *bbolt.Tx) error {
		if tx.Bucket(runsBucket).Get([]byte(rec.RunID)) == nil {
			return errors.Errorf("run %s: %w", rec.RunID, ErrRecordNotFound)
		}
		b, err := tx.Bucket(transfersBucket).CreateBucketIfNotExists([]byte(rec.RunID))
		if err != nil {
			return errors.Errorf("creating transfer bucket: %w", err)
		}
		seq, err := b.NextSequence()
		if err != nil {
			return errors.Errorf("next sequence: %w", err)
		}
		rec.Seq = seq
		return putJSON(b, seqKey(seq), rec)
	})
}

// GetRun retrieves a run
func (s *BoltStore) GetRun(id string) (*RunRecord, error) {
	var run RunRecord
	err := s.view(func(tx *bbolt.Tx) error {
		return getJSON(tx.Bucket(runsBucket), []byte(id), &run)
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns up to limit runs, newest first. limit <= 0 returns all.
func (s *BoltStore) ListRuns(limit int) ([]*RunRecord, error) {
	var runs []*RunRecord
	err := s.view(func(tx *bbolt.Tx) error {
		c := tx.Bucket(runsBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var run RunRecord
			if err := json.Unmarshal(v, &run); err != nil {
				return errors.Errorf("decoding run %s: %w", k, err)
			}
			runs = append(runs, &run)
			if limit > 0 && len(runs) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// ListTransfers returns the put attempts of a run in the order they happened
func (s *BoltStore) ListTransfers(runID string) ([]*TransferRecord, error) {
	var recs []*TransferRecord
	err := s.view(func(tx *bbolt.Tx) error {
		if tx.Bucket(runsBucket).Get([]byte(runID)) == nil {
			return errors.Errorf("run %s: %w", runID, ErrRecordNotFound)
		}
		b := tx.Bucket(transfersBucket).Bucket([]byte(runID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var rec TransferRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return errors.Errorf("decoding transfer %d: %w", binary.BigEndian.Uint64(k), err)
			}
			recs = append(recs, &rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// Close is a no-op; the file is only open during an operation
func (s *BoltStore) Close() error {
	return nil
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

func putJSON(b *bbolt.Bucket, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Errorf("encoding %s: %w", key, err)
	}
	if err := b.Put(key, data); err != nil {
		return errors.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func getJSON(b *bbolt.Bucket, key []byte, v any) error {
	data := b.Get(key)
	if data == nil {
		return errors.Errorf("%s: %w", key, ErrRecordNotFound)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Errorf("decoding %s: %w", key, err)
	}
	return nil
}
