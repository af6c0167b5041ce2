// Copyright (c) 2017 OysterPack, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package activity

import (
	"github.com/json-iterator/go"
	"github.com/oysterpack/slee.go/pkg/data/keyvalue"
	"github.com/oysterpack/slee.go/pkg/logging"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// BoltStore is a Store that persists records in a bbolt database bucket.
// Records are JSON encoded and keyed by Handle.Key().
type BoltStore struct {
	RemovalListeners

	db     keyvalue.Database
	bucket keyvalue.Bucket
}

// OpenBoltStore creates (or opens) the database file and the records bucket
func OpenBoltStore(filePath, dbName, bucketName string) (*BoltStore, error) {
	db, err := keyvalue.CreateDatabase(filePath, dbName, true)
	if err != nil {
		return nil, err
	}
	return newBoltStore(db, bucketName)
}

// OpenExistingBoltStore opens a database that was previously created by OpenBoltStore.
// An error is returned if the file or the database does not exist.
func OpenExistingBoltStore(filePath, dbName, bucketName string) (*BoltStore, error) {
	db, err := keyvalue.OpenDatabase(filePath, dbName)
	if err != nil {
		return nil, err
	}
	return newBoltStore(db, bucketName)
}

func newBoltStore(db keyvalue.Database, bucketName string) (*BoltStore, error) {
	bucket, err := db.Bucket(bucketName)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db, bucket: bucket}, nil
}

func (a *BoltStore) Create(h Handle, record *Record) error {
	if err := h.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(record)
	if err != nil {
		return &RecordError{h, "create", err}
	}
	stored, err := a.bucket.PutIfAbsent(h.Key(), data)
	if err != nil {
		return &RecordError{h, "create", err}
	}
	if !stored {
		return ErrAlreadyExists
	}
	return nil
}

func (a *BoltStore) Get(h Handle) (*Record, error) {
	data, err := a.bucket.Get(h.Key())
	if err != nil {
		return nil, &RecordError{h, "get", err}
	}
	if data == nil {
		return nil, nil
	}
	record := &Record{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, &RecordError{h, "get", err}
	}
	return record, nil
}

func (a *BoltStore) Exists(h Handle) (bool, error) {
	data, err := a.bucket.Get(h.Key())
	if err != nil {
		return false, &RecordError{h, "exists", err}
	}
	return data != nil, nil
}

func (a *BoltStore) Update(h Handle, f func(*Record) error) error {
	err := a.bucket.Update(h.Key(), func(data []byte) ([]byte, error) {
		record := &Record{}
		if err := json.Unmarshal(data, record); err != nil {
			return nil, err
		}
		if err := f(record); err != nil {
			return nil, err
		}
		return json.Marshal(record)
	})
	if err == keyvalue.ErrKeyNotFound {
		return ErrNotFound
	}
	return err
}

func (a *BoltStore) Remove(h Handle) (bool, error) {
	existed, err := a.bucket.Delete(h.Key())
	if err != nil {
		return false, &RecordError{h, "remove", err}
	}
	if existed {
		a.Notify(h)
	}
	return existed, nil
}

func (a *BoltStore) Handles() ([]Handle, error) {
	keys, err := a.bucket.Keys()
	if err != nil {
		return nil, err
	}
	handles := make([]Handle, 0, len(keys))
	for _, key := range keys {
		h, err := ParseHandle(key)
		if err != nil {
			logger.Warn().Err(err).Str(logging.ACTIVITY, key).Msg("skipping record with invalid key")
			continue
		}
		handles = append(handles, h)
	}
	return handles, nil
}

func (a *BoltStore) Close() error {
	return a.db.Close()
}
