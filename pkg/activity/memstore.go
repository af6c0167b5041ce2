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

import "sync"

// MemoryStore is a Store backed by a map. It is used by single node deployments and tests.
type MemoryStore struct {
	RemovalListeners

	mutex   sync.RWMutex
	records map[Handle]*Record
	closed  bool
}

// NewMemoryStore returns a new empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[Handle]*Record)}
}

func (a *MemoryStore) Create(h Handle, record *Record) error {
	if err := h.Validate(); err != nil {
		return err
	}
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if a.closed {
		return ErrStoreClosed
	}
	if _, exists := a.records[h]; exists {
		return ErrAlreadyExists
	}
	a.records[h] = record.Copy()
	return nil
}

func (a *MemoryStore) Get(h Handle) (*Record, error) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	if a.closed {
		return nil, ErrStoreClosed
	}
	if record := a.records[h]; record != nil {
		return record.Copy(), nil
	}
	return nil, nil
}

func (a *MemoryStore) Exists(h Handle) (bool, error) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	if a.closed {
		return false, ErrStoreClosed
	}
	_, exists := a.records[h]
	return exists, nil
}

func (a *MemoryStore) Update(h Handle, f func(*Record) error) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if a.closed {
		return ErrStoreClosed
	}
	record := a.records[h]
	if record == nil {
		return ErrNotFound
	}
	update := record.Copy()
	if err := f(update); err != nil {
		return err
	}
	a.records[h] = update
	return nil
}

func (a *MemoryStore) Remove(h Handle) (bool, error) {
	a.mutex.Lock()
	if a.closed {
		a.mutex.Unlock()
		return false, ErrStoreClosed
	}
	_, exists := a.records[h]
	delete(a.records, h)
	a.mutex.Unlock()

	if exists {
		a.Notify(h)
	}
	return exists, nil
}

func (a *MemoryStore) Handles() ([]Handle, error) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	if a.closed {
		return nil, ErrStoreClosed
	}
	handles := make([]Handle, 0, len(a.records))
	for h := range a.records {
		handles = append(handles, h)
	}
	return handles, nil
}

func (a *MemoryStore) Close() error {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.closed = true
	return nil
}
