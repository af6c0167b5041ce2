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
	"sync"
	"time"
)

// Record is the persisted, cluster visible state of an activity context
type Record struct {
	Flags      Flags     `json:"flags"`
	Created    time.Time `json:"created"`
	LastAccess time.Time `json:"last_access,omitempty"`
	// Timers holds the ids of the timers attached to the activity
	Timers []string `json:"timers,omitempty"`
	// Ending is set once the activity has started to end
	Ending bool `json:"ending,omitempty"`
}

// Copy returns a deep copy
func (a *Record) Copy() *Record {
	c := *a
	if a.Timers != nil {
		c.Timers = append([]string(nil), a.Timers...)
	}
	return &c
}

// AttachTimer returns false if the timer was already attached
func (a *Record) AttachTimer(id string) bool {
	for _, t := range a.Timers {
		if t == id {
			return false
		}
	}
	a.Timers = append(a.Timers, id)
	return true
}

// DetachTimer returns false if the timer was not attached
func (a *Record) DetachTimer(id string) bool {
	for i, t := range a.Timers {
		if t == id {
			a.Timers = append(a.Timers[:i], a.Timers[i+1:]...)
			return true
		}
	}
	return false
}

// RemovalNotifier notifies listeners when an activity context record is removed
type RemovalNotifier interface {
	// OnActivityRemoved registers the listener. The returned func unregisters it.
	OnActivityRemoved(listener func(Handle)) (cancel func())
}

// Store persists activity context records.
//
// All operations are atomic per handle. Create is the only way a record comes into existence and fails with
// ErrAlreadyExists if the handle already has a record. Every successful Remove notifies the removal listeners.
type Store interface {
	RemovalNotifier

	// Create stores the record if none exists for the handle
	Create(h Handle, record *Record) error

	// Get returns a copy of the record, or nil if the record does not exist
	Get(h Handle) (*Record, error)

	// Exists returns true if a record exists for the handle
	Exists(h Handle) (bool, error)

	// Update applies f to the record and stores the result. ErrNotFound is returned if the record does not exist.
	// If f returns an error, then the record is not modified.
	Update(h Handle, f func(*Record) error) error

	// Remove deletes the record and returns true if it existed
	Remove(h Handle) (bool, error)

	// Handles returns the handles of all records
	Handles() ([]Handle, error)

	// Close releases store resources
	Close() error
}

// RemovalListeners is a registry of removal listeners. The zero value is ready to use.
type RemovalListeners struct {
	mutex     sync.RWMutex
	seq       uint64
	listeners map[uint64]func(Handle)
}

// OnActivityRemoved implements RemovalNotifier
func (a *RemovalListeners) OnActivityRemoved(listener func(Handle)) (cancel func()) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if a.listeners == nil {
		a.listeners = make(map[uint64]func(Handle))
	}
	a.seq++
	id := a.seq
	a.listeners[id] = listener
	return func() {
		a.mutex.Lock()
		defer a.mutex.Unlock()
		delete(a.listeners, id)
	}
}

// Notify invokes every registered listener
func (a *RemovalListeners) Notify(h Handle) {
	a.mutex.RLock()
	listeners := make([]func(Handle), 0, len(a.listeners))
	for _, l := range a.listeners {
		listeners = append(listeners, l)
	}
	a.mutex.RUnlock()
	for _, l := range listeners {
		l(h)
	}
}
