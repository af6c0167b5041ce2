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

package keyvalue

import (
	bolt "go.etcd.io/bbolt"
)

// Bucket is a key-value bucket. Each operation runs in its own transaction.
type Bucket interface {
	// Name returns the Bucket name
	Name() string

	// Get returns a copy of the value for the specified key, or nil if the key does not exist
	Get(key string) ([]byte, error)

	// Put sets the value for a key in the bucket. If the key exist then its previous value will be overwritten.
	Put(key string, value []byte) error

	// PutIfAbsent sets the value only if the key does not exist. Returns true if the value was stored.
	PutIfAbsent(key string, value []byte) (bool, error)

	// Update replaces the value with the value returned by f, within a single transaction.
	// ErrKeyNotFound is returned if the key does not exist.
	Update(key string, f func(value []byte) ([]byte, error)) error

	// Delete removes the key from the bucket. Returns true if the key existed.
	Delete(key string) (bool, error)

	// Keys returns the keys stored in this bucket in sorted order
	Keys() ([]string, error)
}

type bucket struct {
	name string
	path []string
	db   *bolt.DB
}

func (a *bucket) Name() string {
	return a.name
}

func (a *bucket) Get(key string) (value []byte, err error) {
	err = a.db.View(func(tx *bolt.Tx) error {
		b := lookupBucket(tx, a.path)
		if b == nil {
			return errBucketDoesNotExist(a.path)
		}
		if v := b.Get([]byte(key)); v != nil {
			// the value is only valid for the life of the transaction
			value = append([]byte{}, v...)
		}
		return nil
	})
	return
}

func (a *bucket) Put(key string, value []byte) error {
	if key == "" {
		return ErrKeyMustNotBeBlank
	}
	return a.db.Update(func(tx *bolt.Tx) error {
		b := lookupBucket(tx, a.path)
		if b == nil {
			return errBucketDoesNotExist(a.path)
		}
		return b.Put([]byte(key), value)
	})
}

func (a *bucket) PutIfAbsent(key string, value []byte) (stored bool, err error) {
	if key == "" {
		return false, ErrKeyMustNotBeBlank
	}
	err = a.db.Update(func(tx *bolt.Tx) error {
		b := lookupBucket(tx, a.path)
		if b == nil {
			return errBucketDoesNotExist(a.path)
		}
		if b.Get([]byte(key)) != nil {
			return nil
		}
		stored = true
		return b.Put([]byte(key), value)
	})
	if err != nil {
		stored = false
	}
	return
}

func (a *bucket) Update(key string, f func(value []byte) ([]byte, error)) error {
	return a.db.Update(func(tx *bolt.Tx) error {
		b := lookupBucket(tx, a.path)
		if b == nil {
			return errBucketDoesNotExist(a.path)
		}
		current := b.Get([]byte(key))
		if current == nil {
			return ErrKeyNotFound
		}
		value, err := f(append([]byte{}, current...))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), value)
	})
}

func (a *bucket) Delete(key string) (existed bool, err error) {
	err = a.db.Update(func(tx *bolt.Tx) error {
		b := lookupBucket(tx, a.path)
		if b == nil {
			return errBucketDoesNotExist(a.path)
		}
		existed = b.Get([]byte(key)) != nil
		return b.Delete([]byte(key))
	})
	if err != nil {
		existed = false
	}
	return
}

func (a *bucket) Keys() (keys []string, err error) {
	err = a.db.View(func(tx *bolt.Tx) error {
		b := lookupBucket(tx, a.path)
		if b == nil {
			return errBucketDoesNotExist(a.path)
		}
		cursor := b.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			// nil values are child buckets
			if v != nil {
				keys = append(keys, string(k))
			}
		}
		return nil
	})
	return
}
