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

package eventrouter

import (
	"hash/fnv"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/oysterpack/slee.go/pkg/activity"
)

// Mapper assigns activities to executors.
// Executor(h) must be a pure function of the handle and the current executor pool.
type Mapper interface {
	// Executor returns the executor for the activity handle, or nil if the pool is empty
	Executor(h activity.Handle) *Executor

	// SetExecutors atomically replaces the executor pool
	SetExecutors(executors []*Executor)

	// Executors returns the current executor pool
	Executors() []*Executor
}

// MapperFactory creates a new Mapper instance
type MapperFactory func() (Mapper, error)

const (
	// HashMapperName is the default mapper
	HashMapperName = "hash"
	// JumpMapperName uses jump consistent hashing
	JumpMapperName = "jump"
)

var mappersLock sync.RWMutex

var mappers = map[string]MapperFactory{
	HashMapperName: func() (Mapper, error) { return &HashMapper{}, nil },
	JumpMapperName: func() (Mapper, error) { return &JumpMapper{}, nil },
}

// RegisterMapper registers a mapper factory by name. Registering an existing name replaces it.
// It may be called while routers are being started.
func RegisterMapper(name string, factory MapperFactory) {
	mappersLock.Lock()
	defer mappersLock.Unlock()
	mappers[name] = factory
}

// MapperNames returns the registered mapper names, sorted
func MapperNames() []string {
	mappersLock.RLock()
	defer mappersLock.RUnlock()
	names := make([]string, 0, len(mappers))
	for name := range mappers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewMapper creates the named mapper.
// An *UnknownMapperError is returned if no mapper is registered under the name.
func NewMapper(name string) (Mapper, error) {
	mappersLock.RLock()
	factory, ok := mappers[name]
	mappersLock.RUnlock()
	if !ok {
		return nil, &UnknownMapperError{name}
	}
	return factory()
}

type executorPool struct {
	pool atomic.Pointer[[]*Executor]
}

func (a *executorPool) SetExecutors(executors []*Executor) {
	pool := make([]*Executor, len(executors))
	copy(pool, executors)
	a.pool.Store(&pool)
}

func (a *executorPool) Executors() []*Executor {
	if pool := a.pool.Load(); pool != nil {
		return *pool
	}
	return nil
}

// HashMapper maps the FNV-1a hash of the handle key onto the pool, modulo the pool size
type HashMapper struct {
	executorPool
}

// Executor implements Mapper
func (a *HashMapper) Executor(h activity.Handle) *Executor {
	pool := a.Executors()
	if len(pool) == 0 {
		return nil
	}
	return pool[hashKey(h)%uint64(len(pool))]
}

// JumpMapper uses jump consistent hashing. When the pool grows from n to m executors, only (m-n)/m of the
// activities map to a different executor.
type JumpMapper struct {
	executorPool
}

// Executor implements Mapper
func (a *JumpMapper) Executor(h activity.Handle) *Executor {
	pool := a.Executors()
	if len(pool) == 0 {
		return nil
	}
	return pool[jumpHash(hashKey(h), len(pool))]
}

func hashKey(h activity.Handle) uint64 {
	hasher := fnv.New64a()
	hasher.Write([]byte(h.Key()))
	return hasher.Sum64()
}

// jumpHash is the Lamping-Veach jump consistent hash
func jumpHash(key uint64, buckets int) int {
	var b, j int64 = -1, 0
	for j < int64(buckets) {
		b = j
		key = key*2862933555777941757 + 1
		j = int64(float64(b+1) * (float64(int64(1)<<31) / float64((key>>33)+1)))
	}
	return int(b)
}
