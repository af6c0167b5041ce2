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

package cluster

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nuid"
	"github.com/oysterpack/slee.go/pkg/activity"
	"github.com/oysterpack/slee.go/pkg/eventrouter"
	"github.com/oysterpack/slee.go/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"gopkg.in/tomb.v2"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config is the cluster configuration
type Config struct {
	// URL is the NATS server url. Clustering is disabled if blank.
	URL string `yaml:"nats_url"`
	// Bucket is the JetStream key/value bucket that holds the activity records. Defaults to DEFAULT_BUCKET.
	Bucket string `yaml:"bucket"`
	// Storage is either "file" or "memory". Defaults to "file".
	Storage string `yaml:"storage"`
	// Replicas defaults to 1
	Replicas int `yaml:"replicas"`
	// ReconnectWait defaults to 2s
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
}

const (
	DEFAULT_BUCKET         = "slee_activities"
	DEFAULT_RECONNECT_WAIT = 2 * time.Second

	STORAGE_FILE   = "file"
	STORAGE_MEMORY = "memory"
)

// WithDefaults returns a copy of the config with unset fields set to their defaults
func (a Config) WithDefaults() Config {
	if a.Bucket == "" {
		a.Bucket = DEFAULT_BUCKET
	}
	if a.Storage == "" {
		a.Storage = STORAGE_FILE
	}
	if a.Replicas <= 0 {
		a.Replicas = 1
	}
	if a.ReconnectWait <= 0 {
		a.ReconnectWait = DEFAULT_RECONNECT_WAIT
	}
	return a
}

// Enabled returns true if a NATS url is configured
func (a Config) Enabled() bool {
	return a.URL != ""
}

// Validate checks the config after defaults have been applied
func (a Config) Validate() error {
	if !a.Enabled() {
		return ErrURLBlank
	}
	if _, err := a.storageType(); err != nil {
		return err
	}
	return nil
}

func (a Config) storageType() (nats.StorageType, error) {
	switch a.Storage {
	case STORAGE_FILE:
		return nats.FileStorage, nil
	case STORAGE_MEMORY:
		return nats.MemoryStorage, nil
	default:
		return 0, &StorageError{a.Storage}
	}
}

var (
	// ErrURLBlank NATS url is required
	ErrURLBlank = errors.New("cluster NATS url must not be blank")
)

// StorageError is returned for an unsupported bucket storage type
type StorageError struct {
	Storage string
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("unsupported cluster storage : %q", e.Storage)
}

const MetricsSubSystem = "cluster"

// Store is an activity.Store shared by every node connected to the same JetStream key/value bucket.
//
// Create is a bucket level create, so a handle has at most one record across the cluster. Updates are compare and
// set on the entry revision. Removal listeners are notified once per removal: synchronously for removals made
// through this store, and from the bucket watcher for removals made by other nodes.
type Store struct {
	activity.RemovalListeners

	node    string
	conn    *nats.Conn
	kv      nats.KeyValue
	watcher nats.KeyWatcher

	// delete markers written by this node that the watcher has not yet seen, per key
	pendingLock sync.Mutex
	pending     map[string]int

	tomb   tomb.Tomb
	closed atomic.Bool

	removals       prometheus.Counter
	remoteRemovals prometheus.Counter
	conflicts      prometheus.Counter

	logger zerolog.Logger
}

// Connect connects to NATS, creates the key/value bucket if it does not exist and starts watching it for removals.
func Connect(config Config) (*Store, error) {
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	node := nuid.Next()
	store := &Store{
		node:    node,
		pending: make(map[string]int),
		logger:  logger.With().Str(logging.NODE, node).Logger(),
		removals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: eventrouter.MetricsNamespace,
			Subsystem: MetricsSubSystem,
			Name:      "removals",
			Help:      "The number of activity records removed by this node",
		}),
		remoteRemovals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: eventrouter.MetricsNamespace,
			Subsystem: MetricsSubSystem,
			Name:      "remote_removals",
			Help:      "The number of activity records removed by other nodes",
		}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: eventrouter.MetricsNamespace,
			Subsystem: MetricsSubSystem,
			Name:      "update_conflicts",
			Help:      "The number of record writes retried because another node wrote the record first",
		}),
	}
	conn, err := nats.Connect(config.URL,
		nats.Name(node),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(conn *nats.Conn, err error) {
			LOG_EVENT_DISCONNECTED.Log(store.logger.Warn()).Err(err).Msg("")
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			LOG_EVENT_RECONNECTED.Log(store.logger.Info()).Str("url", conn.ConnectedUrl()).Msg("")
		}),
		nats.ClosedHandler(func(conn *nats.Conn) {
			LOG_EVENT_CLOSED.Log(store.logger.Info()).Msg("")
		}),
	)
	if err != nil {
		return nil, err
	}
	store.conn = conn
	if store.kv, err = bucket(conn, config); err != nil {
		conn.Close()
		return nil, err
	}
	if store.watcher, err = store.kv.WatchAll(nats.UpdatesOnly()); err != nil {
		conn.Close()
		return nil, err
	}
	store.tomb.Go(store.watch)
	LOG_EVENT_CONNECTED.Log(store.logger.Info()).Str("url", conn.ConnectedUrl()).Str("bucket", config.Bucket).Msg("")
	return store, nil
}

func bucket(conn *nats.Conn, config Config) (nats.KeyValue, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, err
	}
	kv, err := js.KeyValue(config.Bucket)
	if err == nil || !errors.Is(err, nats.ErrBucketNotFound) {
		return kv, err
	}
	storage, _ := config.storageType()
	return js.CreateKeyValue(&nats.KeyValueConfig{
		Bucket:      config.Bucket,
		Description: "SLEE activity context records",
		History:     1,
		Storage:     storage,
		Replicas:    config.Replicas,
	})
}

// NodeID returns the node's unique id
func (a *Store) NodeID() string {
	return a.node
}

// Collectors returns the cluster metrics
func (a *Store) Collectors() []prometheus.Collector {
	return []prometheus.Collector{a.removals, a.remoteRemovals, a.conflicts}
}

func (a *Store) Create(h activity.Handle, record *activity.Record) error {
	if err := h.Validate(); err != nil {
		return err
	}
	if a.closed.Load() {
		return activity.ErrStoreClosed
	}
	data, err := json.Marshal(record)
	if err != nil {
		return &activity.RecordError{Handle: h, Op: "create", Err: err}
	}
	if _, err := a.kv.Create(key(h), data); err != nil {
		if errors.Is(err, nats.ErrKeyExists) {
			return activity.ErrAlreadyExists
		}
		return &activity.RecordError{Handle: h, Op: "create", Err: err}
	}
	return nil
}

// entry returns nil if the handle has no record
func (a *Store) entry(h activity.Handle, op string) (nats.KeyValueEntry, error) {
	if a.closed.Load() {
		return nil, activity.ErrStoreClosed
	}
	entry, err := a.kv.Get(key(h))
	if err != nil {
		if errors.Is(err, nats.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, &activity.RecordError{Handle: h, Op: op, Err: err}
	}
	return entry, nil
}

func (a *Store) Get(h activity.Handle) (*activity.Record, error) {
	entry, err := a.entry(h, "get")
	if err != nil || entry == nil {
		return nil, err
	}
	record := &activity.Record{}
	if err := json.Unmarshal(entry.Value(), record); err != nil {
		return nil, &activity.RecordError{Handle: h, Op: "get", Err: err}
	}
	return record, nil
}

func (a *Store) Exists(h activity.Handle) (bool, error) {
	entry, err := a.entry(h, "exists")
	return entry != nil, err
}

// Update applies f to the latest revision of the record. If another node wrote the record in the meantime, then f is
// applied again to the newer revision.
func (a *Store) Update(h activity.Handle, f func(*activity.Record) error) error {
	for {
		entry, err := a.entry(h, "update")
		if err != nil {
			return err
		}
		if entry == nil {
			return activity.ErrNotFound
		}
		record := &activity.Record{}
		if err := json.Unmarshal(entry.Value(), record); err != nil {
			return &activity.RecordError{Handle: h, Op: "update", Err: err}
		}
		if err := f(record); err != nil {
			return err
		}
		data, err := json.Marshal(record)
		if err != nil {
			return &activity.RecordError{Handle: h, Op: "update", Err: err}
		}
		_, err = a.kv.Update(entry.Key(), data, entry.Revision())
		if err == nil {
			return nil
		}
		if !errors.Is(err, nats.ErrKeyExists) {
			return &activity.RecordError{Handle: h, Op: "update", Err: err}
		}
		a.conflicts.Inc()
	}
}

// Remove deletes the record and notifies the listeners. Only the node whose delete succeeds reports true.
func (a *Store) Remove(h activity.Handle) (bool, error) {
	for {
		entry, err := a.entry(h, "remove")
		if err != nil || entry == nil {
			return false, err
		}
		a.expectDelete(entry.Key(), 1)
		err = a.kv.Delete(entry.Key(), nats.LastRevision(entry.Revision()))
		if err == nil {
			a.removals.Inc()
			a.Notify(h)
			return true, nil
		}
		a.expectDelete(entry.Key(), -1)
		if !errors.Is(err, nats.ErrKeyExists) {
			return false, &activity.RecordError{Handle: h, Op: "remove", Err: err}
		}
		a.conflicts.Inc()
	}
}

func (a *Store) expectDelete(key string, delta int) {
	a.pendingLock.Lock()
	defer a.pendingLock.Unlock()
	if n := a.pending[key] + delta; n > 0 {
		a.pending[key] = n
	} else {
		delete(a.pending, key)
	}
}

// ownDelete returns true if the delete marker was written by this node
func (a *Store) ownDelete(key string) bool {
	a.pendingLock.Lock()
	defer a.pendingLock.Unlock()
	n, ok := a.pending[key]
	if !ok {
		return false
	}
	if n > 1 {
		a.pending[key] = n - 1
	} else {
		delete(a.pending, key)
	}
	return true
}

func (a *Store) Handles() ([]activity.Handle, error) {
	if a.closed.Load() {
		return nil, activity.ErrStoreClosed
	}
	keys, err := a.kv.Keys()
	if err != nil {
		if errors.Is(err, nats.ErrNoKeysFound) {
			return []activity.Handle{}, nil
		}
		return nil, err
	}
	handles := make([]activity.Handle, 0, len(keys))
	for _, k := range keys {
		h, err := parseKey(k)
		if err != nil {
			LOG_EVENT_INVALID_KEY.Log(a.logger.Warn()).Err(err).Str("key", k).Msg("")
			continue
		}
		handles = append(handles, h)
	}
	return handles, nil
}

func (a *Store) watch() error {
	updates := a.watcher.Updates()
	for {
		select {
		case <-a.tomb.Dying():
			return nil
		case entry, ok := <-updates:
			if !ok {
				return nil
			}
			// nil marks the end of the initial values
			if entry == nil {
				continue
			}
			switch entry.Operation() {
			case nats.KeyValueDelete, nats.KeyValuePurge:
				a.deleted(entry.Key())
			}
		}
	}
}

func (a *Store) deleted(k string) {
	if a.ownDelete(k) {
		return
	}
	h, err := parseKey(k)
	if err != nil {
		LOG_EVENT_INVALID_KEY.Log(a.logger.Warn()).Err(err).Str("key", k).Msg("")
		return
	}
	a.remoteRemovals.Inc()
	LOG_EVENT_REMOTE_REMOVAL.Log(a.logger.Debug()).Str(logging.ACTIVITY, h.Key()).Msg("")
	a.Notify(h)
}

// Close stops the bucket watcher and closes the NATS connection. The bucket and its records are left in place.
func (a *Store) Close() error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}
	defer a.conn.Close()
	err := a.watcher.Stop()
	a.tomb.Kill(nil)
	a.tomb.Wait()
	return err
}
