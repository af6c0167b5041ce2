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

package activitycontext_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oysterpack/slee.go/pkg/activity"
	"github.com/oysterpack/slee.go/pkg/activitycontext"
	"github.com/oysterpack/slee.go/pkg/eventrouter"
)

type congestion struct {
	refuseStart, refuseFire bool
}

func (a *congestion) RefuseStartActivity() bool { return a.refuseStart }
func (a *congestion) RefuseFireEvent() bool     { return a.refuseFire }

var testEventType = eventrouter.EventTypeID{Name: "TestEvent", Vendor: "oysterpack", Version: "1.0"}

type testEnv struct {
	store   *activity.MemoryStore
	router  *eventrouter.Router
	factory *activitycontext.Factory
}

func newTestEnv(t *testing.T, threads int, handler eventrouter.EventHandler, cc activitycontext.CongestionControl) *testEnv {
	t.Helper()
	if handler == nil {
		handler = eventrouter.EventHandlerFunc(func(ctx *eventrouter.EventContext) error { return nil })
	}
	router, err := eventrouter.NewRouter(eventrouter.Config{Threads: threads, QueueSize: 100, CollectStats: true}, handler)
	if err != nil {
		t.Fatal(err)
	}
	if err := router.Start(); err != nil {
		t.Fatal(err)
	}
	store := activity.NewMemoryStore()
	factory := activitycontext.NewFactory(activitycontext.Config{TimeBetweenLivenessQueries: time.Minute}, store, router, cc)
	factory.Start()
	t.Cleanup(func() {
		factory.Stop()
		router.Stop()
		store.Close()
	})
	return &testEnv{store, router, factory}
}

func TestFactory_CreateActivityContext(t *testing.T) {
	env := newTestEnv(t, 4, nil, nil)
	h := activity.NewHandle(activity.ResourceAdaptorActivity, "sip", "call-1")

	ac, err := env.factory.CreateActivityContext(h, activity.RequestEndedCallback)
	if err != nil {
		t.Fatal(err)
	}
	if ac.Handle() != h {
		t.Errorf("wrong handle : %v", ac.Handle())
	}
	if flags, err := ac.Flags(); err != nil || !flags.Has(activity.RequestEndedCallback) {
		t.Errorf("flags were not persisted : %v : %v", flags, err)
	}
	if env.factory.LocalActivityContextCount() != 0 {
		t.Error("no executor should be mapped until the local activity context is requested")
	}

	_, err = env.factory.CreateActivityContext(h, activity.NoFlags)
	if !errors.Is(err, activity.ErrAlreadyExists) {
		t.Fatalf("ErrAlreadyExists was expected : %v", err)
	}
	if _, ok := err.(*activitycontext.AlreadyExistsError); !ok {
		t.Errorf("*AlreadyExistsError was expected : %T", err)
	}

	if exists, _ := env.factory.ActivityContextExists(h); !exists {
		t.Error("activity context should exist")
	}
	if count, _ := env.factory.ActivityContextCount(); count != 1 {
		t.Errorf("count should be 1 : %d", count)
	}
	t.Log(env.factory)
}

func TestFactory_CreateActivityContext_Congestion(t *testing.T) {
	cc := &congestion{refuseStart: true}
	env := newTestEnv(t, 1, nil, cc)
	h := activity.NewHandle(activity.ResourceAdaptorActivity, "sip", "call-1")
	if _, err := env.factory.CreateActivityContext(h, activity.NoFlags); err != activitycontext.ErrCongestion {
		t.Fatalf("ErrCongestion was expected : %v", err)
	}
	if exists, _ := env.factory.ActivityContextExists(h); exists {
		t.Error("the activity context should not have been created")
	}

	cc.refuseStart = false
	ac, err := env.factory.CreateActivityContext(h, activity.NoFlags)
	if err != nil {
		t.Fatal(err)
	}
	cc.refuseFire = true
	if err := ac.FireEvent(testEventType, "event", "", nil); err != activitycontext.ErrCongestion {
		t.Errorf("ErrCongestion was expected : %v", err)
	}
}

func TestFactory_ActivityContext(t *testing.T) {
	env := newTestEnv(t, 1, nil, nil)
	ra := activity.NewHandle(activity.ResourceAdaptorActivity, "sip", "call-1")
	null := activity.NewHandle(activity.NullActivity, "", "1")

	ac, err := env.factory.ActivityContext(ra, true)
	if ac != nil || err != nil {
		t.Fatalf("nil, nil was expected for a nonexistent activity : %v, %v", ac, err)
	}

	created, _ := env.factory.CreateActivityContext(ra, activity.NoFlags)
	env.factory.CreateActivityContext(null, activity.NoFlags)
	lastAccess, _ := created.LastAccessTime()

	time.Sleep(5 * time.Millisecond)
	ac, err = env.factory.ActivityContext(ra, true)
	if err != nil {
		t.Fatal(err)
	}
	if !ac.TracksIdleTime() {
		t.Error("resource adaptor activities should track idle time")
	}
	if updated, _ := ac.LastAccessTime(); !updated.After(lastAccess) {
		t.Errorf("last access time should have been updated : %v -> %v", lastAccess, updated)
	}

	if ac, _ := env.factory.ActivityContext(ra, false); ac.TracksIdleTime() {
		t.Error("idle time is only tracked when the last access time is updated")
	}
	if ac, _ := env.factory.ActivityContext(null, true); ac.TracksIdleTime() {
		t.Error("only resource adaptor activities track idle time")
	}
}

func TestFactory_LocalActivityContext_MappedOnce(t *testing.T) {
	env := newTestEnv(t, 4, nil, nil)
	h := activity.NewHandle(activity.ResourceAdaptorActivity, "sip", "call-1")
	ac, err := env.factory.CreateActivityContext(h, activity.NoFlags)
	if err != nil {
		t.Fatal(err)
	}

	const GOROUTINES = 50
	locals := make([]*activitycontext.LocalActivityContext, GOROUTINES)
	var start, done sync.WaitGroup
	start.Add(1)
	done.Add(GOROUTINES)
	for i := 0; i < GOROUTINES; i++ {
		go func(i int) {
			defer done.Done()
			start.Wait()
			local, err := env.factory.LocalActivityContext(ac)
			if err != nil {
				t.Error(err)
			}
			locals[i] = local
		}(i)
	}
	start.Done()
	done.Wait()

	for _, local := range locals {
		if local != locals[0] {
			t.Fatal("all goroutines should have gotten the same local activity context")
		}
	}
	if env.factory.LocalActivityContextCount() != 1 {
		t.Errorf("local count should be 1 : %d", env.factory.LocalActivityContextCount())
	}
	if mapped := env.router.Statistics().ActivitiesMapped(); mapped != 1 {
		t.Errorf("the activity should have been mapped exactly once : %d", mapped)
	}
	if locals[0].Executor() != env.router.Mapper().Executor(h) {
		t.Error("the activity was mapped to the wrong executor")
	}
}

func TestFactory_RemoveActivityContext(t *testing.T) {
	env := newTestEnv(t, 2, nil, nil)
	h := activity.NewHandle(activity.ResourceAdaptorActivity, "sip", "call-1")
	ac, _ := env.factory.CreateActivityContext(h, activity.NoFlags)
	local, err := env.factory.LocalActivityContext(ac)
	if err != nil {
		t.Fatal(err)
	}

	env.factory.RemoveActivityContext(ac)
	env.factory.RemoveActivityContext(ac)
	if local.Executor() != nil {
		t.Error("executor should have been cleared")
	}
	if mapped := env.router.Statistics().ActivitiesMapped(); mapped != 0 {
		t.Errorf("activity should have been unmapped exactly once : %d", mapped)
	}
	if exists, _ := env.factory.ActivityContextExists(h); !exists {
		t.Error("removing the local activity context should not remove the record")
	}
}

func TestFactory_StoreRemovalUnmapsLocalActivityContext(t *testing.T) {
	env := newTestEnv(t, 2, nil, nil)
	h := activity.NewHandle(activity.ResourceAdaptorActivity, "sip", "call-1")
	ac, _ := env.factory.CreateActivityContext(h, activity.NoFlags)
	env.factory.LocalActivityContext(ac)

	// simulates a removal performed by another node
	if removed, err := env.store.Remove(h); !removed || err != nil {
		t.Fatalf("record should have been removed : %v : %v", removed, err)
	}
	if env.factory.LocalActivityContextCount() != 0 {
		t.Error("local activity context should have been removed")
	}
	if mapped := env.router.Statistics().ActivitiesMapped(); mapped != 0 {
		t.Errorf("activity should have been unmapped : %d", mapped)
	}
	if err := ac.FireEvent(testEventType, "event", "", nil); err != activitycontext.ErrActivityRemoved {
		t.Errorf("ErrActivityRemoved was expected : %v", err)
	}

	// recreating the activity starts from scratch
	ac, err := env.factory.CreateActivityContext(h, activity.NoFlags)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.factory.LocalActivityContext(ac); err != nil {
		t.Fatal(err)
	}
	if mapped := env.router.Statistics().ActivitiesMapped(); mapped != 1 {
		t.Errorf("recreated activity should have been mapped : %d", mapped)
	}
}

func TestFactory_RouterNotStarted(t *testing.T) {
	router, _ := eventrouter.NewRouter(eventrouter.Config{}, eventrouter.EventHandlerFunc(func(ctx *eventrouter.EventContext) error { return nil }))
	factory := activitycontext.NewFactory(activitycontext.Config{}, activity.NewMemoryStore(), router, nil)
	ac, err := factory.CreateActivityContext(activity.NewHandle(activity.NullActivity, "", "1"), activity.NoFlags)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := factory.LocalActivityContext(ac); err != eventrouter.ErrRouterNotStarted {
		t.Errorf("ErrRouterNotStarted was expected : %v", err)
	}
}

// activities keep their executor when the router is resized, even though the mapper may now map them elsewhere
func TestFactory_LocalExecutorSurvivesResize(t *testing.T) {
	env := newTestEnv(t, 2, nil, nil)
	executors := map[activity.Handle]*eventrouter.Executor{}
	for _, id := range []string{"A", "B", "C", "D", "E", "F", "G", "H"} {
		h := activity.NewHandle(activity.NullActivity, "", id)
		ac, err := env.factory.CreateActivityContext(h, activity.NoFlags)
		if err != nil {
			t.Fatal(err)
		}
		local, err := env.factory.LocalActivityContext(ac)
		if err != nil {
			t.Fatal(err)
		}
		executors[h] = local.Executor()
	}

	if err := env.router.Resize(); err != nil {
		t.Fatal(err)
	}
	if count := len(env.router.Executors()); count != 4 {
		t.Fatalf("the executor pool should have doubled : %d", count)
	}

	for h, executor := range executors {
		ac, err := env.factory.ActivityContext(h, false)
		if err != nil {
			t.Fatal(err)
		}
		local, err := env.factory.LocalActivityContext(ac)
		if err != nil {
			t.Fatal(err)
		}
		if local.Executor() != executor {
			t.Errorf("%v was moved to another executor", h)
		}
	}
}

// vanishingStore removes the record right after the next Get returns it, as a removal by another node would
type vanishingStore struct {
	*activity.MemoryStore
	vanish atomic.Bool
}

func (a *vanishingStore) Get(h activity.Handle) (*activity.Record, error) {
	record, err := a.MemoryStore.Get(h)
	if record != nil && a.vanish.CompareAndSwap(true, false) {
		a.MemoryStore.Remove(h)
	}
	return record, err
}

func TestFactory_LocalActivityContext_RemovedWhileMapping(t *testing.T) {
	router, err := eventrouter.NewRouter(eventrouter.Config{Threads: 2, CollectStats: true}, eventrouter.EventHandlerFunc(func(ctx *eventrouter.EventContext) error { return nil }))
	if err != nil {
		t.Fatal(err)
	}
	if err := router.Start(); err != nil {
		t.Fatal(err)
	}
	defer router.Stop()
	store := &vanishingStore{MemoryStore: activity.NewMemoryStore()}
	factory := activitycontext.NewFactory(activitycontext.Config{}, store, router, nil)
	factory.Start()
	defer factory.Stop()

	h := activity.NewHandle(activity.ResourceAdaptorActivity, "diameter", "s1")
	ac, err := factory.CreateActivityContext(h, activity.NoFlags)
	if err != nil {
		t.Fatal(err)
	}
	store.vanish.Store(true)
	if _, err := factory.LocalActivityContext(ac); err != activitycontext.ErrActivityRemoved {
		t.Fatalf("ErrActivityRemoved was expected : %v", err)
	}
	if count := factory.LocalActivityContextCount(); count != 0 {
		t.Errorf("the local activity context should not have been kept : %d", count)
	}
	if mapped := router.Statistics().ActivitiesMapped(); mapped != 0 {
		t.Errorf("the activity should not be mapped : %d", mapped)
	}

	// the handle can be created again and gets a fresh local activity context
	if ac, err = factory.CreateActivityContext(h, activity.RequestEndedCallback); err != nil {
		t.Fatal(err)
	}
	local, err := factory.LocalActivityContext(ac)
	if err != nil {
		t.Fatal(err)
	}
	if !local.Flags().Has(activity.RequestEndedCallback) || local.Executor() == nil {
		t.Errorf("a new local activity context was expected : %v", local)
	}
	if mapped := router.Statistics().ActivitiesMapped(); mapped != 1 {
		t.Errorf("the activity should be mapped once : %d", mapped)
	}
}

func TestFactory_RouterRestart(t *testing.T) {
	env := newTestEnv(t, 2, nil, nil)
	h := activity.NewHandle(activity.ServiceActivity, "svc", "1")
	ac, err := env.factory.CreateActivityContext(h, activity.NoFlags)
	if err != nil {
		t.Fatal(err)
	}
	if err := ac.FireEvent(testEventType, "event", "", nil); err != nil {
		t.Fatal(err)
	}
	if err := env.router.Start(); err != eventrouter.ErrRouterAlreadyStarted {
		t.Fatalf("ErrRouterAlreadyStarted was expected : %v", err)
	}
	if err := ac.FireEvent(testEventType, "event", "", nil); err != nil {
		t.Errorf("the activity should still be routable : %v", err)
	}

	env.router.Stop()
	if err := env.router.Start(); err != nil {
		t.Fatal(err)
	}
	if err := ac.FireEvent(testEventType, "event", "", nil); err != nil {
		t.Errorf("the activity should have been remapped onto the new executors : %v", err)
	}
	local, err := env.factory.LocalActivityContext(ac)
	if err != nil {
		t.Fatal(err)
	}
	if local.Executor().IsShutdown() {
		t.Error("the local activity context still refers to a shut down executor")
	}
	if count := env.factory.LocalActivityContextCount(); count != 1 {
		t.Errorf("the stale local activity context should have been replaced : %d", count)
	}
}
