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
	"sync"
	"testing"

	"github.com/oysterpack/slee.go/pkg/activity"
	"github.com/oysterpack/slee.go/pkg/activitycontext"
	"github.com/oysterpack/slee.go/pkg/eventrouter"
)

// an activity is mapped to a single executor, and its events are routed in the order they were fired
func TestActivityContext_FireEvent_Ordering(t *testing.T) {
	type routed struct {
		seq      int
		executor *eventrouter.Executor
	}
	var mutex sync.Mutex
	var env *testEnv
	executions := []routed{}
	var wait sync.WaitGroup
	handler := eventrouter.EventHandlerFunc(func(ctx *eventrouter.EventContext) error {
		defer wait.Done()
		executor := env.router.Mapper().Executor(ctx.Handle)
		mutex.Lock()
		executions = append(executions, routed{ctx.Event.(int), executor})
		mutex.Unlock()
		return nil
	})
	env = newTestEnv(t, 4, handler, nil)

	h1 := activity.NewHandle(activity.ResourceAdaptorActivity, "sip", "H1")
	ac, err := env.factory.CreateActivityContext(h1, activity.NoFlags)
	if err != nil {
		t.Fatal(err)
	}
	local, err := env.factory.LocalActivityContext(ac)
	if err != nil {
		t.Fatal(err)
	}
	e2 := local.Executor()
	if e2 != env.router.Mapper().Executor(h1) {
		t.Fatal("the activity was not mapped by the mapper")
	}

	const EVENT_COUNT = 3
	wait.Add(EVENT_COUNT)
	var submitLock sync.Mutex
	submitted := []int{}
	var fired sync.WaitGroup
	fired.Add(EVENT_COUNT)
	for i := 0; i < EVENT_COUNT; i++ {
		go func(seq int) {
			defer fired.Done()
			submitLock.Lock()
			defer submitLock.Unlock()
			submitted = append(submitted, seq)
			if err := ac.FireEvent(testEventType, seq, "", nil); err != nil {
				t.Error(err)
			}
		}(i)
	}
	fired.Wait()
	wait.Wait()

	if len(executions) != EVENT_COUNT {
		t.Fatalf("all events should have been routed : %v", executions)
	}
	for i, execution := range executions {
		if execution.seq != submitted[i] {
			t.Errorf("events were not routed in submission order : %v : %v", submitted, executions)
		}
		if execution.executor != e2 {
			t.Errorf("event #%d was routed on the wrong executor", execution.seq)
		}
	}
	if stats := e2.Statistics().EventType(testEventType); stats.Routed != EVENT_COUNT {
		t.Errorf("all events should have been routed on the mapped executor : %+v", stats)
	}
}

func TestActivityContext_End(t *testing.T) {
	env := newTestEnv(t, 2, nil, nil)
	h := activity.NewHandle(activity.ServiceActivity, "svc", "1")
	ac, _ := env.factory.CreateActivityContext(h, activity.NoFlags)
	if err := ac.FireEvent(testEventType, "event", "", nil); err != nil {
		t.Fatal(err)
	}
	if env.factory.LocalActivityContextCount() != 1 {
		t.Fatal("firing an event should have materialized the local activity context")
	}

	if err := ac.End(); err != nil {
		t.Fatal(err)
	}
	if exists, _ := env.factory.ActivityContextExists(h); exists {
		t.Error("the record should have been removed")
	}
	if env.factory.LocalActivityContextCount() != 0 {
		t.Error("the local activity context should have been removed")
	}
	if err := ac.End(); err != activitycontext.ErrActivityRemoved {
		t.Errorf("ErrActivityRemoved was expected : %v", err)
	}
}

func TestActivityContext_FireEvent_Ending(t *testing.T) {
	env := newTestEnv(t, 1, nil, nil)
	h := activity.NewHandle(activity.ServiceActivity, "svc", "1")
	ac, _ := env.factory.CreateActivityContext(h, activity.NoFlags)
	env.store.Update(h, func(record *activity.Record) error {
		record.Ending = true
		return nil
	})
	if err := ac.FireEvent(testEventType, "event", "", nil); err != activitycontext.ErrActivityEnding {
		t.Errorf("ErrActivityEnding was expected : %v", err)
	}
}

func TestActivityContext_Timers(t *testing.T) {
	env := newTestEnv(t, 1, nil, nil)
	h := activity.NewHandle(activity.NullActivity, "", "1")
	ac, _ := env.factory.CreateActivityContext(h, activity.NoFlags)
	local, _ := env.factory.LocalActivityContext(ac)

	if attached, err := ac.AttachTimer("t1"); !attached || err != nil {
		t.Fatalf("timer should have been attached : %v", err)
	}
	if attached, _ := ac.AttachTimer("t1"); attached {
		t.Error("timer is already attached")
	}
	ac.AttachTimer("t2")
	if timers, _ := ac.AttachedTimers(); len(timers) != 2 {
		t.Errorf("2 timers should be attached : %v", timers)
	}
	if timers := local.Timers(); len(timers) != 2 || timers[0] != "t1" {
		t.Errorf("local timers should be tracked : %v", timers)
	}

	if detached, _ := ac.DetachTimer("t1"); !detached {
		t.Error("timer should have been detached")
	}
	if detached, _ := ac.DetachTimer("t1"); detached {
		t.Error("timer was already detached")
	}
	if timers, _ := ac.AttachedTimers(); len(timers) != 1 || timers[0] != "t2" {
		t.Errorf("only t2 should be attached : %v", timers)
	}

	ac.End()
	if _, err := ac.AttachTimer("t3"); err != activitycontext.ErrActivityRemoved {
		t.Errorf("ErrActivityRemoved was expected : %v", err)
	}
}
