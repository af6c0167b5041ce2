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

package eventrouter_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/oysterpack/slee.go/pkg/activity"
	"github.com/oysterpack/slee.go/pkg/eventrouter"
)

func handles(count int) []activity.Handle {
	hs := make([]activity.Handle, count)
	for i := range hs {
		hs[i] = activity.NewHandle(activity.ResourceAdaptorActivity, "sip", fmt.Sprintf("call-%d", i))
	}
	return hs
}

func TestMapper_Deterministic(t *testing.T) {
	for _, name := range eventrouter.MapperNames() {
		router := startRouter(t, eventrouter.Config{Threads: 4, Mapper: name}, noopHandler)
		mapper := router.Mapper()
		used := map[*eventrouter.Executor]bool{}
		for _, h := range handles(100) {
			executor := mapper.Executor(h)
			if executor == nil {
				t.Fatalf("%s : no executor was returned", name)
			}
			used[executor] = true
			for i := 0; i < 10; i++ {
				if mapper.Executor(h) != executor {
					t.Fatalf("%s : mapping is not deterministic for %v", name, h)
				}
			}
		}
		if len(used) != 4 {
			t.Errorf("%s : activities should have been spread across all executors : %d", name, len(used))
		}
	}
}

func TestMapper_EmptyPool(t *testing.T) {
	mapper, err := eventrouter.NewMapper(eventrouter.HashMapperName)
	if err != nil {
		t.Fatal(err)
	}
	if mapper.Executor(handles(1)[0]) != nil {
		t.Error("no executor should be returned for an empty pool")
	}
}

func TestNewMapper_Unknown(t *testing.T) {
	_, err := eventrouter.NewMapper("round-robin")
	if _, ok := err.(*eventrouter.UnknownMapperError); !ok {
		t.Errorf("*UnknownMapperError was expected : %T : %v", err, err)
	}
}

func TestJumpMapper_ResizeKeepsMostAssignments(t *testing.T) {
	router := startRouter(t, eventrouter.Config{Threads: 4, Mapper: eventrouter.JumpMapperName}, noopHandler)
	hs := handles(1000)
	before := make([]*eventrouter.Executor, len(hs))
	for i, h := range hs {
		before[i] = router.Mapper().Executor(h)
	}
	if err := router.Resize(); err != nil {
		t.Fatal(err)
	}
	moved := 0
	for i, h := range hs {
		if router.Mapper().Executor(h) != before[i] {
			moved++
		}
	}
	// about half are expected to move onto the new executors
	if moved == 0 || moved > 700 {
		t.Errorf("unexpected number of moved activities : %d", moved)
	}
	t.Logf("moved = %d", moved)
}

func TestRegisterMapper_Concurrent(t *testing.T) {
	var wait sync.WaitGroup
	for i := 0; i < 10; i++ {
		name := fmt.Sprintf("concurrent-%d", i)
		wait.Add(2)
		go func() {
			defer wait.Done()
			eventrouter.RegisterMapper(name, func() (eventrouter.Mapper, error) { return &eventrouter.HashMapper{}, nil })
		}()
		go func() {
			defer wait.Done()
			for j := 0; j < 100; j++ {
				if _, err := eventrouter.NewMapper(eventrouter.HashMapperName); err != nil {
					t.Error(err)
					return
				}
				eventrouter.MapperNames()
			}
		}()
	}
	wait.Wait()
	for i := 0; i < 10; i++ {
		if _, err := eventrouter.NewMapper(fmt.Sprintf("concurrent-%d", i)); err != nil {
			t.Error(err)
		}
	}
}
