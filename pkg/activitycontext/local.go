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

package activitycontext

import (
	"sync/atomic"

	"github.com/oysterpack/slee.go/pkg/activity"
	"github.com/oysterpack/slee.go/pkg/commons/collections/sets"
	"github.com/oysterpack/slee.go/pkg/eventrouter"
)

// LocalActivityContext is the node local, non persisted part of an activity context
type LocalActivityContext struct {
	handle   activity.Handle
	flags    activity.Flags
	executor atomic.Pointer[eventrouter.Executor]
	timers   sets.Strings
}

func newLocalActivityContext(h activity.Handle, flags activity.Flags, executor *eventrouter.Executor) *LocalActivityContext {
	local := &LocalActivityContext{
		handle: h,
		flags:  flags,
	}
	local.executor.Store(executor)
	return local
}

// Handle returns the activity handle
func (a *LocalActivityContext) Handle() activity.Handle {
	return a.handle
}

// Flags returns the activity flags at the time the local context was created
func (a *LocalActivityContext) Flags() activity.Flags {
	return a.flags
}

// Executor returns the executor the activity is mapped to. Nil is returned once the local context has been removed.
func (a *LocalActivityContext) Executor() *eventrouter.Executor {
	return a.executor.Load()
}

func (a *LocalActivityContext) clearExecutor() *eventrouter.Executor {
	return a.executor.Swap(nil)
}

// AddTimer tracks a timer scheduled on this node
func (a *LocalActivityContext) AddTimer(id string) {
	a.timers.Add(id)
}

// RemoveTimer returns false if the timer was not tracked
func (a *LocalActivityContext) RemoveTimer(id string) bool {
	return a.timers.Remove(id)
}

// Timers returns the ids of the timers scheduled on this node, sorted
func (a *LocalActivityContext) Timers() []string {
	return a.timers.Values()
}
