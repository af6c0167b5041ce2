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
	"time"

	"github.com/oysterpack/slee.go/pkg/activity"
	"github.com/oysterpack/slee.go/pkg/eventrouter"
	"github.com/oysterpack/slee.go/pkg/logging"
)

// ActivityContext is a view over the persisted activity record. It is cheap to create and is not cached.
type ActivityContext struct {
	factory        *Factory
	handle         activity.Handle
	tracksIdleTime bool
}

// Handle returns the activity handle
func (a *ActivityContext) Handle() activity.Handle {
	return a.handle
}

// TracksIdleTime returns true if firing events on the activity context refreshes its last access time
func (a *ActivityContext) TracksIdleTime() bool {
	return a.tracksIdleTime
}

func (a *ActivityContext) record() (*activity.Record, error) {
	record, err := a.factory.store.Get(a.handle)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrActivityRemoved
	}
	return record, nil
}

// Flags returns the activity flags
func (a *ActivityContext) Flags() (activity.Flags, error) {
	record, err := a.record()
	if err != nil {
		return activity.NoFlags, err
	}
	return record.Flags, nil
}

// LastAccessTime returns when the activity context was last accessed
func (a *ActivityContext) LastAccessTime() (time.Time, error) {
	record, err := a.record()
	if err != nil {
		return time.Time{}, err
	}
	return record.LastAccess, nil
}

// Ending returns true once End() has been called
func (a *ActivityContext) Ending() (bool, error) {
	record, err := a.record()
	if err != nil {
		return false, err
	}
	return record.Ending, nil
}

func (a *ActivityContext) touch() {
	err := a.factory.store.Update(a.handle, func(record *activity.Record) error {
		record.LastAccess = time.Now()
		return nil
	})
	if err != nil && err != activity.ErrNotFound {
		LOG_EVENT_LAST_ACCESS_ERR.Log(a.factory.logger.Warn()).Err(err).Str(logging.ACTIVITY, a.handle.Key()).Msg("")
	}
}

// AttachTimer attaches the timer to the activity context. False is returned if it was already attached.
func (a *ActivityContext) AttachTimer(id string) (bool, error) {
	attached := false
	err := a.factory.store.Update(a.handle, func(record *activity.Record) error {
		attached = record.AttachTimer(id)
		return nil
	})
	if err != nil {
		return false, a.mapNotFound(err)
	}
	if attached {
		if local, ok := a.factory.locals.Load(a.handle); ok {
			local.(*LocalActivityContext).AddTimer(id)
		}
	}
	return attached, nil
}

// DetachTimer detaches the timer from the activity context. False is returned if it was not attached.
func (a *ActivityContext) DetachTimer(id string) (bool, error) {
	detached := false
	err := a.factory.store.Update(a.handle, func(record *activity.Record) error {
		detached = record.DetachTimer(id)
		return nil
	})
	if local, ok := a.factory.locals.Load(a.handle); ok {
		local.(*LocalActivityContext).RemoveTimer(id)
	}
	if err != nil {
		return false, a.mapNotFound(err)
	}
	return detached, nil
}

// AttachedTimers returns the ids of the timers attached to the activity context
func (a *ActivityContext) AttachedTimers() ([]string, error) {
	record, err := a.record()
	if err != nil {
		return nil, err
	}
	return record.Timers, nil
}

func (a *ActivityContext) mapNotFound(err error) error {
	if err == activity.ErrNotFound {
		return ErrActivityRemoved
	}
	return err
}

// FireEvent routes the event on the executor the activity is mapped to.
// Events fired on the same activity are routed in the order they were fired.
//
// errors:
//	- ErrCongestion
//	- ErrActivityEnding
//	- ErrActivityRemoved
//	- eventrouter.ErrExecutorShutdown
func (a *ActivityContext) FireEvent(eventType eventrouter.EventTypeID, event interface{}, address string, callbacks *eventrouter.ProcessingCallbacks) error {
	if a.factory.congestion.RefuseFireEvent() {
		a.factory.refused.Inc()
		LOG_EVENT_CONGESTION.Log(a.factory.logger.Warn()).
			Str(logging.ACTIVITY, a.handle.Key()).
			Str(eventrouter.LOG_FIELD_EVENT_TYPE, eventType.String()).
			Msg("event refused")
		return ErrCongestion
	}
	ending, err := a.Ending()
	if err != nil {
		return err
	}
	if ending {
		return ErrActivityEnding
	}
	if a.tracksIdleTime {
		a.touch()
	}
	local, err := a.factory.LocalActivityContext(a)
	if err != nil {
		return err
	}
	executor := local.Executor()
	if executor == nil {
		return ErrActivityRemoved
	}
	return executor.RouteEvent(&eventrouter.EventContext{
		Handle:    a.handle,
		EventType: eventType,
		Event:     event,
		Address:   address,
		Fired:     time.Now(),
		Callbacks: callbacks,
	})
}

// End marks the activity as ending, removes its record and unmaps the local activity context.
// Events already queued on the executor are still routed.
func (a *ActivityContext) End() error {
	err := a.factory.store.Update(a.handle, func(record *activity.Record) error {
		record.Ending = true
		return nil
	})
	if err != nil {
		return a.mapNotFound(err)
	}
	LOG_EVENT_ENDING.Log(a.factory.logger.Debug()).Str(logging.ACTIVITY, a.handle.Key()).Msg("")
	if _, err := a.factory.store.Remove(a.handle); err != nil {
		return err
	}
	// no-op if the store's removal notification got there first
	a.factory.removeLocal(a.handle)
	return nil
}

func (a *ActivityContext) String() string {
	return "ActivityContext{" + a.handle.String() + "}"
}
