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
	"fmt"
	"time"

	"github.com/oysterpack/slee.go/pkg/activity"
)

// EventTypeID identifies an event type
type EventTypeID struct {
	Name    string
	Vendor  string
	Version string
}

func (a EventTypeID) String() string {
	return fmt.Sprintf("%s#%s#%s", a.Name, a.Vendor, a.Version)
}

// EventContext is a single routable occurrence bound to an activity
type EventContext struct {
	Handle    activity.Handle
	EventType EventTypeID
	Event     interface{}
	// Address is an optional default address used when the event is routed
	Address string
	// Fired is when the event was fired
	Fired time.Time

	Callbacks *ProcessingCallbacks
}

// ProcessingCallbacks are invoked, on the executor, once the event has been routed
type ProcessingCallbacks struct {
	Succeeded func(ctx *EventContext)
	Failed    func(ctx *EventContext, err error)
}

func (a *ProcessingCallbacks) succeeded(ctx *EventContext) {
	if a != nil && a.Succeeded != nil {
		a.Succeeded(ctx)
	}
}

func (a *ProcessingCallbacks) failed(ctx *EventContext, err error) {
	if a != nil && a.Failed != nil {
		a.Failed(ctx, err)
	}
}

// EventHandler delivers an event to the entities interested in it.
// It is always invoked on the executor the event's activity is mapped to.
type EventHandler interface {
	RouteEvent(ctx *EventContext) error
}

// EventHandlerFunc is an adapter to allow the use of ordinary functions as event handlers
type EventHandlerFunc func(ctx *EventContext) error

// RouteEvent calls f(ctx)
func (f EventHandlerFunc) RouteEvent(ctx *EventContext) error {
	return f(ctx)
}
