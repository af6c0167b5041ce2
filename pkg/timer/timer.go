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

package timer

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/nats-io/nuid"
	"github.com/oysterpack/slee.go/pkg/activity"
	"github.com/oysterpack/slee.go/pkg/eventrouter"
)

// PreserveMissed determines whether late timer ticks are delivered
type PreserveMissed int

const (
	// PreserveNone late ticks are never delivered
	PreserveNone PreserveMissed = iota
	// PreserveAll late ticks are always delivered
	PreserveAll
	// PreserveLast late ticks are delivered only if it is the timer's final repetition
	PreserveLast
)

func (a PreserveMissed) String() string {
	switch a {
	case PreserveNone:
		return "NONE"
	case PreserveAll:
		return "ALL"
	case PreserveLast:
		return "LAST"
	default:
		return fmt.Sprintf("PreserveMissed(%d)", int(a))
	}
}

// Options are the per timer options
type Options struct {
	PreserveMissed PreserveMissed
	// Timeout is how late a tick may fire before it is considered missed. 0 means use the facility default.
	Timeout time.Duration
}

// ID uniquely identifies a timer
type ID string

// NewID returns a new unique timer id
func NewID() ID {
	return ID(nuid.Next())
}

// Infinite is reported as the remaining repetitions of a periodic timer that repeats forever
const Infinite = math.MaxInt32

// TimerEventType is the event type of the events fired by timers
var TimerEventType = eventrouter.EventTypeID{Name: "javax.slee.facilities.TimerEvent", Vendor: "javax.slee", Version: "1.0"}

// Event is fired on the timer's activity context each time the timer delivers a tick
type Event struct {
	TimerID ID
	// ScheduledTime is when the tick was scheduled to fire
	ScheduledTime time.Time
	// ExpiryTime is when the tick actually fired
	ExpiryTime time.Time
	// Period is 0 for one-shot timers
	Period               time.Duration
	NumRepetitions       int
	RemainingRepetitions int
	// MissedRepetitions is the number of ticks suppressed since the last delivered tick
	MissedRepetitions int
}

// Late returns how late the tick fired
func (a *Event) Late() time.Duration {
	return a.ExpiryTime.Sub(a.ScheduledTime)
}

var (
	// ErrActivityNotFound is returned when a timer is set on an activity context that does not exist
	ErrActivityNotFound = errors.New("timer activity context does not exist")
	// ErrFacilityStopped is returned when a timer is set after the facility was stopped
	ErrFacilityStopped = errors.New("timer facility is stopped")
)

// InvalidTimerError is returned for invalid SetTimer arguments
type InvalidTimerError struct {
	Handle activity.Handle
	Reason string
}

func (e *InvalidTimerError) Error() string {
	return fmt.Sprintf("invalid timer for %v : %s", e.Handle, e.Reason)
}
