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

package container

import (
	"fmt"
	"sync"
	"time"
)

// State is an enum representing the container lifecycle state
type State int

// State enum values
// Normal life cycle : New -> Starting -> Running -> Stopping -> Terminated
// If the container fails while starting or stopping, then it goes into state Failed.
// A stopped container may not be restarted.
const (
	New State = iota
	Starting
	Running
	Stopping
	Terminated
	Failed
)

// Stopped returns true if the container is Terminated or Failed
func (s State) Stopped() bool {
	return s == Terminated || s == Failed
}

// ValidTransitions returns the permitted State(s) that the current State is able to transition to
func (s State) ValidTransitions() []State {
	switch s {
	case New:
		return []State{Starting, Terminated}
	case Starting:
		return []State{Running, Stopping, Failed}
	case Running:
		return []State{Stopping, Failed}
	case Stopping:
		return []State{Terminated, Failed}
	default:
		return nil
	}
}

// ValidTransition returns true is the state transition is permitted
func (s State) ValidTransition(to State) bool {
	for _, validState := range s.ValidTransitions() {
		if validState == to {
			return true
		}
	}
	return false
}

func (s State) String() string {
	switch s {
	case New:
		return "New"
	case Starting:
		return "Starting"
	case Running:
		return "Running"
	case Stopping:
		return "Stopping"
	case Terminated:
		return "Terminated"
	case Failed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// InvalidStateTransition indicates an invalid transition was attempted
type InvalidStateTransition struct {
	From State
	To   State
}

func (e *InvalidStateTransition) Error() string {
	return fmt.Sprintf("InvalidStateTransition: %v -> %v", e.From, e.To)
}

// lifecycle is used to manage the container's state
type lifecycle struct {
	mutex        sync.Mutex
	state        State
	failureCause error
	timestamp    time.Time
}

// State returns the current State and when it transitioned to the State
func (s *lifecycle) State() (State, time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.state, s.timestamp
}

// setState transitions to the specified State only if it is allowed.
// If an illegal state transition is attempted, then the state is not changed and an error is returned.
func (s *lifecycle) setState(state State) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if !s.state.ValidTransition(state) {
		return &InvalidStateTransition{s.state, state}
	}
	s.state = state
	s.timestamp = time.Now()
	return nil
}

// failed transitions to Failed, if permitted, and records the cause
func (s *lifecycle) failed(err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.state.ValidTransition(Failed) {
		s.state = Failed
		s.timestamp = time.Now()
		s.failureCause = err
	}
}

// FailureCause returns nil unless the state is Failed
func (s *lifecycle) FailureCause() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.failureCause
}
