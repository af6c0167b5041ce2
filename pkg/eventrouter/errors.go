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
	"errors"
	"fmt"
)

var (
	// ErrExecutorShutdown is returned when a task is submitted to an executor that has been shut down
	ErrExecutorShutdown = errors.New("event router executor is shut down")
	// ErrRouterNotStarted is returned when an operation requires the executor pool to exist
	ErrRouterNotStarted = errors.New("event router is not started")
	// ErrRouterAlreadyStarted is returned by Start when the executor pool already exists. Stop the router first.
	ErrRouterAlreadyStarted = errors.New("event router is already started")
	// ErrEventHandlerNil an EventHandler is required to route events
	ErrEventHandlerNil = errors.New("EventHandler is nil")
)

// MapperInstantiationError indicates that the configured executor mapper could not be created.
// The router cannot start without it.
type MapperInstantiationError struct {
	Name string
	Err  error
}

func (e *MapperInstantiationError) Error() string {
	return fmt.Sprintf("Unable to create event router executor mapper %q : %v", e.Name, e.Err)
}

func (e *MapperInstantiationError) Unwrap() error {
	return e.Err
}

// UnknownMapperError indicates that no mapper is registered under the name
type UnknownMapperError struct {
	Name string
}

func (e *UnknownMapperError) Error() string {
	return fmt.Sprintf("Unknown event router executor mapper : %q", e.Name)
}
