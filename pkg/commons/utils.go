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

// Package commons provides small helpers shared across packages
package commons

import (
	"fmt"
)

// PanicError is used to wrap any trapped panics along with a supplemental info about the context of the panic
type PanicError struct {
	Panic interface{}
	// additional info
	Message string
}

func (e *PanicError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("panic: %v : %v", e.Panic, e.Message)
	}
	return fmt.Sprintf("panic: %v", e.Panic)
}

// Unwrap returns the panic value if it was an error
func (e *PanicError) Unwrap() error {
	if err, ok := e.Panic.(error); ok {
		return err
	}
	return nil
}

// TrapPanic runs f and converts any panic into a *PanicError
func TrapPanic(f func() error, msg string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &PanicError{Panic: p, Message: msg}
		}
	}()
	return f()
}
