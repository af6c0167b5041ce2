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

package activity

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyExists is returned when a record is created for a handle that already has one
	ErrAlreadyExists = errors.New("activity context already exists")
	// ErrNotFound is returned when a record update targets a handle that has no record
	ErrNotFound = errors.New("activity context not found")
	// ErrHandleIDBlank activity handle id is required
	ErrHandleIDBlank = errors.New("activity handle id must not be blank")
	// ErrStoreClosed is returned by operations on a closed store
	ErrStoreClosed = errors.New("activity store is closed")
)

// RecordError records the handle and operation that failed
type RecordError struct {
	Handle
	Op  string
	Err error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s %v : %v", e.Op, e.Handle, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
