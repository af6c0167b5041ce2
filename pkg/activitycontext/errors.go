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
	"errors"
	"fmt"

	"github.com/oysterpack/slee.go/pkg/activity"
)

var (
	// ErrCongestion is returned when congestion control refuses to start an activity or to fire an event
	ErrCongestion = errors.New("refused by congestion control")
	// ErrActivityEnding is returned when an event is fired on an activity that is ending
	ErrActivityEnding = errors.New("activity is ending")
	// ErrActivityRemoved is returned when an event is fired on an activity context that no longer exists
	ErrActivityRemoved = errors.New("activity context has been removed")
)

// AlreadyExistsError is returned when an activity context is created for a handle that already has one.
// errors.Is(err, activity.ErrAlreadyExists) holds.
type AlreadyExistsError struct {
	activity.Handle
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("activity context already exists : %v", e.Handle)
}

func (e *AlreadyExistsError) Unwrap() error {
	return activity.ErrAlreadyExists
}
