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

import "github.com/oysterpack/slee.go/pkg/logging"

type pkgobject struct{}

var logger = logging.NewPackageLogger(pkgobject{})

const (
	LOG_EVENT_TIMER_SET       logging.Event = "TIMER_SET"
	LOG_EVENT_TIMER_CANCELLED logging.Event = "TIMER_CANCELLED"
	LOG_EVENT_TIMER_ENDED     logging.Event = "TIMER_ENDED"
	LOG_EVENT_TICK_MISSED     logging.Event = "TICK_MISSED"
	LOG_EVENT_AC_GONE         logging.Event = "AC_GONE"
	LOG_EVENT_FIRE_FAILED     logging.Event = "FIRE_FAILED"
	LOG_EVENT_TICK_FAILED     logging.Event = "TICK_FAILED"
)
