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

package congestion

import "github.com/oysterpack/slee.go/pkg/logging"

type pkgobject struct{}

var logger = logging.NewPackageLogger(pkgobject{})

const (
	LOG_EVENT_ALARM_RAISED          logging.Event = "CONGESTION_ALARM_RAISED"
	LOG_EVENT_ALARM_CLEARED         logging.Event = "CONGESTION_ALARM_CLEARED"
	LOG_EVENT_MEMORY_ALARM_DISABLED logging.Event = "MEMORY_ALARM_DISABLED"
)
