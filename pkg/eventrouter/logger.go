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

import "github.com/oysterpack/slee.go/pkg/logging"

type pkgobject struct{}

var logger = logging.NewPackageLogger(pkgobject{})

// log fields
const (
	LOG_FIELD_EVENT_TYPE = "event_type"
	LOG_FIELD_MAPPER     = "mapper"
	LOG_FIELD_EXECUTORS  = "executors"
	LOG_FIELD_QUEUE_SIZE = "queue_size"

	LOG_EVENT_STARTED  logging.Event = "STARTED"
	LOG_EVENT_STOPPED  logging.Event = "STOPPED"
	LOG_EVENT_RESIZED  logging.Event = "RESIZED"
	LOG_EVENT_SHUTDOWN logging.Event = "SHUTDOWN"

	LOG_EVENT_TASK_FAILED       logging.Event = "TASK_FAILED"
	LOG_EVENT_ROUTING_FAILED    logging.Event = "ROUTING_FAILED"
	LOG_EVENT_CALLER_RUNS       logging.Event = "CALLER_RUNS"
	LOG_EVENT_CALLBACK_FAILED   logging.Event = "CALLBACK_FAILED"
	LOG_EVENT_ACTIVITY_MAPPED   logging.Event = "ACTIVITY_MAPPED"
	LOG_EVENT_ACTIVITY_UNMAPPED logging.Event = "ACTIVITY_UNMAPPED"
)
