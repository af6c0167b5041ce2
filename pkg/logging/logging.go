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

package logging

import (
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// logger fields
const (
	PACKAGE  = "pkg"
	TYPE     = "type"
	FUNC     = "func"
	NAME     = "name"
	EVENT    = "event"
	ID       = "id"
	STATE    = "state"
	NODE     = "node"
	ACTIVITY = "ach"
	EXECUTOR = "executor"
	TIMER    = "timer"
)

// Event is used to tag log entries with a well known event name
type Event string

// Log adds the event field to the log event
func (a Event) Log(event *zerolog.Event) *zerolog.Event {
	return event.Str(EVENT, string(a))
}

func (a Event) String() string {
	return string(a)
}

var output io.Writer = os.Stderr

// NewPackageLogger returns a new logger with pkg={pkg}
// where {pkg} is o's package path.
// o must be for a named type because the package path can only be obtained for named types.
// The pattern is to use an empty struct declared in the package.
func NewPackageLogger(o interface{}) zerolog.Logger {
	return log.With().Str(PACKAGE, packagePath(o)).Logger().Output(output)
}

// NewTypeLogger returns a new logger with pkg={pkg}, type={type}
// where {pkg} is o's package path and {type} is o's type name
func NewTypeLogger(o interface{}) zerolog.Logger {
	t := reflect.TypeOf(o)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return log.With().
		Str(PACKAGE, t.PkgPath()).
		Str(TYPE, t.Name()).
		Logger().
		Output(output)
}

func packagePath(o interface{}) string {
	t := reflect.TypeOf(o)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		panic("only objects for named types are supported")
	}
	return t.PkgPath()
}

// ParseLevel maps the configured log level to a zerolog level. Valid values are : [DEBUG,INFO,WARN,ERROR].
// The default level is WARN.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.WarnLevel
	}
}

// SetGlobalLevel sets zerolog's global log level, which applies to all package loggers
func SetGlobalLevel(level string) {
	zerolog.SetGlobalLevel(ParseLevel(level))
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}
