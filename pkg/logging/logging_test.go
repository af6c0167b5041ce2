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

package logging_test

import (
	"testing"

	"github.com/oysterpack/slee.go/pkg/logging"
	"github.com/rs/zerolog"
)

type pkgobject struct{}

func TestParseLevel(t *testing.T) {
	levels := map[string]zerolog.Level{
		"DEBUG":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		" WARN ":  zerolog.WarnLevel,
		"ERROR":   zerolog.ErrorLevel,
		"unknown": zerolog.WarnLevel,
		"":        zerolog.WarnLevel,
	}
	for level, expected := range levels {
		if actual := logging.ParseLevel(level); actual != expected {
			t.Errorf("%q : expected %v but was %v", level, expected, actual)
		}
	}
}

func TestNewPackageLogger(t *testing.T) {
	logger := logging.NewPackageLogger(pkgobject{})
	logger.Info().Msg("package logger")

	func() {
		defer func() {
			if p := recover(); p == nil {
				t.Error("unnamed types should trigger a panic")
			}
		}()
		logging.NewPackageLogger(struct{}{})
	}()
}
