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

package commons_test

import (
	"errors"
	"testing"

	"github.com/oysterpack/slee.go/pkg/commons"
)

func TestTrapPanic(t *testing.T) {
	err := commons.TrapPanic(func() error {
		panic("BOOM")
	}, "TestTrapPanic")
	panicErr, ok := err.(*commons.PanicError)
	if !ok {
		t.Fatalf("expected *PanicError but was %T", err)
	}
	if panicErr.Panic != "BOOM" {
		t.Errorf("panic value was not captured : %v", panicErr.Panic)
	}
	t.Log(err)

	cause := errors.New("cause")
	err = commons.TrapPanic(func() error { panic(cause) }, "")
	if !errors.Is(err, cause) {
		t.Errorf("panic error should unwrap to the cause : %v", err)
	}

	if err := commons.TrapPanic(func() error { return nil }, ""); err != nil {
		t.Errorf("no error expected : %v", err)
	}
}
