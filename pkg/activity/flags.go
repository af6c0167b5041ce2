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

import "strings"

// Flags is the activity flags bitmask that is supplied when the activity context is created
type Flags uint32

// activity flags
const (
	NoFlags Flags = 0
	// RequestEndedCallback requests a callback to the owner once the activity has ended
	RequestEndedCallback Flags = 1 << 0
	// RequestUnreferencedCallback requests a callback to the owner once the activity is no longer referenced
	RequestUnreferencedCallback Flags = 1 << 1
	// MayMarshal indicates the activity object may be marshalled to other nodes
	MayMarshal Flags = 1 << 2
	// SuspendedEventRouting indicates events fired on the activity are not routed until resumed
	SuspendedEventRouting Flags = 1 << 3
)

// Has returns true if all bits of f are set
func (a Flags) Has(f Flags) bool {
	return a&f == f
}

// Set returns a copy with f set
func (a Flags) Set(f Flags) Flags {
	return a | f
}

// Clear returns a copy with f cleared
func (a Flags) Clear(f Flags) Flags {
	return a &^ f
}

func (a Flags) String() string {
	if a == NoFlags {
		return "NO_FLAGS"
	}
	names := []string{}
	if a.Has(RequestEndedCallback) {
		names = append(names, "REQUEST_ENDED_CALLBACK")
	}
	if a.Has(RequestUnreferencedCallback) {
		names = append(names, "REQUEST_UNREFERENCED_CALLBACK")
	}
	if a.Has(MayMarshal) {
		names = append(names, "MAY_MARSHAL")
	}
	if a.Has(SuspendedEventRouting) {
		names = append(names, "SUSPENDED_EVENT_ROUTING")
	}
	return strings.Join(names, "|")
}
