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

package sets

import (
	"fmt"
	"sort"
	"sync"
)

// Strings represents a set of strings.
// The collection is concurrency safe. The zero value is an empty set ready to use.
type Strings struct {
	mutex  sync.RWMutex
	values map[string]struct{}
}

var entry = struct{}{}

// NewStrings returns a set containing the specified values
func NewStrings(values ...string) *Strings {
	set := &Strings{values: make(map[string]struct{}, len(values))}
	for _, s := range values {
		set.values[s] = entry
	}
	return set
}

// Values returns the set of strings, sorted
func (a *Strings) Values() []string {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	values := make([]string, 0, len(a.values))
	for k := range a.values {
		values = append(values, k)
	}
	sort.Strings(values)
	return values
}

// Add returns true if the string was added to the set.
// false is returned if the string already exists in the set.
func (a *Strings) Add(s string) bool {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if a.contains(s) {
		return false
	}
	if a.values == nil {
		a.values = make(map[string]struct{})
	}
	a.values[s] = entry
	return true
}

func (a *Strings) contains(s string) bool {
	_, exists := a.values[s]
	return exists
}

// Contains returns true if the string is in the set
func (a *Strings) Contains(s string) bool {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return a.contains(s)
}

// Remove returns true if the string was removed from the set.
// false is returned if the string did not exist in the set
func (a *Strings) Remove(s string) bool {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	contained := a.contains(s)
	delete(a.values, s)
	return contained
}

// Clear clears the set and returns the values that were removed
func (a *Strings) Clear() []string {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	values := make([]string, 0, len(a.values))
	for k := range a.values {
		values = append(values, k)
	}
	a.values = nil
	sort.Strings(values)
	return values
}

// Size returns the collection size
func (a *Strings) Size() int {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return len(a.values)
}

// Empty return true if Size() == 0
func (a *Strings) Empty() bool {
	return a.Size() == 0
}

func (a *Strings) String() string { return fmt.Sprintf("%v", a.Values()) }
