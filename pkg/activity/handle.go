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
	"fmt"
	"strings"
)

// Type identifies the kind of entity that owns an activity
type Type int

// Type enum values
const (
	NullActivity Type = iota
	ResourceAdaptorActivity
	ProfileTableActivity
	ServiceActivity
)

func (a Type) String() string {
	switch a {
	case NullActivity:
		return "NULL"
	case ResourceAdaptorActivity:
		return "RA"
	case ProfileTableActivity:
		return "PTABLE"
	case ServiceActivity:
		return "SERVICE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(a))
	}
}

func parseType(s string) (Type, error) {
	switch s {
	case "NULL":
		return NullActivity, nil
	case "RA":
		return ResourceAdaptorActivity, nil
	case "PTABLE":
		return ProfileTableActivity, nil
	case "SERVICE":
		return ServiceActivity, nil
	default:
		return 0, fmt.Errorf("unknown activity type : %q", s)
	}
}

// Handle is the identity of an activity context. It is comparable and is used as a map key throughout.
//
// Source names the owner of the activity within its type, e.g., the resource adaptor entity name.
// ID identifies the activity within its source, e.g., a SIP dialog id or a Diameter session id.
type Handle struct {
	Type   Type
	Source string
	ID     string
}

// NewHandle is a convenience constructor
func NewHandle(activityType Type, source, id string) Handle {
	return Handle{Type: activityType, Source: source, ID: id}
}

// Key returns the stable string form of the handle : {type}:{source}:{id}
func (a Handle) Key() string {
	return a.Type.String() + ":" + a.Source + ":" + a.ID
}

func (a Handle) String() string {
	return a.Key()
}

// Validate checks that the ID is not blank and that the source does not contain the key separator
func (a Handle) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return ErrHandleIDBlank
	}
	if strings.Contains(a.Source, ":") {
		return fmt.Errorf("activity handle source must not contain ':' : %q", a.Source)
	}
	return nil
}

// ParseHandle parses a handle key produced by Handle.Key()
func ParseHandle(key string) (Handle, error) {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) != 3 {
		return Handle{}, fmt.Errorf("invalid activity handle key : %q", key)
	}
	activityType, err := parseType(parts[0])
	if err != nil {
		return Handle{}, err
	}
	h := Handle{Type: activityType, Source: parts[1], ID: parts[2]}
	if err := h.Validate(); err != nil {
		return Handle{}, err
	}
	return h, nil
}
