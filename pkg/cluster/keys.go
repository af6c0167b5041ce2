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

package cluster

import (
	"encoding/base64"

	"github.com/oysterpack/slee.go/pkg/activity"
)

// key encodes the handle key into the bucket key charset [-_a-zA-Z0-9]
func key(h activity.Handle) string {
	return base64.RawURLEncoding.EncodeToString([]byte(h.Key()))
}

func parseKey(k string) (activity.Handle, error) {
	data, err := base64.RawURLEncoding.DecodeString(k)
	if err != nil {
		return activity.Handle{}, err
	}
	return activity.ParseHandle(string(data))
}
