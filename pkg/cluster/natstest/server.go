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

// Package natstest runs embedded NATS servers for tests
package natstest

import (
	"github.com/nats-io/nats-server/v2/server"
	gnatsd "github.com/nats-io/nats-server/v2/test"
)

// RunServer starts a test NATS server on a random port. Use server.ClientURL() to connect to it.
func RunServer() *server.Server {
	return RunServerOnPort(server.RANDOM_PORT)
}

// RunServerOnPort starts a test NATS server on the specified port
func RunServerOnPort(port int) *server.Server {
	opts := gnatsd.DefaultTestOptions
	opts.Port = port
	return RunServerWithOptions(opts)
}

// RunJetStreamServer starts a test NATS server on a random port with JetStream enabled. JetStream file storage is
// written to storeDir.
func RunJetStreamServer(storeDir string) *server.Server {
	opts := gnatsd.DefaultTestOptions
	opts.Port = server.RANDOM_PORT
	opts.JetStream = true
	opts.StoreDir = storeDir
	return RunServerWithOptions(opts)
}

// RunServerWithOptions starts a test NATS server with the specified options
func RunServerWithOptions(opts server.Options) *server.Server {
	return gnatsd.RunServer(&opts)
}
