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

package keyvalue_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/oysterpack/slee.go/pkg/data/keyvalue"
	bolt "go.etcd.io/bbolt"
)

func dbFile(t *testing.T, dbName string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), dbName+".db")
}

func TestCreateDatabase(t *testing.T) {
	startOfTest := time.Now()
	dbFile := dbFile(t, "TestCreateDatabase")
	dbName := "test"

	db, err := keyvalue.CreateDatabase(dbFile, dbName, true)
	if err != nil {
		t.Fatal(err)
	}

	fileStats, err := os.Stat(dbFile)
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("name = %s, size = %d, mode = %v, modTime = %v", fileStats.Name(), fileStats.Size(), fileStats.Mode(), fileStats.ModTime())

	if db.Name() != dbName {
		t.Errorf("db name does not match : %s", db.Name())
	}
	created, err := db.Created()
	if err != nil {
		t.Errorf("Failed to get the database create timestamp : %v", err)
	}
	if created.Before(startOfTest) {
		t.Errorf("The created time should be after the start of the test : %v < %v", created, startOfTest)
	}
	db.Close()

	// when ifNotExists=true, CreateDatabase will simply open the existing database
	db, err = keyvalue.CreateDatabase(dbFile, dbName, true)
	if err != nil {
		t.Fatal(err)
	}
	created2, err := db.Created()
	if err != nil {
		t.Fatal(err)
	}
	if !created2.Equal(created) {
		t.Errorf("The created timestamp should be the same as before : %v", created2)
	}
	db.Close()
	if _, err := db.Created(); !errors.Is(err, bolt.ErrDatabaseNotOpen) {
		t.Errorf("the closed database error should have been returned : %v", err)
	}

	_, err = keyvalue.CreateDatabase(dbFile, dbName, false)
	if err != keyvalue.ErrDatabaseBucketAlreadyExists {
		t.Errorf("ErrDatabaseBucketAlreadyExists should have been returned because the database already exists : %v", err)
	}
}

func TestOpenDatabase(t *testing.T) {
	dbFile := dbFile(t, "TestOpenDatabase")
	dbName := "test"

	if _, err := keyvalue.OpenDatabase(dbFile, dbName); err == nil {
		t.Errorf("An error should have been returned because the database file does not exist")
	}

	db, err := keyvalue.CreateDatabase(dbFile, dbName, true)
	if err != nil {
		t.Fatal(err)
	}
	db.Close()

	if _, err := keyvalue.OpenDatabase(dbFile, "other"); err == nil {
		t.Error("An error should have been returned because the root bucket does not exist")
	}

	db, err = keyvalue.OpenDatabase(dbFile, dbName)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if db.Name() != dbName {
		t.Errorf("db name does not match : %s", db.Name())
	}
}

func TestBucket(t *testing.T) {
	db, err := keyvalue.CreateDatabase(dbFile(t, "TestBucket"), "test", true)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := db.Bucket(" "); err != keyvalue.ErrBucketNameMustNotBeBlank {
		t.Errorf("blank bucket names are not allowed : %v", err)
	}

	bucket, err := db.Bucket("activities")
	if err != nil {
		t.Fatal(err)
	}

	if stored, err := bucket.PutIfAbsent("a", []byte("1")); err != nil || !stored {
		t.Fatalf("value should have been stored : %v : %v", stored, err)
	}
	if stored, err := bucket.PutIfAbsent("a", []byte("2")); err != nil || stored {
		t.Fatalf("value should not have been stored : %v : %v", stored, err)
	}
	if value, _ := bucket.Get("a"); string(value) != "1" {
		t.Errorf("value was overwritten : %s", value)
	}

	err = bucket.Update("a", func(value []byte) ([]byte, error) {
		return append(value, '1'), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if value, _ := bucket.Get("a"); string(value) != "11" {
		t.Errorf("value was not updated : %s", value)
	}

	failure := errors.New("update failed")
	if err := bucket.Update("a", func(value []byte) ([]byte, error) { return nil, failure }); err != failure {
		t.Errorf("update error should have been returned : %v", err)
	}
	if err := bucket.Update("b", func(value []byte) ([]byte, error) { return value, nil }); err != keyvalue.ErrKeyNotFound {
		t.Errorf("ErrKeyNotFound should have been returned : %v", err)
	}

	if err := bucket.Put("b", []byte("2")); err != nil {
		t.Fatal(err)
	}
	keys, err := bucket.Keys()
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("keys do not match : %v", keys)
	}

	if existed, err := bucket.Delete("a"); err != nil || !existed {
		t.Errorf("key should have been deleted : %v : %v", existed, err)
	}
	if existed, err := bucket.Delete("a"); err != nil || existed {
		t.Errorf("key was already deleted : %v : %v", existed, err)
	}
	if value, _ := bucket.Get("a"); value != nil {
		t.Errorf("value should be nil after delete : %v", value)
	}
}
