// Package test holds helpers shared by the package tests.
package test

import (
	"io/ioutil"
	"path/filepath"
	"reflect"
	"testing"
)

// MustBe uses reflect.DeepEqual to assert that thing1 and thing2 are equal, and
// fails otherwise.
func MustBe(t testing.TB, thing1, thing2 interface{}, context ...string) {
	t.Helper()
	var ctx string
	if len(context) == 0 {
		ctx = ""
	} else {
		ctx = context[0] + ": "
	}
	if !reflect.DeepEqual(thing1, thing2) {
		t.Fatalf("%v'%#v' != '%#v'", ctx, thing1, thing2)
	}
}

// ErrNil asserts that the err is nil and fails otherwise.
func ErrNil(t testing.TB, err error, ctx string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%v: %v", ctx, err)
	}
}

// MustTempDir creates a temporary directory and fails if it can't.
func MustTempDir(t testing.TB) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "cobindex")
	if err != nil {
		t.Fatalf("couldn't get temp dir: %v", err)
	}
	return dir
}

// MustWriteFile writes contents to name inside dir and returns the full
// path.
func MustWriteFile(t testing.TB, dir, name, contents string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := ioutil.WriteFile(p, []byte(contents), 0600); err != nil {
		t.Fatalf("writing %s: %v", p, err)
	}
	return p
}
