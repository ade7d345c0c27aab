// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhestring

import (
	"sync"
	"testing"
)

// Engine tests run on trivially encrypted operands: every homomorphic
// operation short-circuits to its plaintext result, so the oblivious
// control flow is exercised exactly without bootstrap keys. The tests
// guarded by testing.Short exercise real encryption end to end.

var testEnv struct {
	once   sync.Once
	err    error
	params Parameters
	ck     *ClientKey
	sk     *ServerKey
}

func testKeys(t *testing.T) (*ClientKey, *ServerKey) {
	t.Helper()
	testEnv.once.Do(func() {
		params, err := NewParametersFromLiteral(PN10QP27)
		if err != nil {
			testEnv.err = err
			return
		}
		kg := NewKeyGenerator(params)
		secret := kg.GenSecretKey()
		testEnv.params = params
		testEnv.ck = NewClientKey(params, secret)
		testEnv.sk = NewServerKey(params, nil)
	})
	if testEnv.err != nil {
		t.Fatalf("test keys: %v", testEnv.err)
	}
	return testEnv.ck, testEnv.sk
}

// triv returns s trivially encrypted with the given padding.
func triv(t *testing.T, s string, padding int) *FheString {
	t.Helper()
	fs, err := NewFheString(s)
	if err != nil {
		t.Fatalf("NewFheString(%q): %v", s, err)
	}
	enc, err := fs.TrivialEncrypt(padding)
	if err != nil {
		t.Fatalf("TrivialEncrypt(%q, %d): %v", s, padding, err)
	}
	return enc
}

// mustStr decodes an FheString back to its plaintext.
func mustStr(t *testing.T, ck *ClientKey, s *FheString) string {
	t.Helper()
	if s.IsClear() {
		return s.ClearString()
	}
	out, err := ck.DecryptToString(s)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	return out
}

func decBool(t *testing.T, ck *ClientKey, c *Ciphertext) bool {
	t.Helper()
	if c == nil {
		t.Fatal("nil boolean ciphertext")
	}
	return ck.DecryptBool(c)
}

func decUint(t *testing.T, ck *ClientKey, c *Ciphertext) uint64 {
	t.Helper()
	if c == nil {
		t.Fatal("nil ciphertext")
	}
	return ck.DecryptUint64(c)
}
