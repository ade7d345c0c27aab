// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhestring

import (
	"errors"
	"testing"
)

func TestNewFheStringRejectsNonASCII(t *testing.T) {
	if _, err := NewFheString("caf\xc3\xa9"); !errors.Is(err, ErrNotASCII) {
		t.Errorf("non-ASCII input: got %v, want ErrNotASCII", err)
	}
	if _, err := NewFheString("a\x00b"); !errors.Is(err, ErrNotASCII) {
		t.Errorf("NUL input: got %v, want ErrNotASCII", err)
	}
	if _, err := NewFheString("plain ascii"); err != nil {
		t.Errorf("ascii input: unexpected error %v", err)
	}
}

func TestTrivialEncryptFlags(t *testing.T) {
	ck, _ := testKeys(t)

	s := triv(t, "abc", 0)
	if s.IsPadded() || !s.IsReusable() || !s.IsEncrypted() {
		t.Errorf("unpadded: padded=%v reusable=%v encrypted=%v", s.IsPadded(), s.IsReusable(), s.IsEncrypted())
	}
	if s.Len() != 3 {
		t.Errorf("unpadded length: got %d, want 3", s.Len())
	}

	p := triv(t, "abc", 2)
	if !p.IsPadded() || !p.IsReusable() {
		t.Errorf("padded: padded=%v reusable=%v", p.IsPadded(), p.IsReusable())
	}
	if p.Len() != 5 {
		t.Errorf("padded length: got %d, want 5", p.Len())
	}

	for _, v := range []*FheString{s, p} {
		if got := mustStr(t, ck, v); got != "abc" {
			t.Errorf("round trip: got %q, want %q", got, "abc")
		}
	}
}

func TestDecryptInteriorZero(t *testing.T) {
	ck, _ := testKeys(t)

	cells := []*Ciphertext{
		NewTrivial('a', CellBlocks),
		NewTrivial(0, CellBlocks),
		NewTrivial('b', CellBlocks),
	}
	bad := FromCells(cells, true, true)
	if _, err := ck.DecryptToString(bad); !errors.Is(err, ErrInteriorZero) {
		t.Errorf("reusable with interior zero: got %v, want ErrInteriorZero", err)
	}

	// a non-reusable value filters interior zeros instead
	loose := FromCells(cells, true, false)
	if got := mustStr(t, ck, loose); got != "ab" {
		t.Errorf("non-reusable decrypt: got %q, want %q", got, "ab")
	}
}

func TestSubStringFlags(t *testing.T) {
	ck, _ := testKeys(t)

	s := triv(t, "hello", 0)
	sub, err := s.SubString(1, 4)
	if err != nil {
		t.Fatalf("SubString: %v", err)
	}
	if !sub.IsPadded() || !sub.IsReusable() {
		t.Errorf("substring flags: padded=%v reusable=%v", sub.IsPadded(), sub.IsReusable())
	}
	if got := mustStr(t, ck, sub); got != "ell" {
		t.Errorf("substring: got %q, want %q", got, "ell")
	}

	if _, err := s.SubString(2, 9); err == nil {
		t.Error("out-of-range substring: expected error")
	}
}

func TestReverseFlags(t *testing.T) {
	ck, _ := testKeys(t)

	s := triv(t, "abc", 0)
	s.Reverse()
	if !s.IsReusable() {
		t.Error("reversed unpadded value should stay reusable")
	}
	if got := mustStr(t, ck, s); got != "cba" {
		t.Errorf("reverse: got %q, want %q", got, "cba")
	}

	p := triv(t, "abc", 2)
	p.Reverse()
	if p.IsReusable() {
		t.Error("reversing a padded value moves padding to the front")
	}
}

func TestRepeatRepresentation(t *testing.T) {
	ck, _ := testKeys(t)

	s := triv(t, "ab", 0)
	r := s.Repeat(3)
	if r.Len() != 6 {
		t.Errorf("repeat length: got %d, want 6", r.Len())
	}
	if !r.IsReusable() {
		t.Error("repeating an unpadded value should stay reusable")
	}
	if got := mustStr(t, ck, r); got != "ababab" {
		t.Errorf("repeat: got %q, want %q", got, "ababab")
	}

	if got := s.Repeat(0).Len(); got != 0 {
		t.Errorf("repeat 0 length: got %d, want 0", got)
	}

	p := triv(t, "ab", 1)
	if p.Repeat(2).IsReusable() {
		t.Error("repeating a padded value leaves zeros inside")
	}
}

func TestConcatFlags(t *testing.T) {
	ck, _ := testKeys(t)

	a := triv(t, "foo", 0)
	b := triv(t, "bar", 2)
	cat, err := Concat(a, b)
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}
	if !cat.IsReusable() || !cat.IsPadded() {
		t.Errorf("unpadded+padded concat: padded=%v reusable=%v", cat.IsPadded(), cat.IsReusable())
	}
	if got := mustStr(t, ck, cat); got != "foobar" {
		t.Errorf("concat: got %q, want %q", got, "foobar")
	}

	// padding before the last element lands inside the result
	cat2, err := Concat(b, a)
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}
	if cat2.IsReusable() {
		t.Error("padded+unpadded concat should not be reusable")
	}
}

func TestEncryptRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("real encryption in short mode")
	}
	ck, _ := testKeys(t)

	enc, err := ck.EncryptStr("secret", 3)
	if err != nil {
		t.Fatalf("EncryptStr: %v", err)
	}
	if enc.Len() != 9 {
		t.Errorf("encrypted length: got %d, want 9", enc.Len())
	}
	if got := mustStr(t, ck, enc); got != "secret" {
		t.Errorf("round trip: got %q, want %q", got, "secret")
	}
}
