// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhestring

import (
	"fmt"
	"strings"
	"testing"
)

// replaceCases cover the in-place scenario (pattern at least as long
// as the replacement), the split-and-concatenate scenario (replacement
// longer) and degenerate patterns.
var replaceCases = []struct{ s, from, to string }{
	{"a:bc:d:ef", ":", "|"},
	{"mississippi", "ss", "SS"},
	{"banana", "an", "x"},
	{"aaaa", "aa", "b"},
	{"abababababa", "abab", "X"},
	{"abc", "b", "BBB"},
	{"a:b:c", ":", "--"},
	{"abc", "x", "y"},
	{"ab", "abc", "x"},
	{"abc", "", "X"},
}

func TestReplace(t *testing.T) {
	ck, sk := testKeys(t)
	for _, tc := range replaceCases {
		for _, ps := range []int{0, 2} {
			name := fmt.Sprintf("%q/%q->%q/pad%d", tc.s, tc.from, tc.to, ps)
			t.Run(name, func(t *testing.T) {
				got, err := sk.Replace(triv(t, tc.s, ps), triv(t, tc.from, 0), triv(t, tc.to, 0))
				if err != nil {
					t.Fatalf("Replace: %v", err)
				}
				want := strings.Replace(tc.s, tc.from, tc.to, -1)
				if dec := mustStr(t, ck, got); dec != want {
					t.Errorf("Replace = %q, want %q", dec, want)
				}
			})
		}
	}
}

func TestReplaceReusable(t *testing.T) {
	ck, sk := testKeys(t)
	got, err := sk.ReplaceReusable(triv(t, "banana", 1), triv(t, "an", 0), triv(t, "x", 0))
	if err != nil {
		t.Fatalf("ReplaceReusable: %v", err)
	}
	if !got.IsReusable() {
		t.Error("result not reusable")
	}
	if dec := mustStr(t, ck, got); dec != "bxxa" {
		t.Errorf("ReplaceReusable = %q, want %q", dec, "bxxa")
	}
}

func TestReplaceN(t *testing.T) {
	ck, sk := testKeys(t)
	cases := []struct {
		s, from, to string
		n           int
	}{
		{"a:bc:d:ef", ":", "|", 2},
		{"a:bc:d:ef", ":", "|", 0},
		{"a:b:c", ":", "|", 10},
		{"aaaa", "aa", "b", 1},
		// a match at index zero with a zero budget must leave the
		// string intact
		{"abc", "a", "bb", 0},
		{"aaaa", "aa", "b", 0},
		{"abc", "b", "BBB", 1},
		{"a:b:c", ":", "--", 1},
	}
	for _, tc := range cases {
		for _, ps := range []int{0, 2} {
			name := fmt.Sprintf("%q/%q->%q/%d/pad%d", tc.s, tc.from, tc.to, tc.n, ps)
			t.Run(name, func(t *testing.T) {
				got, err := sk.ReplaceN(triv(t, tc.s, ps), triv(t, tc.from, 0), triv(t, tc.to, 0), tc.n)
				if err != nil {
					t.Fatalf("ReplaceN: %v", err)
				}
				want := strings.Replace(tc.s, tc.from, tc.to, tc.n)
				if dec := mustStr(t, ck, got); dec != want {
					t.Errorf("ReplaceN = %q, want %q", dec, want)
				}
			})
		}
	}
}

// TestReplaceNPaddedPattern exercises a padded pattern under a
// replacement budget, including the zero budget with a leading match.
func TestReplaceNPaddedPattern(t *testing.T) {
	ck, sk := testKeys(t)
	cases := []struct {
		s, from, to string
		n           int
	}{
		{"aaaa", "aa", "b", 0},
		{"aaaa", "aa", "b", 1},
		{"a:b:c", ":", "|", 2},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%q/%q->%q/%d", tc.s, tc.from, tc.to, tc.n), func(t *testing.T) {
			got, err := sk.ReplaceN(triv(t, tc.s, 0), triv(t, tc.from, 2), triv(t, tc.to, 0), tc.n)
			if err != nil {
				t.Fatalf("ReplaceN: %v", err)
			}
			want := strings.Replace(tc.s, tc.from, tc.to, tc.n)
			if dec := mustStr(t, ck, got); dec != want {
				t.Errorf("ReplaceN = %q, want %q", dec, want)
			}
		})
	}
}

// TestReplaceNHiddenEmptyPattern pins the bounded replace with a
// hidden-empty pattern over a padded haystack: the copy that an
// unbounded replace appends after the last character is dropped, as
// its position cannot be told apart from the padding.
func TestReplaceNHiddenEmptyPattern(t *testing.T) {
	ck, sk := testKeys(t)

	got, err := sk.ReplaceN(triv(t, "ab", 2), triv(t, "", 2), triv(t, "X", 0), 10)
	if err != nil {
		t.Fatalf("ReplaceN: %v", err)
	}
	if dec := mustStr(t, ck, got); dec != "XaXb" {
		t.Errorf("ReplaceN = %q, want %q", dec, "XaXb")
	}

	// the unbounded replace keeps the trailing copy
	got, err = sk.Replace(triv(t, "ab", 2), triv(t, "", 2), triv(t, "X", 0))
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if dec := mustStr(t, ck, got); dec != "XaXbX" {
		t.Errorf("Replace = %q, want %q", dec, "XaXbX")
	}
}

// TestReplaceHiddenEmptyPattern exercises a padded pattern whose
// emptiness is not publicly known.
func TestReplaceHiddenEmptyPattern(t *testing.T) {
	ck, sk := testKeys(t)
	cases := []struct{ s, from, to string }{
		{"ab", "", "X"},
		{"a:b", ":", "|"},
		{"a:b", ":", "||"},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%q/%q->%q", tc.s, tc.from, tc.to), func(t *testing.T) {
			got, err := sk.Replace(triv(t, tc.s, 0), triv(t, tc.from, 2), triv(t, tc.to, 0))
			if err != nil {
				t.Fatalf("Replace: %v", err)
			}
			want := strings.Replace(tc.s, tc.from, tc.to, -1)
			if dec := mustStr(t, ck, got); dec != want {
				t.Errorf("Replace = %q, want %q", dec, want)
			}
		})
	}
}

// TestReplacePaddedReplacement exercises a padded replacement string,
// which forces the split-and-concatenate scenario.
func TestReplacePaddedReplacement(t *testing.T) {
	ck, sk := testKeys(t)
	got, err := sk.Replace(triv(t, "a:b:c", 1), triv(t, ":", 0), triv(t, "|", 2))
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if dec := mustStr(t, ck, got); dec != "a|b|c" {
		t.Errorf("Replace = %q, want %q", dec, "a|b|c")
	}
}

// TestReplaceClearOperands covers the plaintext fast paths: all-clear
// inputs, and a clear haystack and pattern with a hidden replacement.
func TestReplaceClearOperands(t *testing.T) {
	ck, sk := testKeys(t)

	got, err := sk.Replace(MustNewFheString("a:b"), MustNewFheString(":"), MustNewFheString("|"))
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if !got.IsClear() {
		t.Error("all-clear replace should stay clear")
	}
	if dec := mustStr(t, ck, got); dec != "a|b" {
		t.Errorf("Replace = %q, want %q", dec, "a|b")
	}

	got, err = sk.Replace(MustNewFheString("a:b"), MustNewFheString(":"), triv(t, "|", 0))
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if got.IsClear() {
		t.Error("hidden replacement must produce a hidden result")
	}
	if !got.IsReusable() {
		t.Error("unpadded interleave should be reusable")
	}
	if dec := mustStr(t, ck, got); dec != "a|b" {
		t.Errorf("Replace = %q, want %q", dec, "a|b")
	}

	got, err = sk.ReplaceN(MustNewFheString("a:b:c"), MustNewFheString(":"), triv(t, "|", 0), 1)
	if err != nil {
		t.Fatalf("ReplaceN: %v", err)
	}
	if dec := mustStr(t, ck, got); dec != "a|b:c" {
		t.Errorf("ReplaceN = %q, want %q", dec, "a|b:c")
	}
}
