// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhestring

import (
	"fmt"
	"strings"
	"testing"
)

// decodeFields decrypts every result slot.
func decodeFields(t *testing.T, ck *ClientKey, fields []*FheString) []string {
	t.Helper()
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = mustStr(t, ck, f)
	}
	return out
}

// checkSplit verifies the hidden count and that the first count slots
// hold the expected fields while the remaining slots are empty.
func checkSplit(t *testing.T, ck *ClientKey, res *SplitResult, want []string) {
	t.Helper()
	if got := decUint(t, ck, res.Count); got != uint64(len(want)) {
		t.Errorf("count = %d, want %d", got, len(want))
	}
	got := decodeFields(t, ck, res.Fields)
	for i, w := range want {
		if i >= len(got) {
			// the worst-case slot bound may omit a trailing empty field
			if w != "" {
				t.Errorf("missing slot %d, want %q", i, w)
			}
			continue
		}
		if got[i] != w {
			t.Errorf("field %d = %q, want %q (all: %q)", i, got[i], w, got)
		}
	}
	for i := len(want); i < len(got); i++ {
		if got[i] != "" {
			t.Errorf("slot %d = %q, want empty (all: %q)", i, got[i], got)
		}
	}
}

func reversed(v []string) []string {
	out := make([]string, len(v))
	for i, s := range v {
		out[len(v)-1-i] = s
	}
	return out
}

var splitCases = []struct{ s, pat string }{
	{"a:b:c", ":"},
	{":a:b:", ":"},
	{"abc", ":"},
	{"::", ":"},
	{"abababababa", "abab"},
	{"a::b", ":"},
	{"key=value", "="},
	{"a--b--c", "--"},
	{"--a--", "--"},
	{"abababab", "ab"},
}

func TestSplit(t *testing.T) {
	ck, sk := testKeys(t)
	for _, tc := range splitCases {
		for _, ps := range []int{0, 2} {
			for _, pp := range []int{0, 2} {
				name := fmt.Sprintf("%q/%q/pad%d-%d", tc.s, tc.pat, ps, pp)
				t.Run(name, func(t *testing.T) {
					res, err := sk.Split(triv(t, tc.s, ps), triv(t, tc.pat, pp))
					if err != nil {
						t.Fatalf("Split: %v", err)
					}
					checkSplit(t, ck, res, rustSplitClear(tc.s, tc.pat))
				})
			}
		}
	}
}

// TestSplitEmptyOperands pins down the field counts for empty strings
// and empty patterns. Counts depend on whether emptiness is public
// (no allocated cells) or hidden behind padding.
func TestSplitEmptyOperands(t *testing.T) {
	ck, sk := testKeys(t)
	cases := []struct {
		s, pat string
		ps, pp int
		count  uint64
		want   []string
	}{
		{"", ":", 0, 0, 1, []string{""}},
		{"", ":", 2, 0, 2, []string{"", ""}},
		{"", ":", 2, 2, 1, []string{""}},
		{"", "", 0, 0, 2, []string{"", ""}},
		{"", "", 2, 0, 2, []string{"", ""}},
		{"", "", 2, 2, 2, []string{"", ""}},
		{"ab", "", 0, 0, 4, []string{"", "a", "b", ""}},
		{"ab", "", 0, 2, 4, []string{"", "a", "b", ""}},
		// padding cells of the string count as empty fields when the
		// pattern is hidden-empty
		{"ab", "", 2, 0, 6, []string{"", "a", "b", "", "", ""}},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%q/%q/pad%d-%d", tc.s, tc.pat, tc.ps, tc.pp), func(t *testing.T) {
			res, err := sk.Split(triv(t, tc.s, tc.ps), triv(t, tc.pat, tc.pp))
			if err != nil {
				t.Fatalf("Split: %v", err)
			}
			if got := decUint(t, ck, res.Count); got != tc.count {
				t.Errorf("count = %d, want %d", got, tc.count)
			}
			got := decodeFields(t, ck, res.Fields)
			for i, w := range tc.want {
				if i < len(got) && got[i] != w {
					t.Errorf("field %d = %q, want %q", i, got[i], w)
				}
			}
		})
	}
}

func TestSplitReusable(t *testing.T) {
	ck, sk := testKeys(t)
	res, err := sk.SplitReusable(triv(t, "a:bc:d", 1), triv(t, ":", 0))
	if err != nil {
		t.Fatalf("SplitReusable: %v", err)
	}
	for i, f := range res.Fields {
		if !f.IsReusable() {
			t.Errorf("field %d not reusable", i)
		}
	}
	checkSplit(t, ck, res, []string{"a", "bc", "d"})
}

func TestRSplit(t *testing.T) {
	ck, sk := testKeys(t)
	cases := []struct{ s, pat string }{
		{"a:b:c", ":"},
		{":a:", ":"},
		{"abc", ":"},
		{"x--y--z", "--"},
	}
	for _, tc := range cases {
		for _, pp := range []int{0, 2} {
			t.Run(fmt.Sprintf("%q/%q/pad%d", tc.s, tc.pat, pp), func(t *testing.T) {
				res, err := sk.RSplit(triv(t, tc.s, 1), triv(t, tc.pat, pp))
				if err != nil {
					t.Fatalf("RSplit: %v", err)
				}
				checkSplit(t, ck, res, reversed(rustSplitClear(tc.s, tc.pat)))
			})
		}
	}
}

func TestSplitN(t *testing.T) {
	ck, sk := testKeys(t)
	cases := []struct {
		s, pat string
		n      int
	}{
		{"a:b:c:d", ":", 2},
		{"a:b:c:d", ":", 3},
		{"a:b:c:d", ":", 10},
		{"abc", ":", 2},
		{"a--b--c", "--", 2},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%q/%q/%d", tc.s, tc.pat, tc.n), func(t *testing.T) {
			res, err := sk.SplitN(tc.n, triv(t, tc.s, 1), triv(t, tc.pat, 0))
			if err != nil {
				t.Fatalf("SplitN: %v", err)
			}
			checkSplit(t, ck, res, rustSplitNClear(tc.s, tc.pat, tc.n))
		})
	}
}

func TestSplitNDegenerate(t *testing.T) {
	ck, sk := testKeys(t)
	s := triv(t, "a:b", 0)
	pat := triv(t, ":", 0)

	res, err := sk.SplitN(0, s, pat)
	if err != nil {
		t.Fatalf("SplitN(0): %v", err)
	}
	if len(res.Fields) != 0 || decUint(t, ck, res.Count) != 0 {
		t.Errorf("SplitN(0): %d fields, count %d", len(res.Fields), decUint(t, ck, res.Count))
	}

	res, err = sk.SplitN(1, s, pat)
	if err != nil {
		t.Fatalf("SplitN(1): %v", err)
	}
	checkSplit(t, ck, res, []string{"a:b"})
}

func TestRSplitN(t *testing.T) {
	ck, sk := testKeys(t)
	res, err := sk.RSplitN(2, triv(t, "a:b:c", 1), triv(t, ":", 0))
	if err != nil {
		t.Fatalf("RSplitN: %v", err)
	}
	// fields come back iterated from the end
	checkSplit(t, ck, res, []string{"c", "a:b"})
}

// splitInclusiveClear keeps the separator attached to the field before
// it; a separator ending the string opens no trailing empty field.
func splitInclusiveClear(s, pat string) []string {
	fields := strings.SplitAfter(s, pat)
	if n := len(fields); n > 0 && fields[n-1] == "" {
		fields = fields[:n-1]
	}
	return fields
}

func TestSplitInclusive(t *testing.T) {
	ck, sk := testKeys(t)
	cases := []struct{ s, pat string }{
		{"a:b:c", ":"},
		{"a:b:", ":"},
		{"::", ":"},
		{":", ":"},
		{"abc", ":"},
	}
	for _, tc := range cases {
		for _, ps := range []int{0, 2} {
			t.Run(fmt.Sprintf("%q/%q/pad%d", tc.s, tc.pat, ps), func(t *testing.T) {
				res, err := sk.SplitInclusive(triv(t, tc.s, ps), triv(t, tc.pat, 0))
				if err != nil {
					t.Fatalf("SplitInclusive: %v", err)
				}
				want := splitInclusiveClear(tc.s, tc.pat)
				if len(res.Fields) < len(want) {
					t.Errorf("%d slots for %d fields", len(res.Fields), len(want))
				}
				checkSplit(t, ck, res, want)
			})
		}
	}
}

func splitTerminatorClear(s, pat string) []string {
	fields := rustSplitClear(s, pat)
	if n := len(fields); n > 0 && fields[n-1] == "" {
		fields = fields[:n-1]
	}
	return fields
}

func TestSplitTerminator(t *testing.T) {
	ck, sk := testKeys(t)
	cases := []struct{ s, pat string }{
		{"a:b:c:", ":"},
		{"a:b:c", ":"},
		{":", ":"},
		{"abc", ":"},
	}
	for _, tc := range cases {
		for _, ps := range []int{0, 2} {
			t.Run(fmt.Sprintf("%q/%q/pad%d", tc.s, tc.pat, ps), func(t *testing.T) {
				res, err := sk.SplitTerminator(triv(t, tc.s, ps), triv(t, tc.pat, 0))
				if err != nil {
					t.Fatalf("SplitTerminator: %v", err)
				}
				checkSplit(t, ck, res, splitTerminatorClear(tc.s, tc.pat))
			})
		}
	}
}

func TestRSplitTerminator(t *testing.T) {
	ck, sk := testKeys(t)
	res, err := sk.RSplitTerminator(triv(t, "a:b:c:", 1), triv(t, ":", 0))
	if err != nil {
		t.Fatalf("RSplitTerminator: %v", err)
	}
	checkSplit(t, ck, res, []string{"c", "b", "a"})
}

func TestSplitASCIIWhitespace(t *testing.T) {
	ck, sk := testKeys(t)
	cases := []string{
		"a b c",
		"  leading",
		"a b ",
		"x  ",
		"one",
		"",
		"tabs\tand\nnewlines",
	}
	for _, in := range cases {
		for _, ps := range []int{0, 2} {
			t.Run(fmt.Sprintf("%q/pad%d", in, ps), func(t *testing.T) {
				res, err := sk.SplitASCIIWhitespace(triv(t, in, ps))
				if err != nil {
					t.Fatalf("SplitASCIIWhitespace: %v", err)
				}
				want := strings.FieldsFunc(in, func(r rune) bool {
					return r == ' ' || r == '\n' || r == '\t'
				})
				if got := decUint(t, ck, res.Count); got != uint64(len(want)) {
					t.Errorf("count = %d, want %d", got, len(want))
				}
				got := decodeFields(t, ck, res.Fields)
				var nonEmpty []string
				for _, f := range got {
					if f != "" {
						nonEmpty = append(nonEmpty, f)
					}
				}
				if strings.Join(nonEmpty, "\x00") != strings.Join(want, "\x00") {
					t.Errorf("fields = %q, want %q", nonEmpty, want)
				}
			})
		}
	}
}

func TestSplitOnce(t *testing.T) {
	ck, sk := testKeys(t)
	cases := []struct{ s, pat string }{
		{"key=value=more", "="},
		{"novalue", "="},
		{"=leading", "="},
		{"trailing=", "="},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%q/%q", tc.s, tc.pat), func(t *testing.T) {
			fields, found, err := sk.SplitOnce(triv(t, tc.s, 1), triv(t, tc.pat, 0))
			if err != nil {
				t.Fatalf("SplitOnce: %v", err)
			}
			before, after, ok := strings.Cut(tc.s, tc.pat)
			if got := decBool(t, ck, found); got != ok {
				t.Fatalf("found = %v, want %v", got, ok)
			}
			if !ok {
				return
			}
			got := decodeFields(t, ck, fields)
			if len(got) < 2 || got[0] != before || got[1] != after {
				t.Errorf("fields = %q, want [%q %q]", got, before, after)
			}
		})
	}
}

func TestRSplitOnce(t *testing.T) {
	ck, sk := testKeys(t)
	cases := []struct{ s, pat string }{
		{"a=b=c", "="},
		{"a=b", "="},
		{"abc", "="},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%q/%q", tc.s, tc.pat), func(t *testing.T) {
			fields, found, err := sk.RSplitOnce(triv(t, tc.s, 1), triv(t, tc.pat, 0))
			if err != nil {
				t.Fatalf("RSplitOnce: %v", err)
			}
			i := strings.LastIndex(tc.s, tc.pat)
			if got := decBool(t, ck, found); got != (i >= 0) {
				t.Fatalf("found = %v, want %v", got, i >= 0)
			}
			if i < 0 {
				return
			}
			got := decodeFields(t, ck, fields)
			before, after := tc.s[:i], tc.s[i+len(tc.pat):]
			if len(got) != 2 || got[0] != before || got[1] != after {
				t.Errorf("fields = %q, want [%q %q]", got, before, after)
			}
		})
	}
}

func TestSplitClearFastPath(t *testing.T) {
	ck, sk := testKeys(t)
	res, err := sk.Split(MustNewFheString("a,b,c"), MustNewFheString(","))
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	for i, f := range res.Fields {
		if !f.IsClear() {
			t.Errorf("field %d should be clear", i)
		}
	}
	checkSplit(t, ck, res, []string{"a", "b", "c"})
}
