// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhestring

import (
	"fmt"
	"strings"
	"testing"
)

var trimInputs = []string{
	"",
	"abc",
	"  abc",
	"abc  ",
	"  abc  ",
	"\t\n abc \n\t",
	"   ",
	"\n",
	"a b c",
	" a b c ",
}

func TestTrimFamily(t *testing.T) {
	ck, sk := testKeys(t)
	for _, in := range trimInputs {
		for _, padding := range []int{0, 2} {
			t.Run(fmt.Sprintf("%q/pad%d", in, padding), func(t *testing.T) {
				s := triv(t, in, padding)

				start, err := sk.TrimStart(s)
				if err != nil {
					t.Fatalf("TrimStart: %v", err)
				}
				if got, want := mustStr(t, ck, start), strings.TrimLeft(in, asciiWhitespace); got != want {
					t.Errorf("TrimStart(%q) = %q, want %q", in, got, want)
				}

				end, err := sk.TrimEnd(s)
				if err != nil {
					t.Fatalf("TrimEnd: %v", err)
				}
				if got, want := mustStr(t, ck, end), strings.TrimRight(in, asciiWhitespace); got != want {
					t.Errorf("TrimEnd(%q) = %q, want %q", in, got, want)
				}
				if !end.IsReusable() {
					t.Error("TrimEnd result should be reusable")
				}

				both, err := sk.Trim(s)
				if err != nil {
					t.Fatalf("Trim: %v", err)
				}
				if got, want := mustStr(t, ck, both), strings.Trim(in, asciiWhitespace); got != want {
					t.Errorf("Trim(%q) = %q, want %q", in, got, want)
				}
			})
		}
	}
}

func TestTrimReusableVariants(t *testing.T) {
	ck, sk := testKeys(t)
	for _, in := range trimInputs {
		t.Run(fmt.Sprintf("%q", in), func(t *testing.T) {
			s := triv(t, in, 1)

			start, err := sk.TrimStartReusable(s)
			if err != nil {
				t.Fatalf("TrimStartReusable: %v", err)
			}
			if !start.IsReusable() {
				t.Error("TrimStartReusable result should be reusable")
			}
			if got, want := mustStr(t, ck, start), strings.TrimLeft(in, asciiWhitespace); got != want {
				t.Errorf("TrimStartReusable(%q) = %q, want %q", in, got, want)
			}

			both, err := sk.TrimReusable(s)
			if err != nil {
				t.Fatalf("TrimReusable: %v", err)
			}
			if !both.IsReusable() {
				t.Error("TrimReusable result should be reusable")
			}
			if got, want := mustStr(t, ck, both), strings.Trim(in, asciiWhitespace); got != want {
				t.Errorf("TrimReusable(%q) = %q, want %q", in, got, want)
			}
		})
	}
}

var stripCases = []struct{ s, pat string }{
	{"", ""},
	{"", "a"},
	{"abc", ""},
	{"abc", "a"},
	{"abc", "ab"},
	{"abc", "abc"},
	{"abc", "b"},
	{"abc", "c"},
	{"abc", "bc"},
	{"abc", "abcd"},
	{"aaa", "aa"},
	{"prefix rest", "prefix "},
	{"rest suffix", " suffix"},
}

func TestStripPrefix(t *testing.T) {
	ck, sk := testKeys(t)
	for _, tc := range stripCases {
		for _, ps := range []int{0, 2} {
			for _, pp := range []int{0, 2} {
				name := fmt.Sprintf("%q/%q/pad%d-%d", tc.s, tc.pat, ps, pp)
				t.Run(name, func(t *testing.T) {
					out, found, err := sk.StripPrefix(triv(t, tc.s, ps), triv(t, tc.pat, pp))
					if err != nil {
						t.Fatalf("StripPrefix: %v", err)
					}
					wantStr, wantFound := strings.CutPrefix(tc.s, tc.pat)
					if got := decBool(t, ck, found); got != wantFound {
						t.Fatalf("StripPrefix(%q, %q) found = %v, want %v", tc.s, tc.pat, got, wantFound)
					}
					if got := mustStr(t, ck, out); got != wantStr {
						t.Errorf("StripPrefix(%q, %q) = %q, want %q", tc.s, tc.pat, got, wantStr)
					}
				})
			}
		}
	}
}

func TestStripPrefixReusable(t *testing.T) {
	ck, sk := testKeys(t)
	for _, tc := range stripCases {
		for _, pp := range []int{0, 2} {
			name := fmt.Sprintf("%q/%q/pad%d", tc.s, tc.pat, pp)
			t.Run(name, func(t *testing.T) {
				out, found, err := sk.StripPrefixReusable(triv(t, tc.s, 1), triv(t, tc.pat, pp))
				if err != nil {
					t.Fatalf("StripPrefixReusable: %v", err)
				}
				wantStr, wantFound := strings.CutPrefix(tc.s, tc.pat)
				if got := decBool(t, ck, found); got != wantFound {
					t.Fatalf("found = %v, want %v", got, wantFound)
				}
				if !out.IsReusable() {
					t.Error("StripPrefixReusable result should be reusable")
				}
				if got := mustStr(t, ck, out); got != wantStr {
					t.Errorf("StripPrefixReusable(%q, %q) = %q, want %q", tc.s, tc.pat, got, wantStr)
				}
			})
		}
	}
}

func TestStripSuffix(t *testing.T) {
	ck, sk := testKeys(t)
	for _, tc := range stripCases {
		for _, ps := range []int{0, 2} {
			for _, pp := range []int{0, 2} {
				name := fmt.Sprintf("%q/%q/pad%d-%d", tc.s, tc.pat, ps, pp)
				t.Run(name, func(t *testing.T) {
					out, found, err := sk.StripSuffix(triv(t, tc.s, ps), triv(t, tc.pat, pp))
					if err != nil {
						t.Fatalf("StripSuffix: %v", err)
					}
					wantStr, wantFound := strings.CutSuffix(tc.s, tc.pat)
					if got := decBool(t, ck, found); got != wantFound {
						t.Fatalf("StripSuffix(%q, %q) found = %v, want %v", tc.s, tc.pat, got, wantFound)
					}
					if !out.IsReusable() {
						t.Error("StripSuffix result should be reusable")
					}
					if got := mustStr(t, ck, out); got != wantStr {
						t.Errorf("StripSuffix(%q, %q) = %q, want %q", tc.s, tc.pat, got, wantStr)
					}
				})
			}
		}
	}
}

func TestTrimClearFastPath(t *testing.T) {
	ck, sk := testKeys(t)
	s := MustNewFheString("  padded words  ")
	out, err := sk.Trim(s)
	if err != nil {
		t.Fatalf("Trim: %v", err)
	}
	if !out.IsClear() {
		t.Error("clear input should stay clear")
	}
	if got := mustStr(t, ck, out); got != "padded words" {
		t.Errorf("Trim = %q, want %q", got, "padded words")
	}
}
