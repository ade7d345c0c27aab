// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhestring

import (
	"fmt"
	"strings"
	"testing"
)

func TestCaseConversion(t *testing.T) {
	ck, sk := testKeys(t)
	inputs := []string{"", "abc", "ABC", "MiXeD CaSe 42!", "already lower", "@[`{"}
	for _, in := range inputs {
		for _, padding := range []int{0, 2} {
			t.Run(fmt.Sprintf("%q/pad%d", in, padding), func(t *testing.T) {
				s := triv(t, in, padding)

				lower, err := sk.ToLowerCase(s)
				if err != nil {
					t.Fatalf("ToLowerCase: %v", err)
				}
				if got, want := mustStr(t, ck, lower), strings.ToLower(in); got != want {
					t.Errorf("ToLowerCase(%q) = %q, want %q", in, got, want)
				}
				if lower.IsPadded() != s.IsPadded() {
					t.Error("case conversion should preserve the padded flag")
				}

				upper, err := sk.ToUpperCase(s)
				if err != nil {
					t.Fatalf("ToUpperCase: %v", err)
				}
				if got, want := mustStr(t, ck, upper), strings.ToUpper(in); got != want {
					t.Errorf("ToUpperCase(%q) = %q, want %q", in, got, want)
				}
			})
		}
	}
}

func TestCaseIdempotent(t *testing.T) {
	ck, sk := testKeys(t)
	s := triv(t, "Hello World", 1)
	lower, err := sk.ToLowerCase(s)
	if err != nil {
		t.Fatalf("ToLowerCase: %v", err)
	}
	twice, err := sk.ToLowerCase(lower)
	if err != nil {
		t.Fatalf("ToLowerCase twice: %v", err)
	}
	if a, b := mustStr(t, ck, lower), mustStr(t, ck, twice); a != b {
		t.Errorf("lowercase not idempotent: %q vs %q", a, b)
	}
}

func TestEqIgnoreCase(t *testing.T) {
	ck, sk := testKeys(t)
	cases := []struct {
		a, b string
		want bool
	}{
		{"aBcD", "abcd", true},
		{"HELLO", "hello", true},
		{"hello", "hellO", true},
		{"hello", "help", false},
		{"", "", true},
		{"a", "", false},
		{"42!", "42!", true},
	}
	for _, tc := range cases {
		t.Run(tc.a+"/"+tc.b, func(t *testing.T) {
			eq, err := sk.EqIgnoreCase(triv(t, tc.a, 1), triv(t, tc.b, 0))
			if err != nil {
				t.Fatalf("EqIgnoreCase: %v", err)
			}
			if got := decBool(t, ck, eq); got != tc.want {
				t.Errorf("EqIgnoreCase(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}
