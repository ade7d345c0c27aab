// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhestring

import (
	"fmt"
	"testing"
)

var comparePairs = []struct{ a, b string }{
	{"", ""},
	{"", "a"},
	{"a", ""},
	{"a", "a"},
	{"a", "b"},
	{"b", "a"},
	{"aa", "aaa"},
	{"aaa", "aa"},
	{"aabaaa", "aaaaaa"},
	{"aaaaaa", "aabaaa"},
	{"abc", "abd"},
	{"hello", "hello"},
	{"Hello", "hello"},
	{"zz", "za"},
}

func TestEqAcrossPaddings(t *testing.T) {
	ck, sk := testKeys(t)
	for _, tc := range comparePairs {
		for _, pa := range []int{0, 2} {
			for _, pb := range []int{0, 3} {
				name := fmt.Sprintf("%q/%q/pad%d-%d", tc.a, tc.b, pa, pb)
				t.Run(name, func(t *testing.T) {
					a := triv(t, tc.a, pa)
					b := triv(t, tc.b, pb)
					eq, err := sk.Eq(a, b)
					if err != nil {
						t.Fatalf("Eq: %v", err)
					}
					if got, want := decBool(t, ck, eq), tc.a == tc.b; got != want {
						t.Errorf("Eq(%q, %q) = %v, want %v", tc.a, tc.b, got, want)
					}
					ne, err := sk.Ne(a, b)
					if err != nil {
						t.Fatalf("Ne: %v", err)
					}
					if got, want := decBool(t, ck, ne), tc.a != tc.b; got != want {
						t.Errorf("Ne(%q, %q) = %v, want %v", tc.a, tc.b, got, want)
					}
				})
			}
		}
	}
}

func TestOrderingAcrossPaddings(t *testing.T) {
	ck, sk := testKeys(t)
	for _, tc := range comparePairs {
		for _, pa := range []int{0, 2} {
			for _, pb := range []int{0, 3} {
				name := fmt.Sprintf("%q/%q/pad%d-%d", tc.a, tc.b, pa, pb)
				t.Run(name, func(t *testing.T) {
					a := triv(t, tc.a, pa)
					b := triv(t, tc.b, pb)

					lt, err := sk.Lt(a, b)
					if err != nil {
						t.Fatalf("Lt: %v", err)
					}
					if got, want := decBool(t, ck, lt), tc.a < tc.b; got != want {
						t.Errorf("Lt(%q, %q) = %v, want %v", tc.a, tc.b, got, want)
					}

					le, err := sk.Le(a, b)
					if err != nil {
						t.Fatalf("Le: %v", err)
					}
					if got, want := decBool(t, ck, le), tc.a <= tc.b; got != want {
						t.Errorf("Le(%q, %q) = %v, want %v", tc.a, tc.b, got, want)
					}

					gt, err := sk.Gt(a, b)
					if err != nil {
						t.Fatalf("Gt: %v", err)
					}
					if got, want := decBool(t, ck, gt), tc.a > tc.b; got != want {
						t.Errorf("Gt(%q, %q) = %v, want %v", tc.a, tc.b, got, want)
					}

					ge, err := sk.Ge(a, b)
					if err != nil {
						t.Fatalf("Ge: %v", err)
					}
					if got, want := decBool(t, ck, ge), tc.a >= tc.b; got != want {
						t.Errorf("Ge(%q, %q) = %v, want %v", tc.a, tc.b, got, want)
					}
				})
			}
		}
	}
}

func TestCompareClearFastPath(t *testing.T) {
	ck, sk := testKeys(t)
	a := MustNewFheString("alpha")
	b := MustNewFheString("beta")

	lt, err := sk.Lt(a, b)
	if err != nil {
		t.Fatalf("Lt: %v", err)
	}
	if !decBool(t, ck, lt) {
		t.Error("Lt(alpha, beta) = false, want true")
	}

	// mixed clear and encrypted operands
	eq, err := sk.Eq(a, triv(t, "alpha", 2))
	if err != nil {
		t.Fatalf("Eq: %v", err)
	}
	if !decBool(t, ck, eq) {
		t.Error("Eq(clear alpha, encrypted alpha) = false, want true")
	}
}

func TestCompareRejectsNonReusable(t *testing.T) {
	_, sk := testKeys(t)
	bad := FromCells([]*Ciphertext{NewTrivial('x', CellBlocks)}, true, false)
	if _, err := sk.Eq(bad, triv(t, "x", 0)); err == nil {
		t.Error("Eq on a non-reusable operand: expected error")
	}
}
