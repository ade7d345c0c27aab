// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhestring

import (
	"bytes"
	"fmt"
)

// Comparison and ordering over FheStrings. Equality runs positional
// equality over the shared extent and requires the longer side's tail
// to be empty; ordering is an oblivious priority fold over per-position
// less-than and equality vectors.

// cellOf returns the i-th cell of s, lifting clear bytes trivially.
func cellOf(s *FheString, i int) *Ciphertext {
	if s.IsClear() {
		return NewTrivial(uint64(s.clear[i]), CellBlocks)
	}
	return s.cells[i]
}

// eqSameSizeRange compares two equal-length windows cell by cell and
// AND-reduces the result.
func (k *ServerKey) eqSameSizeRange(a *FheString, sa, ea int, b *FheString, sb, eb int) (*Ciphertext, error) {
	if ea-sa != eb-sb {
		return nil, fmt.Errorf("eq: window lengths differ: %d and %d", ea-sa, eb-sb)
	}
	if ea == sa {
		return NewTrivialBool(true), nil
	}
	if a.IsClear() && b.IsClear() {
		return NewTrivialBool(bytes.Equal(a.clear[sa:ea], b.clear[sb:eb])), nil
	}
	equalities, err := k.mapCiphertexts(ea-sa, func(i int) (*Ciphertext, error) {
		return k.eval.Eq(cellOf(a, sa+i), cellOf(b, sb+i))
	})
	if err != nil {
		return nil, err
	}
	return k.All(equalities)
}

// Eq computes whether two strings hold the same logical content. When
// allocations differ, the shared prefix must match and the longer
// side's tail must be all zeros.
func (k *ServerKey) Eq(a, b *FheString) (*Ciphertext, error) {
	if err := k.AssertReusable(a); err != nil {
		return nil, err
	}
	if err := k.AssertReusable(b); err != nil {
		return nil, err
	}

	lenA, lenB := a.Len(), b.Len()
	switch {
	case lenA == lenB:
		return k.eqSameSizeRange(a, 0, lenA, b, 0, lenB)
	case lenA > lenB:
		if lenB == 0 {
			return k.IsEmpty(a)
		}
		prefixEqual, err := k.eqSameSizeRange(a, 0, lenB, b, 0, lenB)
		if err != nil {
			return nil, err
		}
		restEmpty, err := k.isEmptyRange(a, lenB, lenA)
		if err != nil {
			return nil, err
		}
		return k.eval.BoolAnd(prefixEqual, restEmpty)
	default:
		if lenA == 0 {
			return k.IsEmpty(b)
		}
		prefixEqual, err := k.eqSameSizeRange(a, 0, lenA, b, 0, lenA)
		if err != nil {
			return nil, err
		}
		restEmpty, err := k.isEmptyRange(b, lenA, lenB)
		if err != nil {
			return nil, err
		}
		return k.eval.BoolAnd(prefixEqual, restEmpty)
	}
}

// Ne is the negation of Eq.
func (k *ServerKey) Ne(a, b *FheString) (*Ciphertext, error) {
	eq, err := k.Eq(a, b)
	if err != nil {
		return nil, err
	}
	return k.eval.BoolNot(eq)
}

// Lt computes lexicographic less-than. The shorter operand compares as
// if extended with zero cells, so an equal prefix makes the shorter
// side the lesser one.
func (k *ServerKey) Lt(a, b *FheString) (*Ciphertext, error) {
	if err := k.AssertReusable(a); err != nil {
		return nil, err
	}
	if err := k.AssertReusable(b); err != nil {
		return nil, err
	}

	lenA, lenB := a.Len(), b.Len()
	if lenA == 0 {
		// an empty a is less than b unless b is empty too
		empty, err := k.IsEmpty(b)
		if err != nil {
			return nil, err
		}
		return k.eval.BoolNot(empty)
	}
	if lenB == 0 {
		return NewTrivialBool(false), nil
	}

	// compare over the shared extent, then correct for the cut tail
	n := lenA
	if lenB < n {
		n = lenB
	}
	if a.IsClear() && b.IsClear() {
		return NewTrivialBool(string(a.clear) < string(b.clear)), nil
	}

	isLess, err := k.mapCiphertexts(n, func(i int) (*Ciphertext, error) {
		return k.eval.Lt(cellOf(a, i), cellOf(b, i))
	})
	if err != nil {
		return nil, err
	}
	isEqual, err := k.mapCiphertexts(n, func(i int) (*Ciphertext, error) {
		return k.eval.Eq(cellOf(a, i), cellOf(b, i))
	})
	if err != nil {
		return nil, err
	}

	// allKBeforeEq[i] holds "a[k] == b[k] for all k < i"; sequential by
	// construction
	allKBeforeEq := make([]*Ciphertext, n+1)
	allKBeforeEq[0] = NewTrivialBool(true)
	for i := 1; i <= n; i++ {
		c, err := k.eval.BoolAnd(allKBeforeEq[i-1], isEqual[i-1])
		if err != nil {
			return nil, err
		}
		allKBeforeEq[i] = c
	}

	firstDiffLess, err := k.mapCiphertexts(n, func(i int) (*Ciphertext, error) {
		return k.eval.BoolAnd(allKBeforeEq[i], isLess[i])
	})
	if err != nil {
		return nil, err
	}
	exists, err := k.Any(firstDiffLess)
	if err != nil {
		return nil, err
	}
	allEqual := allKBeforeEq[n]

	if lenA >= lenB {
		// b was not cut, so the shared-extent verdict is final
		return exists, nil
	}

	// b was cut: with an equal prefix, a < b iff b's tail holds content
	tailEmpty, err := k.isEmptyRange(b, lenA, lenB)
	if err != nil {
		return nil, err
	}
	tailNonEmpty, err := k.eval.BoolNot(tailEmpty)
	if err != nil {
		return nil, err
	}
	eqAndTail, err := k.eval.BoolAnd(allEqual, tailNonEmpty)
	if err != nil {
		return nil, err
	}
	return k.eval.BoolOr(exists, eqAndTail)
}

// Le is NOT (b < a).
func (k *ServerKey) Le(a, b *FheString) (*Ciphertext, error) {
	lt, err := k.Lt(b, a)
	if err != nil {
		return nil, err
	}
	return k.eval.BoolNot(lt)
}

// Gt is b < a.
func (k *ServerKey) Gt(a, b *FheString) (*Ciphertext, error) {
	return k.Lt(b, a)
}

// Ge is NOT (a < b).
func (k *ServerKey) Ge(a, b *FheString) (*Ciphertext, error) {
	lt, err := k.Lt(a, b)
	if err != nil {
		return nil, err
	}
	return k.eval.BoolNot(lt)
}
