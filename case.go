// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhestring

import (
	"fmt"
	"strings"
)

// Case folding. Each cell is range-tested and shifted by 32
// obliviously; both outcomes are always computed.

func (k *ServerKey) caseShift(s *FheString, lo, hi byte, toLower bool) (*FheString, error) {
	thirtyTwo := NewTrivial(32, CellBlocks)
	cells, err := k.mapCiphertexts(s.Len(), func(i int) (*Ciphertext, error) {
		cell := cellOf(s, i)
		geLo, err := k.eval.GeScalar(cell, uint64(lo))
		if err != nil {
			return nil, err
		}
		leHi, err := k.eval.LeScalar(cell, uint64(hi))
		if err != nil {
			return nil, err
		}
		inRange, err := k.eval.BoolAnd(geLo, leHi)
		if err != nil {
			return nil, err
		}
		delta, err := k.eval.MulBool(inRange, thirtyTwo)
		if err != nil {
			return nil, err
		}
		if toLower {
			return k.eval.Add(cell, delta)
		}
		return k.eval.Sub(cell, delta)
	})
	if err != nil {
		return nil, err
	}
	return FromCells(cells, s.IsPadded(), s.IsReusable()), nil
}

// ToLowerCase maps 'A'..'Z' to 'a'..'z', leaving other cells unchanged.
// Flags are preserved: zero cells stay zero.
func (k *ServerKey) ToLowerCase(s *FheString) (*FheString, error) {
	if s.Len() == 0 {
		return s.Copy(), nil
	}
	if s.IsClear() {
		return NewFheString(strings.ToLower(string(s.clear)))
	}
	out, err := k.caseShift(s, 'A', 'Z', true)
	if err != nil {
		return nil, fmt.Errorf("to lower case: %w", err)
	}
	return out, nil
}

// ToUpperCase maps 'a'..'z' to 'A'..'Z', leaving other cells unchanged.
func (k *ServerKey) ToUpperCase(s *FheString) (*FheString, error) {
	if s.Len() == 0 {
		return s.Copy(), nil
	}
	if s.IsClear() {
		return NewFheString(strings.ToUpper(string(s.clear)))
	}
	out, err := k.caseShift(s, 'a', 'z', false)
	if err != nil {
		return nil, fmt.Errorf("to upper case: %w", err)
	}
	return out, nil
}

// EqIgnoreCase folds both operands to lower case and compares.
func (k *ServerKey) EqIgnoreCase(a, b *FheString) (*Ciphertext, error) {
	if err := k.AssertReusable(a); err != nil {
		return nil, err
	}
	if err := k.AssertReusable(b); err != nil {
		return nil, err
	}
	la, err := k.ToLowerCase(a)
	if err != nil {
		return nil, err
	}
	lb, err := k.ToLowerCase(b)
	if err != nil {
		return nil, err
	}
	return k.Eq(la, lb)
}
