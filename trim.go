// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhestring

import (
	"fmt"
	"strings"
)

// Boundary operations: whitespace trimming and prefix/suffix stripping.
// The boundary index is secret, so outputs are produced either by
// zeroing the trimmed cells in place (cheap, usually not reusable) or
// by an oblivious left shift (heavy, reusable).

const asciiWhitespace = " \n\t"

// isWhitespaceVec computes the per-cell whitespace indicator (space,
// newline or tab).
func (k *ServerKey) isWhitespaceVec(s *FheString) ([]*Ciphertext, error) {
	return k.mapCiphertexts(s.Len(), func(i int) (*Ciphertext, error) {
		cell := cellOf(s, i)
		isSpace, err := k.eval.EqScalar(cell, ' ')
		if err != nil {
			return nil, err
		}
		isNewline, err := k.eval.EqScalar(cell, '\n')
		if err != nil {
			return nil, err
		}
		isTab, err := k.eval.EqScalar(cell, '\t')
		if err != nil {
			return nil, err
		}
		nlOrTab, err := k.eval.BoolOr(isNewline, isTab)
		if err != nil {
			return nil, err
		}
		return k.eval.BoolOr(isSpace, nlOrTab)
	})
}

// keepLeadingOnly keeps the indicators that form the leading run of
// ones; sequential prefix AND.
func (k *ServerKey) keepLeadingOnly(vec []*Ciphertext) ([]*Ciphertext, error) {
	out := make([]*Ciphertext, len(vec))
	acc := NewTrivialBool(true)
	for i, v := range vec {
		var err error
		acc, err = k.eval.BoolAnd(acc, v)
		if err != nil {
			return nil, err
		}
		out[i] = acc
	}
	return out, nil
}

// keepTrailingOnly keeps the indicators forming the trailing run,
// counting zero padding cells as part of the run when s is padded.
func (k *ServerKey) keepTrailingOnly(s *FheString, vec []*Ciphertext) ([]*Ciphertext, error) {
	n := len(vec)
	out := make([]*Ciphertext, n)
	acc := NewTrivialBool(true)

	var isZero []*Ciphertext
	if s.IsPadded() {
		var err error
		isZero, err = k.zeroCells(s.Cells())
		if err != nil {
			return nil, err
		}
	}
	for i := n - 1; i >= 0; i-- {
		v := vec[i]
		if isZero != nil {
			var err error
			v, err = k.eval.BoolOr(v, isZero[i])
			if err != nil {
				return nil, err
			}
		}
		var err error
		acc, err = k.eval.BoolAnd(acc, v)
		if err != nil {
			return nil, err
		}
		out[i] = acc
	}
	return out, nil
}

// firstZeroMarker turns a leading-run indicator vector into a one-hot
// marker at the first zero, or all zeros when there is none.
func (k *ServerKey) firstZeroMarker(vec []*Ciphertext) ([]*Ciphertext, error) {
	out := make([]*Ciphertext, len(vec))
	acc := NewTrivialBool(true)
	for i, v := range vec {
		prev := acc
		var err error
		acc, err = k.eval.BoolAnd(acc, v)
		if err != nil {
			return nil, err
		}
		out[i], err = k.eval.BoolXor(acc, prev)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (k *ServerKey) trimStartVec(s *FheString, reusable bool, wsVec []*Ciphertext) (*FheString, error) {
	if !reusable {
		leading, err := k.keepLeadingOnly(wsVec)
		if err != nil {
			return nil, err
		}
		cells, err := k.setZeroWhere(s.Cells(), leading)
		if err != nil {
			return nil, err
		}
		return FromCells(cells, true, s.Len() == 0), nil
	}
	marker, err := k.firstZeroMarker(wsVec)
	if err != nil {
		return nil, err
	}
	cells, err := k.leftShift(s.Cells(), marker)
	if err != nil {
		return nil, err
	}
	return FromCells(cells, true, true), nil
}

func (k *ServerKey) trimStart(s *FheString, reusable bool) (*FheString, error) {
	if err := k.AssertReusable(s); err != nil {
		return nil, err
	}
	if s.IsClear() {
		return NewFheString(strings.TrimLeft(string(s.clear), asciiWhitespace))
	}
	wsVec, err := k.isWhitespaceVec(s)
	if err != nil {
		return nil, fmt.Errorf("trim start: %w", err)
	}
	return k.trimStartVec(s, reusable, wsVec)
}

// TrimStart removes leading whitespace by zeroing it in place. The
// result keeps zeros at the front and is not reusable; see
// TrimStartReusable for the shifting variant.
func (k *ServerKey) TrimStart(s *FheString) (*FheString, error) {
	return k.trimStart(s, false)
}

// TrimStartReusable removes leading whitespace and shifts the content
// to the front, producing a reusable value at a higher cost.
func (k *ServerKey) TrimStartReusable(s *FheString) (*FheString, error) {
	return k.trimStart(s, true)
}

// TrimEnd removes trailing whitespace. Trimmed cells become padding at
// the tail, so the result stays reusable.
func (k *ServerKey) TrimEnd(s *FheString) (*FheString, error) {
	if err := k.AssertReusable(s); err != nil {
		return nil, err
	}
	if s.IsClear() {
		return NewFheString(strings.TrimRight(string(s.clear), asciiWhitespace))
	}
	wsVec, err := k.isWhitespaceVec(s)
	if err != nil {
		return nil, fmt.Errorf("trim end: %w", err)
	}
	trailing, err := k.keepTrailingOnly(s, wsVec)
	if err != nil {
		return nil, err
	}
	cells, err := k.setZeroWhere(s.Cells(), trailing)
	if err != nil {
		return nil, err
	}
	return FromCells(cells, s.Len() > 0, true), nil
}

func (k *ServerKey) trim(s *FheString, reusable bool) (*FheString, error) {
	if err := k.AssertReusable(s); err != nil {
		return nil, err
	}
	if s.IsClear() {
		return NewFheString(strings.Trim(string(s.clear), asciiWhitespace))
	}
	wsVec, err := k.isWhitespaceVec(s)
	if err != nil {
		return nil, fmt.Errorf("trim: %w", err)
	}
	trailing, err := k.keepTrailingOnly(s, wsVec)
	if err != nil {
		return nil, err
	}
	endCells, err := k.setZeroWhere(s.Cells(), trailing)
	if err != nil {
		return nil, err
	}
	trimmedEnd := FromCells(endCells, true, true)

	leading, err := k.keepLeadingOnly(wsVec)
	if err != nil {
		return nil, err
	}
	return k.trimStartVec(trimmedEnd, reusable, leading)
}

// Trim removes whitespace from both ends; the leading run is zeroed in
// place, so the result is not reusable.
func (k *ServerKey) Trim(s *FheString) (*FheString, error) {
	return k.trim(s, false)
}

// TrimReusable removes whitespace from both ends and shifts the
// content to the front.
func (k *ServerKey) TrimReusable(s *FheString) (*FheString, error) {
	return k.trim(s, true)
}

// StripPrefix removes the pattern from the front when present,
// returning the stripped value and the match indicator. The removed
// cells are zeroed in place; the result is not reusable.
func (k *ServerKey) StripPrefix(s, pat *FheString) (*FheString, *Ciphertext, error) {
	if err := k.AssertReusable(s); err != nil {
		return nil, nil, err
	}
	if err := k.AssertReusable(pat); err != nil {
		return nil, nil, err
	}

	if s.IsClear() && pat.IsClear() {
		stripped, found := strings.CutPrefix(string(s.clear), string(pat.clear))
		out, err := NewFheString(stripped)
		if err != nil {
			return nil, nil, err
		}
		return out, NewTrivialBool(found), nil
	}
	if s.Len() == 0 {
		empty, err := k.IsEmpty(pat)
		return s.Copy(), empty, err
	}
	if pat.Len() == 0 {
		return s.Copy(), NewTrivialBool(true), nil
	}
	if !pat.IsPadded() && s.Len() < pat.Len() {
		return s.Copy(), NewTrivialBool(false), nil
	}

	startsWith, err := k.StartsWith(s, pat)
	if err != nil {
		return nil, nil, err
	}

	var toRemove []*Ciphertext
	if !pat.IsPadded() {
		toRemove = make([]*Ciphertext, pat.Len())
		for i := range toRemove {
			toRemove[i] = startsWith
		}
	} else {
		hiddenLen, err := k.HiddenLen(pat)
		if err != nil {
			return nil, nil, err
		}
		toRemove, err = k.mapCiphertexts(pat.Len(), func(i int) (*Ciphertext, error) {
			inPrefix, err := k.eval.GtScalar(hiddenLen, uint64(i))
			if err != nil {
				return nil, err
			}
			return k.eval.BoolAnd(inPrefix, startsWith)
		})
		if err != nil {
			return nil, nil, err
		}
	}

	enc, err := k.encryptedView(s)
	if err != nil {
		return nil, nil, err
	}
	cells, err := k.setZeroWhereRange(enc.Cells(), toRemove, 0)
	if err != nil {
		return nil, nil, err
	}
	return FromCells(cells, true, false), startsWith, nil
}

// StripPrefixReusable removes the pattern from the front and shifts
// the remaining content to index zero, keeping the value reusable.
func (k *ServerKey) StripPrefixReusable(s, pat *FheString) (*FheString, *Ciphertext, error) {
	if err := k.AssertReusable(s); err != nil {
		return nil, nil, err
	}
	if err := k.AssertReusable(pat); err != nil {
		return nil, nil, err
	}

	if s.IsClear() && pat.IsClear() {
		stripped, found := strings.CutPrefix(string(s.clear), string(pat.clear))
		out, err := NewFheString(stripped)
		if err != nil {
			return nil, nil, err
		}
		return out, NewTrivialBool(found), nil
	}
	if s.Len() == 0 {
		empty, err := k.IsEmpty(pat)
		return s.Copy(), empty, err
	}
	if pat.Len() == 0 {
		return s.Copy(), NewTrivialBool(true), nil
	}
	if !pat.IsPadded() && s.Len() < pat.Len() {
		return s.Copy(), NewTrivialBool(false), nil
	}

	startsWith, err := k.StartsWith(s, pat)
	if err != nil {
		return nil, nil, err
	}

	enc, err := k.encryptedView(s)
	if err != nil {
		return nil, nil, err
	}

	if !pat.IsPadded() {
		// the cut index is public; build the shifted candidate and
		// select between the two whole strings
		shift := pat.Len()
		shifted, err := enc.SubString(shift, enc.Len())
		if err != nil {
			return nil, nil, err
		}
		if err := shifted.Pad(shift); err != nil {
			return nil, nil, err
		}
		out, err := k.ifThenElseString(startsWith, shifted, enc)
		if err != nil {
			return nil, nil, err
		}
		return out, startsWith, nil
	}

	// the cut index is hidden: left shift to the one-hot marker at
	// hiddenLen(pat), or to index zero when there is no match
	hiddenLen, err := k.HiddenLen(pat)
	if err != nil {
		return nil, nil, err
	}
	indexVec, err := k.mapCiphertexts(pat.Len()+1, func(i int) (*Ciphertext, error) {
		atCut, err := k.eval.EqScalar(hiddenLen, uint64(i))
		if err != nil {
			return nil, err
		}
		return k.eval.BoolAnd(atCut, startsWith)
	})
	if err != nil {
		return nil, nil, err
	}
	noMatch, err := k.eval.BoolNot(startsWith)
	if err != nil {
		return nil, nil, err
	}
	indexVec[0], err = k.eval.BoolOr(indexVec[0], noMatch)
	if err != nil {
		return nil, nil, err
	}
	cells, err := k.leftShift(enc.Cells(), indexVec)
	if err != nil {
		return nil, nil, err
	}
	return FromCells(cells, true, true), startsWith, nil
}

// StripSuffix removes the pattern from the back when present. The
// removed cells become tail padding, so the result stays reusable.
func (k *ServerKey) StripSuffix(s, pat *FheString) (*FheString, *Ciphertext, error) {
	if err := k.AssertReusable(s); err != nil {
		return nil, nil, err
	}
	if err := k.AssertReusable(pat); err != nil {
		return nil, nil, err
	}

	if s.IsClear() && pat.IsClear() {
		stripped, found := strings.CutSuffix(string(s.clear), string(pat.clear))
		out, err := NewFheString(stripped)
		if err != nil {
			return nil, nil, err
		}
		return out, NewTrivialBool(found), nil
	}
	if s.Len() == 0 {
		empty, err := k.IsEmpty(pat)
		return s.Copy(), empty, err
	}
	if pat.Len() == 0 {
		return s.Copy(), NewTrivialBool(true), nil
	}
	if !pat.IsPadded() && s.Len() < pat.Len() {
		return s.Copy(), NewTrivialBool(false), nil
	}

	endsWith, err := k.EndsWith(s, pat)
	if err != nil {
		return nil, nil, err
	}

	var toRemove []*Ciphertext
	if !s.IsPadded() && !pat.IsPadded() {
		suffixStart := s.Len() - pat.Len()
		toRemove, err = k.mapCiphertexts(s.Len(), func(i int) (*Ciphertext, error) {
			if i < suffixStart {
				return NewTrivialBool(false), nil
			}
			return endsWith, nil
		})
		if err != nil {
			return nil, nil, err
		}
	} else {
		lenS, err := k.HiddenLen(s)
		if err != nil {
			return nil, nil, err
		}
		lenPat, err := k.HiddenLen(pat)
		if err != nil {
			return nil, nil, err
		}
		// if the suffix is absent the conditional length is zero, so
		// the subtraction cannot underflow
		condLen, err := k.eval.MulBool(endsWith, lenPat)
		if err != nil {
			return nil, nil, err
		}
		lenW, condW, err := k.eval.ExtendEqually(lenS, condLen)
		if err != nil {
			return nil, nil, err
		}
		suffixStart, err := k.eval.Sub(lenW, condW)
		if err != nil {
			return nil, nil, err
		}
		toRemove, err = k.mapCiphertexts(s.Len(), func(i int) (*Ciphertext, error) {
			isSuffix, err := k.eval.LeScalar(suffixStart, uint64(i))
			if err != nil {
				return nil, err
			}
			return k.eval.BoolAnd(isSuffix, endsWith)
		})
		if err != nil {
			return nil, nil, err
		}
	}

	enc, err := k.encryptedView(s)
	if err != nil {
		return nil, nil, err
	}
	cells, err := k.setZeroWhere(enc.Cells(), toRemove)
	if err != nil {
		return nil, nil, err
	}
	return FromCells(cells, true, true), endsWith, nil
}
