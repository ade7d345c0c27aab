// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhestring

import (
	"fmt"
)

// Pattern search. Every start alignment within the haystack is scored
// in parallel; anchored and reduced variants combine the alignment
// scores. Alignment counts depend only on allocated lengths.

// containsTrivially returns a public short-circuit verdict for a
// pattern window at a given alignment, when one exists.
func (k *ServerKey) containsTrivially(s, pat *FheString, patStart, patEnd, index int) (*Ciphertext, bool, error) {
	if patEnd-patStart == 0 {
		return NewTrivialBool(true), true, nil
	}
	if !pat.IsPadded() && patEnd-patStart+index > s.Len() {
		return NewTrivialBool(false), true, nil
	}
	if s.Len() == 0 && !s.IsPadded() {
		c, err := k.isEmptyRange(pat, patStart, patEnd)
		return c, true, err
	}
	return nil, false, nil
}

// containsAtIndexNoPadding scores one alignment of an unpadded
// pattern: plain positional equality over the pattern's cells.
func (k *ServerKey) containsAtIndexNoPadding(s, pat *FheString, index int) (*Ciphertext, error) {
	if c, ok, err := k.containsTrivially(s, pat, 0, pat.Len(), index); ok || err != nil {
		return c, err
	}
	return k.eqSameSizeRange(s, index, index+pat.Len(), pat, 0, pat.Len())
}

// containsAtIndexPadded scores one alignment of a possibly padded
// pattern window: each position must be equal or the pattern cell must
// be a zero padding cell.
func (k *ServerKey) containsAtIndexPadded(s, pat *FheString, patStart, patEnd, index int) (*Ciphertext, error) {
	if c, ok, err := k.containsTrivially(s, pat, patStart, patEnd, index); ok || err != nil {
		return c, err
	}

	patLen := patEnd - patStart
	if patLen+index > s.Len() {
		// the window overhangs the haystack: the in-range part must
		// match and the overhang must be all padding
		extra := patLen + index - s.Len()
		inRange, err := k.containsAtIndexPadded(s, pat, patStart, patEnd-extra, index)
		if err != nil {
			return nil, err
		}
		overhangEmpty, err := k.isEmptyRange(pat, patEnd-extra, patEnd)
		if err != nil {
			return nil, err
		}
		return k.eval.BoolAnd(inRange, overhangEmpty)
	}

	matches, err := k.mapCiphertexts(patLen, func(i int) (*Ciphertext, error) {
		pCell := cellOf(pat, patStart+i)
		equal, err := k.eval.Eq(cellOf(s, index+i), pCell)
		if err != nil {
			return nil, err
		}
		padCell, err := k.eval.IsZero(pCell)
		if err != nil {
			return nil, err
		}
		return k.eval.BoolOr(equal, padCell)
	})
	if err != nil {
		return nil, err
	}
	return k.All(matches)
}

// containsAtIndexVec scores every alignment of the pattern against the
// haystack. Unpadded patterns only fit the first Len(s)-Len(pat)+1
// alignments; padded ones are tried everywhere.
func (k *ServerKey) containsAtIndexVec(s, pat *FheString) ([]*Ciphertext, error) {
	if !pat.IsPadded() {
		return k.mapCiphertexts(s.Len()-pat.Len()+1, func(i int) (*Ciphertext, error) {
			return k.containsAtIndexNoPadding(s, pat, i)
		})
	}
	return k.mapCiphertexts(s.Len(), func(i int) (*Ciphertext, error) {
		return k.containsAtIndexPadded(s, pat, 0, pat.Len(), i)
	})
}

// Contains computes whether the haystack holds the pattern anywhere.
func (k *ServerKey) Contains(s, pat *FheString) (*Ciphertext, error) {
	if err := k.AssertReusable(s); err != nil {
		return nil, err
	}
	if err := k.AssertReusable(pat); err != nil {
		return nil, err
	}
	if c, ok, err := k.containsTrivially(s, pat, 0, pat.Len(), 0); ok || err != nil {
		return c, err
	}
	vec, err := k.containsAtIndexVec(s, pat)
	if err != nil {
		return nil, fmt.Errorf("contains: %w", err)
	}
	return k.Any(vec)
}

// StartsWith tests the alignment at index zero.
func (k *ServerKey) StartsWith(s, pat *FheString) (*Ciphertext, error) {
	if err := k.AssertReusable(s); err != nil {
		return nil, err
	}
	if err := k.AssertReusable(pat); err != nil {
		return nil, err
	}
	if c, ok, err := k.containsTrivially(s, pat, 0, pat.Len(), 0); ok || err != nil {
		return c, err
	}
	if !pat.IsPadded() {
		return k.containsAtIndexNoPadding(s, pat, 0)
	}
	return k.containsAtIndexPadded(s, pat, 0, pat.Len(), 0)
}

// EndsWith tests whether the pattern closes the haystack's logical
// content. Padding on either side hides the anchor index, which then
// has to be matched against the hidden lengths.
func (k *ServerKey) EndsWith(s, pat *FheString) (*Ciphertext, error) {
	if err := k.AssertReusable(s); err != nil {
		return nil, err
	}
	if err := k.AssertReusable(pat); err != nil {
		return nil, err
	}
	if c, ok, err := k.containsTrivially(s, pat, 0, pat.Len(), 0); ok || err != nil {
		return c, err
	}

	switch {
	case !s.IsPadded() && !pat.IsPadded():
		return k.containsAtIndexNoPadding(s, pat, s.Len()-pat.Len())

	case s.IsPadded() && !pat.IsPadded():
		// the anchor is hidden: match at any index whose tail is all
		// padding, meaning hiddenLen(s) <= index + len(pat)
		hiddenLen, err := k.HiddenLen(s)
		if err != nil {
			return nil, err
		}
		hits, err := k.mapCiphertexts(s.Len(), func(i int) (*Ciphertext, error) {
			here, err := k.containsAtIndexNoPadding(s, pat, i)
			if err != nil {
				return nil, err
			}
			restNull, err := k.eval.LeScalar(hiddenLen, uint64(pat.Len()+i))
			if err != nil {
				return nil, err
			}
			return k.eval.BoolAnd(here, restNull)
		})
		if err != nil {
			return nil, err
		}
		return k.Any(hits)

	default:
		// both lengths hidden: the tail condition compares two
		// encrypted lengths per alignment
		hiddenLenS, err := k.HiddenLen(s)
		if err != nil {
			return nil, err
		}
		hiddenLenPat, err := k.HiddenLen(pat)
		if err != nil {
			return nil, err
		}
		// the sum hiddenLen(pat)+i must not wrap
		hiddenLenPat, err = k.eval.Extend(hiddenLenPat, BlocksForRange(uint64(pat.Len()+s.Len())))
		if err != nil {
			return nil, err
		}
		hits, err := k.mapCiphertexts(s.Len(), func(i int) (*Ciphertext, error) {
			here, err := k.containsAtIndexPadded(s, pat, 0, pat.Len(), i)
			if err != nil {
				return nil, err
			}
			end, err := k.eval.ScalarAdd(hiddenLenPat, uint64(i))
			if err != nil {
				return nil, err
			}
			endW, lenW, err := k.eval.ExtendEqually(end, hiddenLenS)
			if err != nil {
				return nil, err
			}
			restNull, err := k.eval.Ge(endW, lenW)
			if err != nil {
				return nil, err
			}
			return k.eval.BoolAnd(here, restNull)
		})
		if err != nil {
			return nil, err
		}
		anyHit, err := k.Any(hits)
		if err != nil {
			return nil, err
		}
		// a padded-empty pattern closes anything
		patEmpty, err := k.IsEmpty(pat)
		if err != nil {
			return nil, err
		}
		return k.eval.BoolOr(anyHit, patEmpty)
	}
}

// findOrRFind folds the alignment scores into the first (or last)
// matching index plus a found flag.
func (k *ServerKey) findOrRFind(s, pat *FheString, reverse bool) (index, found *Ciphertext, err error) {
	if c, ok, err := k.containsTrivially(s, pat, 0, pat.Len(), 0); ok || err != nil {
		if err != nil {
			return nil, nil, err
		}
		if reverse {
			idx, err := k.HiddenLen(s)
			return idx, c, err
		}
		return NewTrivial(0, CellBlocks), c, nil
	}

	vec, err := k.containsAtIndexVec(s, pat)
	if err != nil {
		return nil, nil, err
	}
	n := len(vec)
	width := BlocksForRange(uint64(n))

	matchIndex := func(i int) int {
		if reverse {
			return n - 1 - i
		}
		return i
	}

	// allZeros[i] holds "no match among the first i scanned positions";
	// sequential fold
	allZeros := make([]*Ciphertext, n+1)
	allZeros[0] = NewTrivialBool(true)
	for i := 0; i < n; i++ {
		miss, err := k.eval.BoolNot(vec[matchIndex(i)])
		if err != nil {
			return nil, nil, err
		}
		allZeros[i+1], err = k.eval.BoolAnd(allZeros[i], miss)
		if err != nil {
			return nil, nil, err
		}
	}

	// index = Σ i × (first match is at i)
	terms, err := k.mapCiphertexts(n, func(i int) (*Ciphertext, error) {
		firstHere, err := k.eval.BoolAnd(allZeros[matchIndex(i)], vec[i])
		if err != nil {
			return nil, err
		}
		return k.eval.MulBool(firstHere, NewTrivial(uint64(i), width))
	})
	if err != nil {
		return nil, nil, err
	}
	index, err = k.eval.Sum(terms)
	if err != nil {
		return nil, nil, err
	}
	found, err = k.eval.BoolNot(allZeros[n])
	if err != nil {
		return nil, nil, err
	}

	// a padded-empty pattern matches after the last content cell when
	// scanning from the right
	if reverse && pat.IsPadded() {
		patEmpty, err := k.IsEmpty(pat)
		if err != nil {
			return nil, nil, err
		}
		hiddenLen, err := k.HiddenLen(s)
		if err != nil {
			return nil, nil, err
		}
		hiddenW, indexW, err := k.eval.ExtendEqually(hiddenLen, index)
		if err != nil {
			return nil, nil, err
		}
		index, err = k.eval.Select(patEmpty, hiddenW, indexW)
		if err != nil {
			return nil, nil, err
		}
		found, err = k.eval.BoolOr(patEmpty, found)
		if err != nil {
			return nil, nil, err
		}
	}
	return index, found, nil
}

// Find returns the lowest matching alignment index and a found flag.
// The index is zero when nothing matches; check found first.
func (k *ServerKey) Find(s, pat *FheString) (index, found *Ciphertext, err error) {
	if err := k.AssertReusable(s); err != nil {
		return nil, nil, err
	}
	if err := k.AssertReusable(pat); err != nil {
		return nil, nil, err
	}
	return k.findOrRFind(s, pat, false)
}

// RFind returns the highest matching alignment index and a found flag.
func (k *ServerKey) RFind(s, pat *FheString) (index, found *Ciphertext, err error) {
	if err := k.AssertReusable(s); err != nil {
		return nil, nil, err
	}
	if err := k.AssertReusable(pat); err != nil {
		return nil, nil, err
	}
	return k.findOrRFind(s, pat, true)
}
