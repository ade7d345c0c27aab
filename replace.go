// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhestring

import (
	"strings"
)

// ifThenElseVec selects cell-wise between two vectors, filling the
// shorter one with trivial zeros.
func (k *ServerKey) ifThenElseVec(cond *Ciphertext, a, b []*Ciphertext) ([]*Ciphertext, error) {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	zero := NewTrivial(0, CellBlocks)
	return k.mapCiphertexts(n, func(i int) (*Ciphertext, error) {
		av, bv := zero, zero
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		return k.eval.Select(cond, av, bv)
	})
}

// cellsOf returns the cells of s, lifting a clear value to trivial
// ciphertexts.
func (k *ServerKey) cellsOf(s *FheString) []*Ciphertext {
	out := make([]*Ciphertext, s.Len())
	for i := range out {
		out[i] = cellOf(s, i)
	}
	return out
}

// replaceGeneral replaces occurrences of from by to, all of the first
// n when replacen is set. Four shapes arise depending on which
// operands are hidden and on the relative pattern lengths; the hard
// one splits on from and re-concatenates with to in between.
func (k *ServerKey) replaceGeneral(s, from, to *FheString, replacen bool, nTimes int) (*FheString, error) {
	for _, v := range []*FheString{s, from, to} {
		if err := k.AssertReusable(v); err != nil {
			return nil, err
		}
	}

	if !from.IsPadded() && from.Len() > s.Len() {
		return s.Copy(), nil
	}

	if s.IsClear() && from.IsClear() && to.IsClear() {
		n := -1
		if replacen {
			n = nTimes
		}
		return NewFheString(strings.Replace(s.ClearString(), from.ClearString(), to.ClearString(), n))
	}

	// the haystack and pattern are both public: split in clear and
	// interleave the hidden replacement
	if s.IsClear() && from.IsClear() {
		var subs []string
		if replacen {
			subs = rustSplitNClear(s.ClearString(), from.ClearString(), nTimes+1)
		} else {
			subs = rustSplitClear(s.ClearString(), from.ClearString())
		}
		var cells []*Ciphertext
		for i, sub := range subs {
			for j := 0; j < len(sub); j++ {
				cells = append(cells, NewTrivial(uint64(sub[j]), CellBlocks))
			}
			if i < len(subs)-1 {
				for _, c := range to.Cells() {
					cells = append(cells, c.Copy())
				}
			}
		}
		return FromCells(cells, to.IsPadded(), !to.IsPadded()), nil
	}

	if s.Len() == 0 {
		if replacen && nTimes == 0 {
			return s.Copy(), nil
		}
		if from.Len() == 0 {
			return to.Copy(), nil
		}
		if !from.IsPadded() {
			if from.IsClear() {
				return NewFheString("")
			}
			return EmptyEncrypted(), nil
		}
		// the pattern may still be hidden-empty
		fromEmpty, err := k.IsEmpty(from)
		if err != nil {
			return nil, err
		}
		toEnc, err := k.encryptedView(to)
		if err != nil {
			return nil, err
		}
		return k.ifThenElseString(fromEmpty, toEnc, EmptyEncrypted())
	}

	// worst-case result when from is hidden-empty: one copy of to
	// before every character and one after the last
	var resultFromEmpty []*Ciphertext
	if from.IsPadded() || from.Len() == 0 {
		if to.Len() == 0 {
			resultFromEmpty = k.cellsOf(s)
		} else {
			toVals := k.cellsOf(to)
			sVals := k.cellsOf(s)

			var iLtLen []*Ciphertext
			if s.IsPadded() {
				sLen, err := k.HiddenLen(s)
				if err != nil {
					return nil, err
				}
				iLtLen, err = k.mapCiphertexts(s.Len(), func(i int) (*Ciphertext, error) {
					return k.eval.GtScalar(sLen, uint64(i))
				})
				if err != nil {
					return nil, err
				}
				// the copy after the last character is kept only for
				// an unbounded replace
				iLtLen = append(iLtLen, NewTrivialBool(!replacen))
			}

			count := 0
			for i := 0; i <= s.Len(); i++ {
				count++
				if !replacen || count <= nTimes {
					for _, tv := range toVals {
						cell := tv.Copy()
						if s.IsPadded() {
							var err error
							cell, err = k.eval.MulBool(iLtLen[i], tv)
							if err != nil {
								return nil, err
							}
						}
						resultFromEmpty = append(resultFromEmpty, cell)
					}
				}
				if i < s.Len() {
					resultFromEmpty = append(resultFromEmpty, sVals[i])
				}
			}
		}
	}

	// publicly empty pattern
	if from.Len() == 0 {
		isPadded := to.IsPadded() || s.IsPadded()
		return FromCells(resultFromEmpty, isPadded, !isPadded), nil
	}

	// locate the pattern, suppressing overlapping matches so each
	// occurrence consumes its hidden length before the next can start
	containsVec, err := k.containsAtIndexVec(s, from)
	if err != nil {
		return nil, err
	}
	for len(containsVec) < s.Len() {
		containsVec = append(containsVec, NewTrivialBool(false))
	}
	containsVec = append(containsVec, NewTrivialBool(false))
	n := len(containsVec)

	width := BlocksForRange(uint64(n + from.Len()))
	fromLen, err := k.HiddenLen(from)
	if err != nil {
		return nil, err
	}
	fromLen, err = k.eval.Extend(fromLen, width)
	if err != nil {
		return nil, err
	}

	patternStart := NewTrivial(0, width)
	firstOneSeen := NewTrivialBool(false)
	patternStarted := NewTrivialBool(false)
	sumStarts := NewTrivial(0, width)
	isPatternVec := make([]*Ciphertext, 0, n)

	for i := 0; i < n; i++ {
		notSeen, err := k.eval.BoolNot(firstOneSeen)
		if err != nil {
			return nil, err
		}
		isFirstOne, err := k.eval.BoolAnd(containsVec[i], notSeen)
		if err != nil {
			return nil, err
		}
		patternEnd, err := k.eval.Add(patternStart, fromLen)
		if err != nil {
			return nil, err
		}
		notJustEnded, err := k.eval.NeScalar(patternEnd, uint64(i))
		if err != nil {
			return nil, err
		}
		ended, err := k.eval.LeScalar(patternEnd, uint64(i))
		if err != nil {
			return nil, err
		}
		ended, err = k.eval.BoolAnd(ended, firstOneSeen)
		if err != nil {
			return nil, err
		}
		afterPattern, err := k.eval.BoolAnd(containsVec[i], ended)
		if err != nil {
			return nil, err
		}
		patternStarts, err := k.eval.BoolOr(isFirstOne, afterPattern)
		if err != nil {
			return nil, err
		}
		patternStart, err = k.eval.Select(patternStarts, NewTrivial(uint64(i), width), patternStart)
		if err != nil {
			return nil, err
		}
		patternStarted, err = k.eval.BoolOr(patternStarted, patternStarts)
		if err != nil {
			return nil, err
		}
		notJustEnded, err = k.eval.BoolOr(notJustEnded, patternStarts)
		if err != nil {
			return nil, err
		}
		patternStarted, err = k.eval.BoolAnd(patternStarted, notJustEnded)
		if err != nil {
			return nil, err
		}
		firstOneSeen, err = k.eval.BoolOr(firstOneSeen, containsVec[i])
		if err != nil {
			return nil, err
		}

		if replacen {
			starts, err := k.eval.Extend(patternStarts, width)
			if err != nil {
				return nil, err
			}
			sumStarts, err = k.eval.Add(sumStarts, starts)
			if err != nil {
				return nil, err
			}
			withinN, err := k.eval.LeScalar(sumStarts, uint64(nTimes))
			if err != nil {
				return nil, err
			}
			containsVec[i], err = k.eval.BoolAnd(withinN, patternStarts)
			if err != nil {
				return nil, err
			}
			covered, err := k.eval.BoolAnd(withinN, patternStarted)
			if err != nil {
				return nil, err
			}
			isPatternVec = append(isPatternVec, covered)
		} else {
			containsVec[i] = patternStarts
			isPatternVec = append(isPatternVec, patternStarted)
		}
	}

	// the replacement fits inside the hole left by the pattern: write
	// to, zero-padded to the pattern length, at each match
	if !from.IsPadded() && from.Len() >= to.Len() {
		var toPadded *FheString
		if to.IsEncrypted() {
			toPadded = to.Copy()
			if err := toPadded.Pad(from.Len() - to.Len()); err != nil {
				return nil, err
			}
		} else {
			toPadded, err = to.TrivialEncrypt(from.Len() - to.Len())
			if err != nil {
				return nil, err
			}
		}

		patternReplaced, err := k.mapCiphertexts(s.Len(), func(pos int) (*Ciphertext, error) {
			startIndex := 0
			if pos >= toPadded.Len() {
				startIndex = pos - toPadded.Len() + 1
			}
			terms := make([]*Ciphertext, 0, pos-startIndex+1)
			for j := 0; j <= pos-startIndex; j++ {
				term, err := k.eval.MulBool(containsVec[pos-j], toPadded.Cells()[j])
				if err != nil {
					return nil, err
				}
				terms = append(terms, term)
			}
			return k.eval.Sum(terms)
		})
		if err != nil {
			return nil, err
		}

		replaced, err := k.mapCiphertexts(s.Len(), func(i int) (*Ciphertext, error) {
			return k.eval.Select(isPatternVec[i], patternReplaced[i], cellOf(s, i))
		})
		if err != nil {
			return nil, err
		}

		return FromCells(replaced,
			s.IsPadded() || from.Len() > to.Len() || to.IsPadded(),
			from.Len() == to.Len() && !to.IsPadded()), nil
	}

	// the replacement does not fit: split on from and re-concatenate
	// with to between consecutive fields
	var res *SplitResult
	var fromEmpty *Ciphertext
	if replacen {
		res, fromEmpty, err = k.splitNPatternEmpty(nTimes+1, s, from)
	} else {
		res, fromEmpty, err = k.splitPatternEmpty(s, from)
	}
	if err != nil {
		return nil, err
	}

	toEnc, err := k.encryptedView(to)
	if err != nil {
		return nil, err
	}
	toVals := toEnc.Cells()

	pieces := make([]*FheString, 0, 2*len(res.Fields))
	for i, field := range res.Fields {
		pieces = append(pieces, field)
		if i == len(res.Fields)-1 {
			break
		}
		// a separator past the real field count contributes nothing
		sep, err := k.eval.GtScalar(res.Count, uint64(i+1))
		if err != nil {
			return nil, err
		}
		sepCells, err := k.mapCiphertexts(len(toVals), func(j int) (*Ciphertext, error) {
			return k.eval.MulBool(sep, toVals[j])
		})
		if err != nil {
			return nil, err
		}
		pieces = append(pieces, FromCells(sepCells, true, true))
	}

	concatenated, err := Concat(pieces...)
	if err != nil {
		return nil, err
	}
	finalCells := k.cellsOf(concatenated)
	if from.IsPadded() {
		finalCells, err = k.ifThenElseVec(fromEmpty, resultFromEmpty, finalCells)
		if err != nil {
			return nil, err
		}
	}
	return FromCells(finalCells, true, false), nil
}

// Replace replaces every occurrence of from in s by to. The result is
// generally not reusable; see ReplaceReusable.
func (k *ServerKey) Replace(s, from, to *FheString) (*FheString, error) {
	return k.replaceGeneral(s, from, to, false, 0)
}

// ReplaceReusable replaces every occurrence of from by to and compacts
// the result.
func (k *ServerKey) ReplaceReusable(s, from, to *FheString) (*FheString, error) {
	replaced, err := k.Replace(s, from, to)
	if err != nil {
		return nil, err
	}
	if replaced.IsReusable() {
		return replaced, nil
	}
	return k.MakeReusable(replaced)
}

// ReplaceN replaces the first n occurrences of from in s by to.
func (k *ServerKey) ReplaceN(s, from, to *FheString, n int) (*FheString, error) {
	return k.replaceGeneral(s, from, to, true, n)
}

// ReplaceNReusable replaces the first n occurrences of from by to and
// compacts the result.
func (k *ServerKey) ReplaceNReusable(s, from, to *FheString, n int) (*FheString, error) {
	replaced, err := k.ReplaceN(s, from, to, n)
	if err != nil {
		return nil, err
	}
	// equal-length unpadded replacement writes in place and cannot
	// scatter zeros
	if !from.IsPadded() && !to.IsPadded() && from.Len() == to.Len() {
		return replaced, nil
	}
	if replaced.IsReusable() {
		return replaced, nil
	}
	return k.MakeReusable(replaced)
}
