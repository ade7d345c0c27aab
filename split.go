// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhestring

import (
	"fmt"
	"strings"
)

// SplitResult holds the fields produced by a split operation. The
// slice is sized for the worst case, so it usually holds more entries
// than were actually produced; Count carries the hidden number of real
// fields. Trailing entries beyond the count decrypt to empty strings.
type SplitResult struct {
	Fields []*FheString
	Count  *Ciphertext
}

// splitOptions selects the variant computed by splitGeneral. splitn,
// inclusive, terminator and whitespace are mutually exclusive.
type splitOptions struct {
	splitn           bool
	nTimes           int
	inclusive        bool
	terminator       bool
	whitespace       bool
	rsplitTerminator bool
}

// leftShiftReverse compacts a value that was reversed while padded, so
// its zero cells form a prefix of publicly unknown length. Cheaper
// than leftShiftField because the shift amount is the allocation
// length minus the hidden length.
func (k *ServerKey) leftShiftReverse(s *FheString) (*FheString, error) {
	n := s.Len()
	width := BlocksForRange(uint64(n))
	hiddenLen, err := k.HiddenLen(s)
	if err != nil {
		return nil, err
	}
	hiddenLen, err = k.eval.Extend(hiddenLen, width)
	if err != nil {
		return nil, err
	}
	shift, err := k.eval.Sub(NewTrivial(uint64(n), width), hiddenLen)
	if err != nil {
		return nil, err
	}
	marker, err := k.mapCiphertexts(n, func(i int) (*Ciphertext, error) {
		return k.eval.EqScalar(shift, uint64(i))
	})
	if err != nil {
		return nil, err
	}
	cells, err := k.leftShift(s.Cells(), marker)
	if err != nil {
		return nil, err
	}
	return FromCells(cells, true, true), nil
}

// leftShiftField compacts a split field whose zero cells sit at the
// front, the back, or both, never in the middle.
func (k *ServerKey) leftShiftField(s *FheString) (*FheString, error) {
	nonZero, err := k.nonZeroCells(s.Cells())
	if err != nil {
		return nil, err
	}
	// keep only the first one
	firstSeen := NewTrivialBool(false)
	for i := range nonZero {
		notSeen, err := k.eval.BoolNot(firstSeen)
		if err != nil {
			return nil, err
		}
		nonZero[i], err = k.eval.BoolAnd(nonZero[i], notSeen)
		if err != nil {
			return nil, err
		}
		firstSeen, err = k.eval.BoolOr(firstSeen, nonZero[i])
		if err != nil {
			return nil, err
		}
	}
	cells, err := k.leftShift(s.Cells(), nonZero)
	if err != nil {
		return nil, err
	}
	return FromCells(cells, true, true), nil
}

// reverseInputs reverses both operands for the rsplit variants,
// compacting the reversed pattern when its padding moved to the front.
func (k *ServerKey) reverseInputs(s, pat *FheString) (*FheString, *FheString, error) {
	rs := s.Copy()
	rs.Reverse()
	rp := pat.Copy()
	rp.Reverse()
	if rp.IsEncrypted() && rp.IsPadded() && rp.Len() > 0 {
		var err error
		rp, err = k.leftShiftReverse(rp)
		if err != nil {
			return nil, nil, err
		}
	}
	return rs, rp, nil
}

// splitFields slices the string into one field per stepped cumulative
// sum value. Fields other than the first are generally not reusable.
func (k *ServerKey) splitFields(s *FheString, patPadded bool, patLen int, cumSum []*Ciphertext, stepped []int) ([]*FheString, error) {
	minPatLen := patLen
	if patPadded {
		minPatLen = 1
	}
	step := 1
	if len(stepped) > 1 {
		step = stepped[1]
	}
	out := make([]*FheString, len(stepped))
	for fi, indexSplit := range stepped {
		// cells before the field's earliest possible start are known
		// to be outside it
		startIndex := (indexSplit / step) * minPatLen
		if startIndex > s.Len() {
			startIndex = s.Len()
		}
		notField, err := k.mapCiphertexts(s.Len(), func(i int) (*Ciphertext, error) {
			if i < startIndex {
				return NewTrivialBool(false), nil
			}
			ci := i
			if ci >= len(cumSum) {
				ci = len(cumSum) - 1
			}
			return k.eval.NeScalar(cumSum[ci], uint64(indexSplit))
		})
		if err != nil {
			return nil, err
		}
		cells, err := k.setZeroWhereRange(s.Cells(), notField, startIndex)
		if err != nil {
			return nil, err
		}
		out[fi] = FromCells(cells, true, indexSplit == 0 || len(cells) == 0)
	}
	return out, nil
}

// rustSplitClear splits a clear string with the exact semantics of the
// encrypted path for an empty pattern: a match before every character
// and one after the last.
func rustSplitClear(s, pat string) []string {
	if pat != "" {
		return strings.Split(s, pat)
	}
	out := make([]string, 0, len(s)+2)
	out = append(out, "")
	for i := 0; i < len(s); i++ {
		out = append(out, s[i:i+1])
	}
	return append(out, "")
}

func rustSplitNClear(s, pat string, n int) []string {
	if n <= 0 {
		return nil
	}
	if pat != "" {
		return strings.SplitN(s, pat, n)
	}
	full := rustSplitClear(s, pat)
	if len(full) <= n {
		return full
	}
	out := append([]string{}, full[:n-1]...)
	return append(out, s[n-2:])
}

// clearSplitFields computes the variant selected by opt on clear
// inputs.
func clearSplitFields(s, pat string, opt splitOptions) []string {
	var fields []string
	switch {
	case opt.whitespace:
		fields = strings.FieldsFunc(s, func(r rune) bool {
			return r == ' ' || r == '\n' || r == '\t'
		})
	case opt.splitn:
		fields = rustSplitNClear(s, pat, opt.nTimes+1)
	case opt.inclusive:
		if pat == "" {
			full := rustSplitClear(s, pat)
			fields = full[:len(full)-1]
		} else {
			fields = strings.SplitAfter(s, pat)
		}
	case opt.terminator:
		fields = rustSplitClear(s, pat)
		if n := len(fields); n > 0 && fields[n-1] == "" {
			fields = fields[:n-1]
		}
	default:
		fields = rustSplitClear(s, pat)
	}
	if opt.rsplitTerminator && len(fields) > 0 {
		fields = fields[1:]
	}
	return fields
}

// splitGeneral is the common oblivious split. It marks every cell with
// a cumulative field index (fields get even values, pattern
// occurrences odd ones, overlapping matches suppressed) and then
// extracts one field per even value. It returns the worst-case field
// vector, the hidden field count, whether the pattern occurred, and
// whether the pattern is hidden-empty.
func (k *ServerKey) splitGeneral(s, pat *FheString, opt splitOptions) ([]*FheString, *Ciphertext, *Ciphertext, *Ciphertext, error) {
	patEncrypted, patPadded, patLen := false, false, 1
	if !opt.whitespace {
		if err := k.AssertReusable(pat); err != nil {
			return nil, nil, nil, nil, err
		}
		patEncrypted, patPadded, patLen = pat.IsEncrypted(), pat.IsPadded(), pat.Len()
	}

	if s.Len() == 0 {
		if opt.whitespace {
			return nil, NewTrivial(0, 1), NewTrivialBool(false), NewTrivialBool(true), nil
		}
		var fields []*FheString
		if !opt.inclusive && !opt.terminator && !opt.rsplitTerminator {
			fields = append(fields, s.Copy())
		}
		patEmpty, err := k.IsEmpty(pat)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		count, err := k.eval.Add(NewTrivial(uint64(len(fields)), 1), patEmpty)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		fields = append(fields, s.Copy())
		return fields, count, patEmpty, NewTrivialBool(true), nil
	}

	if !patPadded && patLen > s.Len() {
		field := s.Copy()
		if s.IsClear() && patEncrypted {
			var err error
			field, err = s.TrivialEncrypt(0)
			if err != nil {
				return nil, nil, nil, nil, err
			}
		}
		return []*FheString{field}, NewTrivial(1, 1), NewTrivialBool(false), NewTrivialBool(false), nil
	}

	if s.IsClear() && !patEncrypted {
		var patStr string
		if !opt.whitespace {
			patStr = pat.ClearString()
		}
		clearFields := clearSplitFields(s.ClearString(), patStr, opt)
		fields := make([]*FheString, len(clearFields))
		for i, f := range clearFields {
			var err error
			fields[i], err = NewFheString(f)
			if err != nil {
				return nil, nil, nil, nil, err
			}
		}
		found := strings.ContainsAny(s.ClearString(), asciiWhitespace)
		if !opt.whitespace {
			found = strings.Contains(s.ClearString(), patStr)
		}
		count := NewTrivial(uint64(len(fields)), BlocksForRange(uint64(len(fields))))
		return fields, count, NewTrivialBool(found), NewTrivialBool(patLen == 0), nil
	}

	// worst-case result when the pattern is hidden-empty: an empty
	// field, then one single-character field per cell, then a trailing
	// empty field
	var resultsFromEmpty []*FheString
	if !opt.whitespace {
		if !opt.rsplitTerminator {
			resultsFromEmpty = append(resultsFromEmpty, EmptyEncrypted())
		}
		for i := 0; i < s.Len(); i++ {
			cell := cellOf(s, i).Copy()
			resultsFromEmpty = append(resultsFromEmpty, FromCells([]*Ciphertext{cell}, true, true))
		}
		if !opt.terminator && !opt.inclusive && !(opt.splitn && opt.nTimes < s.Len()) {
			resultsFromEmpty = append(resultsFromEmpty, EmptyEncrypted())
		}
	}
	countFromEmpty := NewTrivial(uint64(len(resultsFromEmpty)), BlocksForRange(uint64(len(resultsFromEmpty))))

	emptyStringCount := uint64(2)
	if opt.terminator || opt.inclusive || (opt.splitn && opt.nTimes == 0) || opt.rsplitTerminator {
		emptyStringCount = 1
	}

	if !opt.whitespace && patLen == 0 {
		// publicly empty pattern: the string itself may still be
		// hidden-empty, which changes the count
		isStringEmpty, err := k.IsEmpty(s)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		a, b, err := k.eval.ExtendEqually(NewTrivial(emptyStringCount, 1), countFromEmpty)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		count, err := k.eval.Select(isStringEmpty, a, b)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		return resultsFromEmpty, count, NewTrivialBool(true), NewTrivialBool(true), nil
	}

	// per-cell pattern occurrence indicators
	var containsVec []*Ciphertext
	var err error
	if opt.whitespace {
		containsVec, err = k.isWhitespaceVec(s)
	} else {
		containsVec, err = k.containsAtIndexVec(s, pat)
	}
	if err != nil {
		return nil, nil, nil, nil, err
	}
	for len(containsVec) < s.Len() {
		containsVec = append(containsVec, NewTrivialBool(false))
	}
	// one extra zero so a match ending exactly at the allocation edge
	// still closes its field
	containsVec = append(containsVec, NewTrivialBool(false))
	n := len(containsVec)

	width := BlocksForRange(uint64(2 * (n + patLen)))

	var patHiddenLen *Ciphertext
	if opt.whitespace {
		patHiddenLen = NewTrivial(1, width)
	} else {
		patHiddenLen, err = k.HiddenLen(pat)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		patHiddenLen, err = k.eval.Extend(patHiddenLen, width)
		if err != nil {
			return nil, nil, nil, nil, err
		}
	}
	stringHiddenLen, err := k.HiddenLen(s)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	// mark fields with a cumulative sum; the pattern start index
	// tracking suppresses overlapping matches so that e.g. splitting
	// "abababa" on "aba" consumes the leftmost match whole
	patternStart := NewTrivial(0, width)
	patternEnd := NewTrivialBool(false)
	cumSum := make([]*Ciphertext, 0, n)
	firstOneSeen := NewTrivialBool(false)
	for i := 0; i < n; i++ {
		if opt.whitespace {
			if i == 0 {
				first, err := k.eval.Extend(containsVec[0], width)
				if err != nil {
					return nil, nil, nil, nil, err
				}
				cumSum = append(cumSum, first)
			} else {
				// count transitions between runs; the length gate
				// also discards the sentinel transition after a
				// trailing whitespace run, which would otherwise
				// open a phantom empty field
				delta, err := k.eval.BoolXor(containsVec[i], containsVec[i-1])
				if err != nil {
					return nil, nil, nil, nil, err
				}
				notPadding, err := k.eval.GtScalar(stringHiddenLen, uint64(i))
				if err != nil {
					return nil, nil, nil, nil, err
				}
				delta, err = k.eval.BoolAnd(delta, notPadding)
				if err != nil {
					return nil, nil, nil, nil, err
				}
				delta, err = k.eval.Extend(delta, width)
				if err != nil {
					return nil, nil, nil, nil, err
				}
				sum, err := k.eval.Add(cumSum[i-1], delta)
				if err != nil {
					return nil, nil, nil, nil, err
				}
				cumSum = append(cumSum, sum)
			}
		} else {
			notSeen, err := k.eval.BoolNot(firstOneSeen)
			if err != nil {
				return nil, nil, nil, nil, err
			}
			isFirstOne, err := k.eval.BoolAnd(containsVec[i], notSeen)
			if err != nil {
				return nil, nil, nil, nil, err
			}
			patternEnd, err = k.eval.Add(patternStart, patHiddenLen)
			if err != nil {
				return nil, nil, nil, nil, err
			}
			justEnded, err := k.eval.EqScalar(patternEnd, uint64(i))
			if err != nil {
				return nil, nil, nil, nil, err
			}
			ended, err := k.eval.LeScalar(patternEnd, uint64(i))
			if err != nil {
				return nil, nil, nil, nil, err
			}
			// both only make sense once a pattern has started
			justEnded, err = k.eval.BoolAnd(justEnded, firstOneSeen)
			if err != nil {
				return nil, nil, nil, nil, err
			}
			ended, err = k.eval.BoolAnd(ended, firstOneSeen)
			if err != nil {
				return nil, nil, nil, nil, err
			}
			afterPattern, err := k.eval.BoolAnd(containsVec[i], ended)
			if err != nil {
				return nil, nil, nil, nil, err
			}
			patternStarts, err := k.eval.BoolOr(isFirstOne, afterPattern)
			if err != nil {
				return nil, nil, nil, nil, err
			}
			patternStart, err = k.eval.Select(patternStarts, NewTrivial(uint64(i), width), patternStart)
			if err != nil {
				return nil, nil, nil, nil, err
			}

			var sum *Ciphertext
			if i == 0 {
				if opt.inclusive {
					sum = NewTrivial(0, width)
				} else {
					sum, err = k.eval.Extend(patternStarts, width)
					if err != nil {
						return nil, nil, nil, nil, err
					}
				}
			} else {
				sum = cumSum[i-1]
				if !opt.inclusive {
					starts, err := k.eval.Extend(patternStarts, width)
					if err != nil {
						return nil, nil, nil, nil, err
					}
					sum, err = k.eval.Add(sum, starts)
					if err != nil {
						return nil, nil, nil, nil, err
					}
				}
				closed, err := k.eval.Extend(justEnded, width)
				if err != nil {
					return nil, nil, nil, nil, err
				}
				sum, err = k.eval.Add(sum, closed)
				if err != nil {
					return nil, nil, nil, nil, err
				}
			}
			if opt.splitn {
				// cap the sum so at most nTimes separations count; a
				// match at index zero must be capped too, or nTimes=0
				// would still open a field there
				limit := uint64(2 * opt.nTimes)
				over, err := k.eval.GtScalar(sum, limit)
				if err != nil {
					return nil, nil, nil, nil, err
				}
				sum, err = k.eval.Select(over, NewTrivial(limit, sum.NumBlocks()), sum)
				if err != nil {
					return nil, nil, nil, nil, err
				}
			}
			cumSum = append(cumSum, sum)
		}
		firstOneSeen, err = k.eval.BoolOr(firstOneSeen, containsVec[i])
		if err != nil {
			return nil, nil, nil, nil, err
		}
	}

	if opt.whitespace {
		// a leading whitespace run must not open an empty field
		sub2, err := k.eval.Select(containsVec[0], NewTrivial(2, width), NewTrivial(0, width))
		if err != nil {
			return nil, nil, nil, nil, err
		}
		for i := range cumSum {
			ge2, err := k.eval.GeScalar(cumSum[i], 2)
			if err != nil {
				return nil, nil, nil, nil, err
			}
			minus2, err := k.eval.Sub(cumSum[i], sub2)
			if err != nil {
				return nil, nil, nil, nil, err
			}
			cumSum[i], err = k.eval.Select(ge2, minus2, cumSum[i])
			if err != nil {
				return nil, nil, nil, nil, err
			}
		}
	}

	// worst-case number of result slots
	var lenSplit int
	switch {
	case opt.splitn:
		lenSplit = 2 * (opt.nTimes + 1)
	case opt.inclusive:
		if !patPadded {
			lenSplit = (s.Len() + patLen - 1) / patLen
		} else {
			lenSplit = s.Len()
		}
	default:
		if !patPadded && !opt.whitespace {
			lenSplit = 1 + 2*s.Len()/patLen
		} else {
			lenSplit = 2 * s.Len()
		}
		if opt.terminator {
			lenSplit--
		}
	}
	step := 2
	if opt.inclusive {
		step = 1
	}
	var stepped []int
	for i := 0; i < lenSplit; i += step {
		stepped = append(stepped, i)
	}

	var count *Ciphertext
	if opt.inclusive {
		count, err = k.eval.ScalarAdd(cumSum[len(cumSum)-1], 1)
		if err != nil {
			return nil, nil, nil, nil, err
		}
	} else {
		lastPlusTwo, err := k.eval.ScalarAdd(cumSum[len(cumSum)-1], 2)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		count, err = k.eval.ShrOne(lastPlusTwo)
		if err != nil {
			return nil, nil, nil, nil, err
		}
	}

	if opt.terminator || opt.inclusive {
		// a pattern occurrence that ends the string closes no extra
		// field; the check only fires when a match was seen at all,
		// otherwise patternEnd holds a stale candidate position
		end, sLen, err := k.eval.ExtendEqually(patternEnd, stringHiddenLen)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		endsString, err := k.eval.Eq(end, sLen)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		endsString, err = k.eval.BoolAnd(endsString, firstOneSeen)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		count, endsString, err = k.eval.ExtendEqually(count, endsString)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		count, err = k.eval.Sub(count, endsString)
		if err != nil {
			return nil, nil, nil, nil, err
		}
	}

	view, err := k.encryptedView(s)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	fields, err := k.splitFields(view, patPadded, patLen, cumSum, stepped)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	if patLen > 0 && !patPadded {
		// the string itself may still be hidden-empty
		isStringEmpty, err := k.IsEmpty(s)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		whenEmpty := emptyStringCount
		if opt.whitespace {
			whenEmpty = 0
		}
		a, b, err := k.eval.ExtendEqually(NewTrivial(whenEmpty, 1), count)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		count, err = k.eval.Select(isStringEmpty, a, b)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		return fields, count, firstOneSeen, NewTrivialBool(false), nil
	}

	// the pattern is padded, so it may be hidden-empty: mix in the
	// worst-case empty-pattern result slot by slot
	isPatternEmpty, err := k.eval.EqScalar(patHiddenLen, 0)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	maxSlots := len(fields)
	if len(resultsFromEmpty) > maxSlots {
		maxSlots = len(resultsFromEmpty)
	}
	empty := EmptyEncrypted()
	mixed := make([]*FheString, maxSlots)
	for i := 0; i < maxSlots; i++ {
		a, b := empty, empty
		if i < len(resultsFromEmpty) {
			a = resultsFromEmpty[i]
		}
		if i < len(fields) {
			b = fields[i]
		}
		mixed[i], err = k.ifThenElseString(isPatternEmpty, a, b)
		if err != nil {
			return nil, nil, nil, nil, err
		}
	}

	isStringEmpty, err := k.eval.EqScalar(stringHiddenLen, 0)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	notPatternEmpty, err := k.eval.BoolNot(isPatternEmpty)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	// empty pattern on an empty string yields one field fewer than the
	// generic empty-pattern construction
	countEmpty, emptyFlag, err := k.eval.ExtendEqually(countFromEmpty, isStringEmpty)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	countEmpty, err = k.eval.Sub(countEmpty, emptyFlag)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	countEmpty, count, err = k.eval.ExtendEqually(countEmpty, count)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	count, err = k.eval.Select(isPatternEmpty, countEmpty, count)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	firstOneSeen, err = k.eval.BoolOr(firstOneSeen, isPatternEmpty)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	countIfStringEmpty, notEmptyFlag, err := k.eval.ExtendEqually(NewTrivial(emptyStringCount, 1), notPatternEmpty)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	countIfStringEmpty, err = k.eval.Sub(countIfStringEmpty, notEmptyFlag)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	countIfStringEmpty, count, err = k.eval.ExtendEqually(countIfStringEmpty, count)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	count, err = k.eval.Select(isStringEmpty, countIfStringEmpty, count)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	return mixed, count, firstOneSeen, isPatternEmpty, nil
}

// makeSplitReusable compacts every non-reusable field. The first field
// always starts at index zero and is skipped.
func (k *ServerKey) makeSplitReusable(fields []*FheString) ([]*FheString, error) {
	if len(fields) <= 1 {
		return fields, nil
	}
	out := make([]*FheString, len(fields))
	out[0] = fields[0]
	for i := 1; i < len(fields); i++ {
		if fields[i].IsReusable() || fields[i].IsClear() || fields[i].Len() == 0 {
			out[i] = fields[i]
			continue
		}
		shifted, err := k.leftShiftField(fields[i])
		if err != nil {
			return nil, err
		}
		out[i] = shifted
	}
	return out, nil
}

func (k *ServerKey) uncheckedSplit(s, pat *FheString) (*SplitResult, error) {
	fields, count, _, _, err := k.splitGeneral(s, pat, splitOptions{})
	if err != nil {
		return nil, err
	}
	return &SplitResult{Fields: fields, Count: count}, nil
}

// Split slices s around every occurrence of pat. Fields other than the
// first are generally not reusable; see SplitReusable.
func (k *ServerKey) Split(s, pat *FheString) (*SplitResult, error) {
	if err := k.AssertReusable(s); err != nil {
		return nil, err
	}
	return k.uncheckedSplit(s, pat)
}

// SplitReusable slices s around every occurrence of pat and compacts
// each field.
func (k *ServerKey) SplitReusable(s, pat *FheString) (*SplitResult, error) {
	res, err := k.Split(s, pat)
	if err != nil {
		return nil, err
	}
	res.Fields, err = k.makeSplitReusable(res.Fields)
	return res, err
}

// splitPatternEmpty additionally reports whether the pattern is
// hidden-empty, which the replacement engine needs.
func (k *ServerKey) splitPatternEmpty(s, pat *FheString) (*SplitResult, *Ciphertext, error) {
	if err := k.AssertReusable(s); err != nil {
		return nil, nil, err
	}
	fields, count, _, patternEmpty, err := k.splitGeneral(s, pat, splitOptions{})
	if err != nil {
		return nil, nil, err
	}
	return &SplitResult{Fields: fields, Count: count}, patternEmpty, nil
}

func (k *ServerKey) reverseFields(fields []*FheString) {
	for _, f := range fields {
		f.Reverse()
	}
}

// RSplit slices s around occurrences of pat searched from the end.
func (k *ServerKey) RSplit(s, pat *FheString) (*SplitResult, error) {
	if err := k.AssertReusable(s); err != nil {
		return nil, err
	}
	if err := k.AssertReusable(pat); err != nil {
		return nil, err
	}
	rs, rp, err := k.reverseInputs(s, pat)
	if err != nil {
		return nil, err
	}
	res, err := k.uncheckedSplit(rs, rp)
	if err != nil {
		return nil, err
	}
	k.reverseFields(res.Fields)
	return res, nil
}

// RSplitReusable is RSplit with compacted fields.
func (k *ServerKey) RSplitReusable(s, pat *FheString) (*SplitResult, error) {
	res, err := k.RSplit(s, pat)
	if err != nil {
		return nil, err
	}
	res.Fields, err = k.makeSplitReusable(res.Fields)
	return res, err
}

// SplitInclusive slices s after every occurrence of pat, keeping the
// occurrence at the end of each field.
func (k *ServerKey) SplitInclusive(s, pat *FheString) (*SplitResult, error) {
	if err := k.AssertReusable(s); err != nil {
		return nil, err
	}
	fields, count, _, _, err := k.splitGeneral(s, pat, splitOptions{inclusive: true})
	if err != nil {
		return nil, err
	}
	return &SplitResult{Fields: fields, Count: count}, nil
}

// SplitInclusiveReusable is SplitInclusive with compacted fields.
func (k *ServerKey) SplitInclusiveReusable(s, pat *FheString) (*SplitResult, error) {
	res, err := k.SplitInclusive(s, pat)
	if err != nil {
		return nil, err
	}
	res.Fields, err = k.makeSplitReusable(res.Fields)
	return res, err
}

// SplitTerminator is Split without the trailing empty field produced
// by a pattern occurrence that ends the string.
func (k *ServerKey) SplitTerminator(s, pat *FheString) (*SplitResult, error) {
	if err := k.AssertReusable(s); err != nil {
		return nil, err
	}
	fields, count, _, _, err := k.splitGeneral(s, pat, splitOptions{terminator: true})
	if err != nil {
		return nil, err
	}
	return &SplitResult{Fields: fields, Count: count}, nil
}

// SplitTerminatorReusable is SplitTerminator with compacted fields.
func (k *ServerKey) SplitTerminatorReusable(s, pat *FheString) (*SplitResult, error) {
	res, err := k.SplitTerminator(s, pat)
	if err != nil {
		return nil, err
	}
	res.Fields, err = k.makeSplitReusable(res.Fields)
	return res, err
}

// RSplitTerminator is SplitTerminator searched from the end.
func (k *ServerKey) RSplitTerminator(s, pat *FheString) (*SplitResult, error) {
	if err := k.AssertReusable(s); err != nil {
		return nil, err
	}
	if err := k.AssertReusable(pat); err != nil {
		return nil, err
	}

	if s.IsClear() && pat.IsClear() {
		clearFields := clearSplitFields(s.ClearString(), pat.ClearString(), splitOptions{terminator: true})
		fields := make([]*FheString, len(clearFields))
		for i := range clearFields {
			var err error
			// iteration order is from the end
			fields[i], err = NewFheString(clearFields[len(clearFields)-1-i])
			if err != nil {
				return nil, err
			}
		}
		count := NewTrivial(uint64(len(fields)), BlocksForRange(uint64(len(fields))))
		return &SplitResult{Fields: fields, Count: count}, nil
	}

	stripped, _, err := k.StripSuffix(s, pat)
	if err != nil {
		return nil, err
	}
	rs, rp, err := k.reverseInputs(stripped, pat)
	if err != nil {
		return nil, err
	}
	fields, count, _, _, err := k.splitGeneral(rs, rp, splitOptions{rsplitTerminator: true})
	if err != nil {
		return nil, err
	}
	k.reverseFields(fields)
	return &SplitResult{Fields: fields, Count: count}, nil
}

// RSplitTerminatorReusable is RSplitTerminator with compacted fields.
func (k *ServerKey) RSplitTerminatorReusable(s, pat *FheString) (*SplitResult, error) {
	res, err := k.RSplitTerminator(s, pat)
	if err != nil {
		return nil, err
	}
	res.Fields, err = k.makeSplitReusable(res.Fields)
	return res, err
}

// SplitASCIIWhitespace slices s around runs of space, newline and tab,
// never producing empty fields.
func (k *ServerKey) SplitASCIIWhitespace(s *FheString) (*SplitResult, error) {
	if err := k.AssertReusable(s); err != nil {
		return nil, err
	}
	fields, count, _, _, err := k.splitGeneral(s, nil, splitOptions{whitespace: true})
	if err != nil {
		return nil, err
	}
	return &SplitResult{Fields: fields, Count: count}, nil
}

// SplitASCIIWhitespaceReusable is SplitASCIIWhitespace with compacted
// fields.
func (k *ServerKey) SplitASCIIWhitespaceReusable(s *FheString) (*SplitResult, error) {
	res, err := k.SplitASCIIWhitespace(s)
	if err != nil {
		return nil, err
	}
	res.Fields, err = k.makeSplitReusable(res.Fields)
	return res, err
}

func (k *ServerKey) uncheckedSplitN(n int, s, pat *FheString) (*SplitResult, error) {
	fields, count, _, _, err := k.splitGeneral(s, pat, splitOptions{splitn: true, nTimes: n - 1})
	if err != nil {
		return nil, err
	}
	return &SplitResult{Fields: fields, Count: count}, nil
}

// SplitN slices s around the first n-1 occurrences of pat; the last
// field carries the unsplit remainder.
func (k *ServerKey) SplitN(n int, s, pat *FheString) (*SplitResult, error) {
	if err := k.AssertReusable(s); err != nil {
		return nil, err
	}
	if n == 0 {
		return &SplitResult{Count: NewTrivial(0, 1)}, nil
	}
	if n == 1 {
		return &SplitResult{Fields: []*FheString{s.Copy()}, Count: NewTrivial(1, 1)}, nil
	}
	return k.uncheckedSplitN(n, s, pat)
}

// splitNPatternEmpty additionally reports whether the pattern is
// hidden-empty, which the replacement engine needs.
func (k *ServerKey) splitNPatternEmpty(n int, s, pat *FheString) (*SplitResult, *Ciphertext, error) {
	if err := k.AssertReusable(s); err != nil {
		return nil, nil, err
	}
	if n < 1 {
		return nil, nil, fmt.Errorf("splitn: n must be positive, got %d", n)
	}
	fields, count, _, patternEmpty, err := k.splitGeneral(s, pat, splitOptions{splitn: true, nTimes: n - 1})
	if err != nil {
		return nil, nil, err
	}
	return &SplitResult{Fields: fields, Count: count}, patternEmpty, nil
}

// SplitNReusable is SplitN with compacted fields.
func (k *ServerKey) SplitNReusable(n int, s, pat *FheString) (*SplitResult, error) {
	res, err := k.SplitN(n, s, pat)
	if err != nil {
		return nil, err
	}
	res.Fields, err = k.makeSplitReusable(res.Fields)
	return res, err
}

// RSplitN is SplitN searched from the end.
func (k *ServerKey) RSplitN(n int, s, pat *FheString) (*SplitResult, error) {
	if err := k.AssertReusable(s); err != nil {
		return nil, err
	}
	if err := k.AssertReusable(pat); err != nil {
		return nil, err
	}
	if n == 0 {
		return &SplitResult{Count: NewTrivial(0, 1)}, nil
	}
	if n == 1 {
		return &SplitResult{Fields: []*FheString{s.Copy()}, Count: NewTrivial(1, 1)}, nil
	}
	rs, rp, err := k.reverseInputs(s, pat)
	if err != nil {
		return nil, err
	}
	res, err := k.uncheckedSplitN(n, rs, rp)
	if err != nil {
		return nil, err
	}
	k.reverseFields(res.Fields)
	return res, nil
}

// RSplitNReusable is RSplitN with compacted fields.
func (k *ServerKey) RSplitNReusable(n int, s, pat *FheString) (*SplitResult, error) {
	res, err := k.RSplitN(n, s, pat)
	if err != nil {
		return nil, err
	}
	res.Fields, err = k.makeSplitReusable(res.Fields)
	return res, err
}

func (k *ServerKey) uncheckedSplitOnce(s, pat *FheString) ([]*FheString, *Ciphertext, error) {
	fields, _, found, _, err := k.splitGeneral(s, pat, splitOptions{splitn: true, nTimes: 1})
	if err != nil {
		return nil, nil, err
	}
	return fields, found, nil
}

// SplitOnce slices s around the first occurrence of pat, returning the
// two fields and the match indicator.
func (k *ServerKey) SplitOnce(s, pat *FheString) ([]*FheString, *Ciphertext, error) {
	if err := k.AssertReusable(s); err != nil {
		return nil, nil, err
	}
	if err := k.AssertReusable(pat); err != nil {
		return nil, nil, err
	}
	if !pat.IsPadded() && pat.Len() > s.Len() {
		return nil, NewTrivialBool(false), nil
	}
	if s.Len() == 0 {
		patEmpty, err := k.IsEmpty(pat)
		if err != nil {
			return nil, nil, err
		}
		return []*FheString{s.Copy(), s.Copy()}, patEmpty, nil
	}
	return k.uncheckedSplitOnce(s, pat)
}

// SplitOnceReusable is SplitOnce with compacted fields.
func (k *ServerKey) SplitOnceReusable(s, pat *FheString) ([]*FheString, *Ciphertext, error) {
	fields, found, err := k.SplitOnce(s, pat)
	if err != nil {
		return nil, nil, err
	}
	fields, err = k.makeSplitReusable(fields)
	return fields, found, err
}

// RSplitOnce slices s around the last occurrence of pat. Unlike RSplit
// the two fields come back in string order.
func (k *ServerKey) RSplitOnce(s, pat *FheString) ([]*FheString, *Ciphertext, error) {
	if err := k.AssertReusable(s); err != nil {
		return nil, nil, err
	}
	if err := k.AssertReusable(pat); err != nil {
		return nil, nil, err
	}
	if !pat.IsPadded() && pat.Len() > s.Len() {
		return nil, NewTrivialBool(false), nil
	}
	if s.Len() == 0 {
		patEmpty, err := k.IsEmpty(pat)
		if err != nil {
			return nil, nil, err
		}
		return []*FheString{s.Copy(), s.Copy()}, patEmpty, nil
	}
	rs, rp, err := k.reverseInputs(s, pat)
	if err != nil {
		return nil, nil, err
	}
	fields, found, err := k.uncheckedSplitOnce(rs, rp)
	if err != nil {
		return nil, nil, err
	}
	k.reverseFields(fields)
	if len(fields) > 2 {
		fields = fields[:2]
	}
	for i, j := 0, len(fields)-1; i < j; i, j = i+1, j-1 {
		fields[i], fields[j] = fields[j], fields[i]
	}
	return fields, found, nil
}

// RSplitOnceReusable is RSplitOnce with compacted fields.
func (k *ServerKey) RSplitOnceReusable(s, pat *FheString) ([]*FheString, *Ciphertext, error) {
	fields, found, err := k.RSplitOnce(s, pat)
	if err != nil {
		return nil, nil, err
	}
	fields, err = k.makeSplitReusable(fields)
	return fields, found, err
}
