// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhestring

// MakeReusable compacts a value whose zero cells may sit anywhere,
// moving every non-zero cell to the front in order. This is the most
// expensive compaction; prefer the cheaper shifting variants when the
// zero layout is known. A reusable input comes back as a copy.
func (k *ServerKey) MakeReusable(s *FheString) (*FheString, error) {
	if s.IsReusable() || s.IsClear() {
		return s.Copy(), nil
	}
	n := s.Len()
	if n == 0 {
		return s.Copy(), nil
	}
	width := BlocksForRange(uint64(n))

	nonZero, err := k.nonZeroCells(s.Cells())
	if err != nil {
		return nil, err
	}
	// nthIndices[i] holds the rank of the i-th cell among the
	// non-zero ones
	nthIndices := make([]*Ciphertext, n)
	nthIndices[0], err = k.eval.Extend(nonZero[0], width)
	if err != nil {
		return nil, err
	}
	for i := 1; i < n; i++ {
		wide, err := k.eval.Extend(nonZero[i], width)
		if err != nil {
			return nil, err
		}
		nthIndices[i], err = k.eval.Add(wide, nthIndices[i-1])
		if err != nil {
			return nil, err
		}
	}

	// tidy[rank-1] = Σ_i cells[i] × (nthIndices[i] == rank); the rank
	// cannot be reached before index rank-1
	tidy, err := k.mapCiphertexts(n, func(slot int) (*Ciphertext, error) {
		rank := slot + 1
		terms := make([]*Ciphertext, 0, n-slot)
		for i := rank - 1; i < n; i++ {
			isRank, err := k.eval.EqScalar(nthIndices[i], uint64(rank))
			if err != nil {
				return nil, err
			}
			term, err := k.eval.MulBool(isRank, s.Cells()[i])
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
	return FromCells(tidy, true, true), nil
}

// Repeat concatenates n copies of s. s may carry padding; the result
// then interleaves padding with every copy and is not reusable.
func (k *ServerKey) Repeat(s *FheString, n int) (*FheString, error) {
	return s.Repeat(n), nil
}

// RepeatReusable concatenates n copies of s and compacts the result,
// whose padding otherwise repeats inside every copy.
func (k *ServerKey) RepeatReusable(s *FheString, n int) (*FheString, error) {
	repeated, err := k.Repeat(s, n)
	if err != nil {
		return nil, err
	}
	if repeated.IsReusable() {
		return repeated, nil
	}
	return k.MakeReusable(repeated)
}

// Concatenate joins values end to end at the representation level.
// The result is reusable only when no value before the last carries
// padding; see MakeReusable otherwise.
func (k *ServerKey) Concatenate(values ...*FheString) (*FheString, error) {
	for _, v := range values {
		if err := k.AssertReusable(v); err != nil {
			return nil, err
		}
	}
	return Concat(values...)
}
