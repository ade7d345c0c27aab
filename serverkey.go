// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhestring

import (
	"fmt"
)

// ServerKey is the evaluation-side key. It wraps the homomorphic
// evaluator and a worker pool, and provides the shared oblivious
// primitives every algorithm family builds on. A ServerKey holds no
// secret key material.
type ServerKey struct {
	params Parameters
	eval   *Evaluator
	pool   *Pool
}

// NewServerKey creates a server key with a default-sized worker pool.
func NewServerKey(params Parameters, bsk *BootstrapKey) *ServerKey {
	return NewServerKeyWithPool(params, bsk, DefaultPoolConfig())
}

// NewServerKeyWithPool creates a server key with an explicit pool
// configuration.
func NewServerKeyWithPool(params Parameters, bsk *BootstrapKey, cfg PoolConfig) *ServerKey {
	return &ServerKey{
		params: params,
		eval:   NewEvaluator(params, bsk),
		pool:   NewPool(cfg),
	}
}

// Eval exposes the underlying evaluator.
func (k *ServerKey) Eval() *Evaluator { return k.eval }

// Pool exposes the underlying worker pool.
func (k *ServerKey) Pool() *Pool { return k.pool }

// Close shuts down the worker pool.
func (k *ServerKey) Close() { k.pool.Close() }

// TrivialBool returns a trivial encrypted boolean.
func (k *ServerKey) TrivialBool(v bool) *Ciphertext {
	return NewTrivialBool(v)
}

// Not negates an encrypted boolean.
func (k *ServerKey) Not(c *Ciphertext) (*Ciphertext, error) {
	return k.eval.BoolNot(c)
}

// AssertReusable fails fast when a value may hold interior zero cells.
func (k *ServerKey) AssertReusable(s *FheString) error {
	if !s.IsReusable() {
		return ErrNotReusable
	}
	return nil
}

// mapCiphertexts fans f over n indices on the pool and collects the
// results in order.
func (k *ServerKey) mapCiphertexts(n int, f func(i int) (*Ciphertext, error)) ([]*Ciphertext, error) {
	out := make([]*Ciphertext, n)
	err := k.pool.Each(n, func(i int) error {
		c, err := f(i)
		if err != nil {
			return err
		}
		out[i] = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// reduce folds a vector of encrypted booleans with op as a balanced
// tree, pairing in parallel rounds.
func (k *ServerKey) reduce(vec []*Ciphertext, op func(a, b *Ciphertext) (*Ciphertext, error)) (*Ciphertext, error) {
	cur := vec
	for len(cur) > 1 {
		half := len(cur) / 2
		next := make([]*Ciphertext, half+len(cur)%2)
		err := k.pool.Each(half, func(i int) error {
			c, err := op(cur[2*i], cur[2*i+1])
			if err != nil {
				return err
			}
			next[i] = c
			return nil
		})
		if err != nil {
			return nil, err
		}
		if len(cur)%2 == 1 {
			next[half] = cur[len(cur)-1]
		}
		cur = next
	}
	return cur[0], nil
}

// All returns the AND of a vector of encrypted booleans. An empty
// vector is vacuously true.
func (k *ServerKey) All(vec []*Ciphertext) (*Ciphertext, error) {
	if len(vec) == 0 {
		return NewTrivialBool(true), nil
	}
	return k.reduce(vec, k.eval.BoolAnd)
}

// Any returns the OR of a vector of encrypted booleans. An empty
// vector is false.
func (k *ServerKey) Any(vec []*Ciphertext) (*Ciphertext, error) {
	if len(vec) == 0 {
		return NewTrivialBool(false), nil
	}
	return k.reduce(vec, k.eval.BoolOr)
}

// encryptedView returns s itself when encrypted, or a trivial lift of
// a clear value so it can enter a homomorphic circuit.
func (k *ServerKey) encryptedView(s *FheString) (*FheString, error) {
	if s.IsEncrypted() {
		return s, nil
	}
	return s.TrivialEncrypt(0)
}

// nonZeroCells computes the per-cell nonzero indicator vector.
func (k *ServerKey) nonZeroCells(cells []*Ciphertext) ([]*Ciphertext, error) {
	return k.mapCiphertexts(len(cells), func(i int) (*Ciphertext, error) {
		return k.eval.IsNonZero(cells[i])
	})
}

// zeroCells computes the per-cell zero indicator vector.
func (k *ServerKey) zeroCells(cells []*Ciphertext) ([]*Ciphertext, error) {
	return k.mapCiphertexts(len(cells), func(i int) (*Ciphertext, error) {
		return k.eval.IsZero(cells[i])
	})
}

// HiddenLen returns the logical length of a value as an encrypted
// integer: the number of non-zero cells. For clear or unpadded values
// the length is public and the result is trivial.
func (k *ServerKey) HiddenLen(s *FheString) (*Ciphertext, error) {
	width := BlocksForRange(uint64(s.Len()))
	if s.IsClear() || !s.IsPadded() {
		return NewTrivial(uint64(s.Len()), width), nil
	}
	indicators, err := k.nonZeroCells(s.Cells())
	if err != nil {
		return nil, fmt.Errorf("hidden length: %w", err)
	}
	wide, err := k.mapCiphertexts(len(indicators), func(i int) (*Ciphertext, error) {
		return k.eval.Extend(indicators[i], width)
	})
	if err != nil {
		return nil, fmt.Errorf("hidden length: %w", err)
	}
	sum, err := k.eval.Sum(wide)
	if err != nil {
		return nil, fmt.Errorf("hidden length: %w", err)
	}
	return sum, nil
}

// isEmptyRange reports whether s[start:end] holds no logical content,
// meaning the window is either empty or all zero cells.
func (k *ServerKey) isEmptyRange(s *FheString, start, end int) (*Ciphertext, error) {
	if end-start == 0 {
		return NewTrivialBool(true), nil
	}
	if s.IsClear() {
		// clear values never hold zero bytes
		return NewTrivialBool(false), nil
	}
	zeros, err := k.zeroCells(s.Cells()[start:end])
	if err != nil {
		return nil, fmt.Errorf("is empty: %w", err)
	}
	return k.All(zeros)
}

// IsEmpty returns an encrypted boolean for "the logical length is
// zero". Trivial for clear or unpadded values.
func (k *ServerKey) IsEmpty(s *FheString) (*Ciphertext, error) {
	if s.IsClear() || !s.IsPadded() {
		return NewTrivialBool(s.Len() == 0), nil
	}
	return k.isEmptyRange(s, 0, s.Len())
}

// setZeroWhereRange returns cells[start:], zeroing every position whose
// cond indicator is one. Positions beyond len(cond) pass through.
func (k *ServerKey) setZeroWhereRange(cells, cond []*Ciphertext, start int) ([]*Ciphertext, error) {
	n := len(cells) - start
	return k.mapCiphertexts(n, func(i int) (*Ciphertext, error) {
		idx := start + i
		if idx >= len(cond) {
			return cells[idx].Copy(), nil
		}
		keep, err := k.eval.BoolNot(cond[idx])
		if err != nil {
			return nil, err
		}
		return k.eval.MulBool(keep, cells[idx])
	})
}

// setZeroWhere zeroes cells[i] wherever cond[i] is one, keeping the
// others. cond must have bool width.
func (k *ServerKey) setZeroWhere(cells, cond []*Ciphertext) ([]*Ciphertext, error) {
	if len(cells) != len(cond) {
		return nil, fmt.Errorf("set zero where: %d cells, %d conditions", len(cells), len(cond))
	}
	return k.setZeroWhereRange(cells, cond, 0)
}

// ifThenElseString selects a whole string obliviously: a when cond is
// one, b otherwise. The shorter operand is padded with trivial zeros
// to the longer allocation. When cond is trivial the chosen operand is
// returned directly, its public identity already being known.
func (k *ServerKey) ifThenElseString(cond *Ciphertext, a, b *FheString) (*FheString, error) {
	if v, ok := cond.trivialValue(); ok {
		if v != 0 {
			return a.Copy(), nil
		}
		return b.Copy(), nil
	}

	ea, err := k.encryptedView(a)
	if err != nil {
		return nil, fmt.Errorf("if-then-else: %w", err)
	}
	eb, err := k.encryptedView(b)
	if err != nil {
		return nil, fmt.Errorf("if-then-else: %w", err)
	}
	n := ea.Len()
	if eb.Len() > n {
		n = eb.Len()
	}
	cellAt := func(s *FheString, i int) *Ciphertext {
		if i < s.Len() {
			return s.Cells()[i]
		}
		return NewTrivial(0, CellBlocks)
	}
	cells, err := k.mapCiphertexts(n, func(i int) (*Ciphertext, error) {
		return k.eval.Select(cond, cellAt(ea, i), cellAt(eb, i))
	})
	if err != nil {
		return nil, fmt.Errorf("if-then-else: %w", err)
	}
	padded := ea.IsPadded() || eb.IsPadded() || ea.Len() != eb.Len()
	return FromCells(cells, padded, ea.IsReusable() && eb.IsReusable()), nil
}

// leftShift shifts cells left to the position marked by indexVec, a
// one-hot (or all-zero) indicator of the first cell to keep:
// out[i] = Σ_j cells[i+j] × indexVec[j]. The tail fills with zeros. An
// all-zero indexVec yields an all-zero result, so callers must
// guarantee a marker. indexVec may be shorter than cells when the
// marker is known to lie in its range.
func (k *ServerKey) leftShift(cells, indexVec []*Ciphertext) ([]*Ciphertext, error) {
	return k.mapCiphertexts(len(cells), func(i int) (*Ciphertext, error) {
		hi := len(cells)
		if i+len(indexVec) < hi {
			hi = i + len(indexVec)
		}
		terms := make([]*Ciphertext, 0, hi-i)
		for j := i; j < hi; j++ {
			term, err := k.eval.MulBool(indexVec[j-i], cells[j])
			if err != nil {
				return nil, err
			}
			terms = append(terms, term)
		}
		if len(terms) == 0 {
			return NewTrivial(0, CellBlocks), nil
		}
		return k.eval.Sum(terms)
	})
}
