// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhestring

import (
	"fmt"

	"github.com/luxfi/lattice/v7/core/rgsw/blindrot"
	"github.com/luxfi/lattice/v7/core/rlwe"
	"github.com/luxfi/lattice/v7/ring"
)

// Evaluator computes on radix ciphertexts without the secret key.
// Bootstrapping uses blind rotation followed by sample extraction and
// key switching, which are public operations.
//
// Pairs of blocks are packed as a + blockSpace*b before a LUT bootstrap;
// the carry bits of the encoding space make the packing lossless.
//
// Operations whose operands are all trivial are computed directly on the
// public values and produce trivial results.
type Evaluator struct {
	params   Parameters
	eval     *blindrot.Evaluator
	bsk      *BootstrapKey
	ringQLWE *ring.Ring
	ringQBR  *ring.Ring

	// Single-operand LUTs over the encoding space [0, carrySpace).
	lutMessage  *ring.Poly // v -> v % blockSpace (refresh)
	lutCarry    *ring.Poly // v -> v / blockSpace (carry digit)
	lutIsZero   *ring.Poly // v -> v == 0
	lutBoolNot  *ring.Poly // v -> v == 0 (on 0/1 inputs)
	lutInvDigit *ring.Poly // v -> blockSpace-1 - v%blockSpace
	lutHalf     *ring.Poly // v -> (v % blockSpace) >> 1
	lutLowUp    *ring.Poly // v -> (v & 1) << (blockBits - 1)

	// Pair LUTs over packed v = a + blockSpace*b.
	lutPairEq      *ring.Poly // a == b
	lutPairLt      *ring.Poly // a < b
	lutPairBoolAnd *ring.Poly // a != 0 && b != 0
	lutPairBoolOr  *ring.Poly // a != 0 || b != 0
	lutPairBoolXor *ring.Poly // (a != 0) != (b != 0)
	lutPairGate    *ring.Poly // b != 0 ? a : 0
	lutPairGateNot *ring.Poly // b == 0 ? a : 0
}

// NewEvaluator creates a new evaluator from a bootstrap key. No secret
// key is required.
func NewEvaluator(params Parameters, bsk *BootstrapKey) *Evaluator {
	eval := &Evaluator{
		params:   params,
		eval:     blindrot.NewEvaluator(params.paramsBR, params.paramsLWE),
		bsk:      bsk,
		ringQLWE: params.paramsLWE.RingQ(),
		ringQBR:  params.paramsBR.RingQ(),
	}
	eval.precomputeLUTs()
	return eval
}

// decodeSpace maps the normalized blind-rotation domain [-1, 1] back to
// an integer in [0, carrySpace).
func decodeSpace(x float64) int {
	v := int((x + 1) * float64(carrySpace) / 2)
	if v >= carrySpace {
		v = carrySpace - 1
	}
	if v < 0 {
		v = 0
	}
	return v
}

// encodeSpace maps an integer in [0, blockSpace) back to [-1, 1].
func encodeSpace(v int) float64 {
	return float64(v)*2/float64(carrySpace) - 1
}

func (eval *Evaluator) precomputeLUTs() {
	scale := rlwe.NewScale(float64(eval.params.QBR()) / float64(2*carrySpace))
	ringQ := eval.ringQBR

	single := func(f func(v int) int) *ring.Poly {
		p := lutPoly(func(x float64) float64 {
			return encodeSpace(f(decodeSpace(x)))
		}, scale, ringQ)
		return &p
	}
	pair := func(f func(a, b int) int) *ring.Poly {
		p := lutPoly(func(x float64) float64 {
			v := decodeSpace(x)
			return encodeSpace(f(v%blockSpace, v/blockSpace))
		}, scale, ringQ)
		return &p
	}
	boolVal := func(b bool) int {
		if b {
			return 1
		}
		return 0
	}

	eval.lutMessage = single(func(v int) int { return v % blockSpace })
	eval.lutCarry = single(func(v int) int { return (v / blockSpace) % blockSpace })
	eval.lutIsZero = single(func(v int) int { return boolVal(v == 0) })
	eval.lutBoolNot = single(func(v int) int { return boolVal(v == 0) })
	eval.lutInvDigit = single(func(v int) int { return blockSpace - 1 - v%blockSpace })
	eval.lutHalf = single(func(v int) int { return (v % blockSpace) >> 1 })
	eval.lutLowUp = single(func(v int) int { return (v & 1) << (blockBits - 1) })

	eval.lutPairEq = pair(func(a, b int) int { return boolVal(a == b) })
	eval.lutPairLt = pair(func(a, b int) int { return boolVal(a < b) })
	eval.lutPairBoolAnd = pair(func(a, b int) int { return boolVal(a != 0 && b != 0) })
	eval.lutPairBoolOr = pair(func(a, b int) int { return boolVal(a != 0 || b != 0) })
	eval.lutPairBoolXor = pair(func(a, b int) int { return boolVal((a != 0) != (b != 0)) })
	eval.lutPairGate = pair(func(a, b int) int {
		if b != 0 {
			return a
		}
		return 0
	})
	eval.lutPairGateNot = pair(func(a, b int) int {
		if b == 0 {
			return a
		}
		return 0
	})
}

// ========== Bootstrap Machinery ==========

// sampleExtractAndModSwitch converts a blind rotation result back to an
// LWE ciphertext. With equal dimensions and moduli this is a copy.
func (eval *Evaluator) sampleExtractAndModSwitch(ctBR *rlwe.Ciphertext) (*rlwe.Ciphertext, error) {
	if eval.params.N() == eval.params.NBR() && eval.params.QLWE() == eval.params.QBR() {
		return ctBR.CopyNew(), nil
	}

	levelBR := ctBR.Level()
	ringQBR := eval.ringQBR.AtLevel(levelBR)
	qBR := eval.params.QBR()
	qLWE := eval.params.QLWE()

	c0 := ctBR.Value[0].CopyNew()
	c1 := ctBR.Value[1].CopyNew()

	if ctBR.IsNTT {
		ringQBR.INTT(*c0, *c0)
		ringQBR.INTT(*c1, *c1)
	}

	nLWE := eval.params.N()
	ctLWE := rlwe.NewCiphertext(eval.params.paramsLWE, 1, eval.params.paramsLWE.MaxLevel())

	scaleFactor := float64(qLWE) / float64(qBR)
	for i := 0; i < nLWE; i++ {
		ctLWE.Value[0].Coeffs[0][i] = uint64(float64(c0.Coeffs[0][i])*scaleFactor+0.5) % qLWE
		ctLWE.Value[1].Coeffs[0][i] = uint64(float64(c1.Coeffs[0][i])*scaleFactor+0.5) % qLWE
	}

	ringQLWE := eval.ringQLWE.AtLevel(eval.params.paramsLWE.MaxLevel())
	ringQLWE.NTT(ctLWE.Value[0], ctLWE.Value[0])
	ringQLWE.NTT(ctLWE.Value[1], ctLWE.Value[1])
	ctLWE.IsNTT = true

	return ctLWE, nil
}

// bootstrap evaluates a LUT on a ciphertext via programmable bootstrapping.
func (eval *Evaluator) bootstrap(ct *rlwe.Ciphertext, lut *ring.Poly) (*rlwe.Ciphertext, error) {
	testPolyMap := map[int]*ring.Poly{0: lut}

	results, err := eval.eval.Evaluate(ct, testPolyMap, eval.bsk.BRK)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	ctBR, ok := results[0]
	if !ok {
		return nil, fmt.Errorf("bootstrap: no result for slot 0")
	}

	return eval.sampleExtractAndModSwitch(ctBR)
}

// addCts adds two LWE ciphertexts element-wise.
func (eval *Evaluator) addCts(ct1, ct2 *rlwe.Ciphertext) *rlwe.Ciphertext {
	result := rlwe.NewCiphertext(eval.params.paramsLWE, 1, ct1.Level())
	eval.ringQLWE.Add(ct1.Value[0], ct2.Value[0], result.Value[0])
	eval.ringQLWE.Add(ct1.Value[1], ct2.Value[1], result.Value[1])
	result.IsNTT = ct1.IsNTT
	return result
}

// mulScalarCt multiplies a ciphertext by a small public scalar.
func (eval *Evaluator) mulScalarCt(ct *rlwe.Ciphertext, scalar uint64) *rlwe.Ciphertext {
	result := rlwe.NewCiphertext(eval.params.paramsLWE, 1, ct.Level())
	eval.ringQLWE.MulScalar(ct.Value[0], scalar, result.Value[0])
	eval.ringQLWE.MulScalar(ct.Value[1], scalar, result.Value[1])
	result.IsNTT = ct.IsNTT
	return result
}

// packPair packs two blocks into a single ciphertext a + blockSpace*b.
func (eval *Evaluator) packPair(a, b *block) *rlwe.Ciphertext {
	shifted := eval.mulScalarCt(liftBlock(eval.params, b), blockSpace)
	return eval.addCts(liftBlock(eval.params, a), shifted)
}

// singleLUT applies a single-operand LUT to a block, with a trivial fast
// path.
func (eval *Evaluator) singleLUT(a *block, lut *ring.Poly, f func(v int) int) (*block, error) {
	if a.trivial {
		return trivialBlock(f(a.value)), nil
	}
	ct, err := eval.bootstrap(a.ct, lut)
	if err != nil {
		return nil, err
	}
	return &block{ct: ct}, nil
}

// pairLUT applies a pair LUT to two blocks, with a trivial fast path.
func (eval *Evaluator) pairLUT(a, b *block, lut *ring.Poly, f func(a, b int) int) (*block, error) {
	if a.trivial && b.trivial {
		return trivialBlock(f(a.value, b.value)), nil
	}
	ct, err := eval.bootstrap(eval.packPair(a, b), lut)
	if err != nil {
		return nil, err
	}
	return &block{ct: ct}, nil
}

// ========== Arithmetic ==========

// addDigits computes the base-blockSpace sum a+b+carry, returning the
// message digit and the outgoing carry.
func (eval *Evaluator) addDigits(a, b, carry *block) (digit, carryOut *block, err error) {
	if a.trivial && b.trivial && carry.trivial {
		v := a.value + b.value + carry.value
		return trivialBlock(v % blockSpace), trivialBlock(v / blockSpace), nil
	}

	sum := eval.addCts(liftBlock(eval.params, a), liftBlock(eval.params, b))
	sum = eval.addCts(sum, liftBlock(eval.params, carry))

	digitCt, err := eval.bootstrap(sum, eval.lutMessage)
	if err != nil {
		return nil, nil, err
	}
	carryCt, err := eval.bootstrap(sum, eval.lutCarry)
	if err != nil {
		return nil, nil, err
	}
	return &block{ct: digitCt}, &block{ct: carryCt}, nil
}

// Add computes a + b (mod the radix width).
func (eval *Evaluator) Add(a, b *Ciphertext) (*Ciphertext, error) {
	if len(a.blocks) != len(b.blocks) {
		return nil, fmt.Errorf("add: width mismatch: %d vs %d blocks", len(a.blocks), len(b.blocks))
	}

	blocks := make([]*block, len(a.blocks))
	carry := trivialBlock(0)
	for i := range a.blocks {
		var err error
		blocks[i], carry, err = eval.addDigits(a.blocks[i], b.blocks[i], carry)
		if err != nil {
			return nil, fmt.Errorf("add: block %d: %w", i, err)
		}
	}
	return &Ciphertext{blocks: blocks}, nil
}

// Sub computes a - b (mod the radix width) via base-complement addition.
func (eval *Evaluator) Sub(a, b *Ciphertext) (*Ciphertext, error) {
	if len(a.blocks) != len(b.blocks) {
		return nil, fmt.Errorf("sub: width mismatch: %d vs %d blocks", len(a.blocks), len(b.blocks))
	}

	blocks := make([]*block, len(a.blocks))
	carry := trivialBlock(1)
	for i := range a.blocks {
		inv, err := eval.singleLUT(b.blocks[i], eval.lutInvDigit, func(v int) int {
			return blockSpace - 1 - v
		})
		if err != nil {
			return nil, fmt.Errorf("sub: block %d: %w", i, err)
		}
		blocks[i], carry, err = eval.addDigits(a.blocks[i], inv, carry)
		if err != nil {
			return nil, fmt.Errorf("sub: block %d: %w", i, err)
		}
	}
	return &Ciphertext{blocks: blocks}, nil
}

// ScalarAdd adds a public scalar.
func (eval *Evaluator) ScalarAdd(a *Ciphertext, scalar uint64) (*Ciphertext, error) {
	return eval.Add(a, NewTrivial(scalar, len(a.blocks)))
}

// ScalarSub subtracts a public scalar.
func (eval *Evaluator) ScalarSub(a *Ciphertext, scalar uint64) (*Ciphertext, error) {
	return eval.Sub(a, NewTrivial(scalar, len(a.blocks)))
}

// Sum folds a vector with Add. All operands must share one width.
func (eval *Evaluator) Sum(vec []*Ciphertext) (*Ciphertext, error) {
	if len(vec) == 0 {
		return nil, fmt.Errorf("sum: empty vector")
	}
	acc := vec[0].Copy()
	for i := 1; i < len(vec); i++ {
		var err error
		acc, err = eval.Add(acc, vec[i])
		if err != nil {
			return nil, fmt.Errorf("sum: element %d: %w", i, err)
		}
	}
	return acc, nil
}

// ShrOne halves a value (logical shift right by one bit).
func (eval *Evaluator) ShrOne(a *Ciphertext) (*Ciphertext, error) {
	if v, ok := a.trivialValue(); ok {
		return NewTrivial(v>>1, len(a.blocks)), nil
	}

	n := len(a.blocks)
	blocks := make([]*block, n)
	for i := 0; i < n; i++ {
		half, err := eval.singleLUT(a.blocks[i], eval.lutHalf, func(v int) int { return v >> 1 })
		if err != nil {
			return nil, fmt.Errorf("shr: block %d: %w", i, err)
		}
		if i+1 < n {
			up, err := eval.singleLUT(a.blocks[i+1], eval.lutLowUp, func(v int) int {
				return (v & 1) << (blockBits - 1)
			})
			if err != nil {
				return nil, fmt.Errorf("shr: block %d: %w", i, err)
			}
			// Bit-disjoint values, plain addition with a refresh.
			if half.trivial && up.trivial {
				half = trivialBlock(half.value + up.value)
			} else {
				sum := eval.addCts(liftBlock(eval.params, half), liftBlock(eval.params, up))
				refreshed, err := eval.bootstrap(sum, eval.lutMessage)
				if err != nil {
					return nil, fmt.Errorf("shr: block %d: %w", i, err)
				}
				half = &block{ct: refreshed}
			}
		}
		blocks[i] = half
	}
	return &Ciphertext{blocks: blocks}, nil
}

// ========== Comparison ==========

// Eq returns an encrypted boolean: a == b.
func (eval *Evaluator) Eq(a, b *Ciphertext) (*Ciphertext, error) {
	if len(a.blocks) != len(b.blocks) {
		return nil, fmt.Errorf("eq: width mismatch: %d vs %d blocks", len(a.blocks), len(b.blocks))
	}

	var result *Ciphertext
	for i := range a.blocks {
		blockEq, err := eval.pairLUT(a.blocks[i], b.blocks[i], eval.lutPairEq, func(x, y int) int {
			if x == y {
				return 1
			}
			return 0
		})
		if err != nil {
			return nil, fmt.Errorf("eq: block %d: %w", i, err)
		}
		eqBool := &Ciphertext{blocks: []*block{blockEq}}
		if result == nil {
			result = eqBool
		} else {
			result, err = eval.BoolAnd(result, eqBool)
			if err != nil {
				return nil, err
			}
		}
	}
	return result, nil
}

// Ne returns an encrypted boolean: a != b.
func (eval *Evaluator) Ne(a, b *Ciphertext) (*Ciphertext, error) {
	eq, err := eval.Eq(a, b)
	if err != nil {
		return nil, err
	}
	return eval.BoolNot(eq)
}

// Lt returns an encrypted boolean: a < b (unsigned).
// Blocks are scanned MSB to LSB accumulating "definitely less" and
// "still equal" flags.
func (eval *Evaluator) Lt(a, b *Ciphertext) (*Ciphertext, error) {
	if len(a.blocks) != len(b.blocks) {
		return nil, fmt.Errorf("lt: width mismatch: %d vs %d blocks", len(a.blocks), len(b.blocks))
	}

	var isLess, isEqual *Ciphertext
	for i := len(a.blocks) - 1; i >= 0; i-- {
		blockLt, err := eval.pairLUT(a.blocks[i], b.blocks[i], eval.lutPairLt, func(x, y int) int {
			if x < y {
				return 1
			}
			return 0
		})
		if err != nil {
			return nil, fmt.Errorf("lt: block %d: %w", i, err)
		}
		blockEq, err := eval.pairLUT(a.blocks[i], b.blocks[i], eval.lutPairEq, func(x, y int) int {
			if x == y {
				return 1
			}
			return 0
		})
		if err != nil {
			return nil, fmt.Errorf("lt: block %d: %w", i, err)
		}

		ltBool := &Ciphertext{blocks: []*block{blockLt}}
		eqBool := &Ciphertext{blocks: []*block{blockEq}}

		if isLess == nil {
			isLess = ltBool
			isEqual = eqBool
			continue
		}

		eqAndLt, err := eval.BoolAnd(isEqual, ltBool)
		if err != nil {
			return nil, err
		}
		isLess, err = eval.BoolOr(isLess, eqAndLt)
		if err != nil {
			return nil, err
		}
		isEqual, err = eval.BoolAnd(isEqual, eqBool)
		if err != nil {
			return nil, err
		}
	}
	return isLess, nil
}

// Le returns a <= b.
func (eval *Evaluator) Le(a, b *Ciphertext) (*Ciphertext, error) {
	gt, err := eval.Lt(b, a)
	if err != nil {
		return nil, err
	}
	return eval.BoolNot(gt)
}

// Gt returns a > b.
func (eval *Evaluator) Gt(a, b *Ciphertext) (*Ciphertext, error) {
	return eval.Lt(b, a)
}

// Ge returns a >= b.
func (eval *Evaluator) Ge(a, b *Ciphertext) (*Ciphertext, error) {
	lt, err := eval.Lt(a, b)
	if err != nil {
		return nil, err
	}
	return eval.BoolNot(lt)
}

// Scalar comparison variants against a public right-hand side. The
// operand is widened when the scalar does not fit its radix width.

func (eval *Evaluator) scalarOperands(a *Ciphertext, s uint64) (*Ciphertext, *Ciphertext, error) {
	width := len(a.blocks)
	if w := BlocksForRange(s); w > width {
		width = w
	}
	wide, err := eval.Extend(a, width)
	if err != nil {
		return nil, nil, err
	}
	return wide, NewTrivial(s, width), nil
}

func (eval *Evaluator) EqScalar(a *Ciphertext, s uint64) (*Ciphertext, error) {
	wide, rhs, err := eval.scalarOperands(a, s)
	if err != nil {
		return nil, err
	}
	return eval.Eq(wide, rhs)
}

func (eval *Evaluator) NeScalar(a *Ciphertext, s uint64) (*Ciphertext, error) {
	wide, rhs, err := eval.scalarOperands(a, s)
	if err != nil {
		return nil, err
	}
	return eval.Ne(wide, rhs)
}

func (eval *Evaluator) LtScalar(a *Ciphertext, s uint64) (*Ciphertext, error) {
	wide, rhs, err := eval.scalarOperands(a, s)
	if err != nil {
		return nil, err
	}
	return eval.Lt(wide, rhs)
}

func (eval *Evaluator) LeScalar(a *Ciphertext, s uint64) (*Ciphertext, error) {
	wide, rhs, err := eval.scalarOperands(a, s)
	if err != nil {
		return nil, err
	}
	return eval.Le(wide, rhs)
}

func (eval *Evaluator) GtScalar(a *Ciphertext, s uint64) (*Ciphertext, error) {
	wide, rhs, err := eval.scalarOperands(a, s)
	if err != nil {
		return nil, err
	}
	return eval.Gt(wide, rhs)
}

func (eval *Evaluator) GeScalar(a *Ciphertext, s uint64) (*Ciphertext, error) {
	wide, rhs, err := eval.scalarOperands(a, s)
	if err != nil {
		return nil, err
	}
	return eval.Ge(wide, rhs)
}

// IsZero returns an encrypted boolean: a == 0.
func (eval *Evaluator) IsZero(a *Ciphertext) (*Ciphertext, error) {
	var result *Ciphertext
	for i, b := range a.blocks {
		z, err := eval.singleLUT(b, eval.lutIsZero, func(v int) int {
			if v == 0 {
				return 1
			}
			return 0
		})
		if err != nil {
			return nil, fmt.Errorf("iszero: block %d: %w", i, err)
		}
		zBool := &Ciphertext{blocks: []*block{z}}
		if result == nil {
			result = zBool
		} else {
			result, err = eval.BoolAnd(result, zBool)
			if err != nil {
				return nil, err
			}
		}
	}
	return result, nil
}

// IsNonZero returns an encrypted boolean: a != 0.
func (eval *Evaluator) IsNonZero(a *Ciphertext) (*Ciphertext, error) {
	z, err := eval.IsZero(a)
	if err != nil {
		return nil, err
	}
	return eval.BoolNot(z)
}

// ========== Boolean Operations ==========

func checkBool(name string, cts ...*Ciphertext) error {
	for _, c := range cts {
		if len(c.blocks) != BoolBlocks {
			return fmt.Errorf("%s: operand has %d blocks, want %d", name, len(c.blocks), BoolBlocks)
		}
	}
	return nil
}

// BoolAnd computes the conjunction of two encrypted booleans. A trivial
// operand is public, so it short-circuits without leaking anything.
func (eval *Evaluator) BoolAnd(a, b *Ciphertext) (*Ciphertext, error) {
	if err := checkBool("and", a, b); err != nil {
		return nil, err
	}
	if v, ok := a.trivialValue(); ok {
		if v == 0 {
			return NewTrivialBool(false), nil
		}
		return b.Copy(), nil
	}
	if v, ok := b.trivialValue(); ok {
		if v == 0 {
			return NewTrivialBool(false), nil
		}
		return a.Copy(), nil
	}
	res, err := eval.pairLUT(a.blocks[0], b.blocks[0], eval.lutPairBoolAnd, func(x, y int) int {
		if x != 0 && y != 0 {
			return 1
		}
		return 0
	})
	if err != nil {
		return nil, err
	}
	return &Ciphertext{blocks: []*block{res}}, nil
}

// BoolOr computes the disjunction of two encrypted booleans.
func (eval *Evaluator) BoolOr(a, b *Ciphertext) (*Ciphertext, error) {
	if err := checkBool("or", a, b); err != nil {
		return nil, err
	}
	if v, ok := a.trivialValue(); ok {
		if v != 0 {
			return NewTrivialBool(true), nil
		}
		return b.Copy(), nil
	}
	if v, ok := b.trivialValue(); ok {
		if v != 0 {
			return NewTrivialBool(true), nil
		}
		return a.Copy(), nil
	}
	res, err := eval.pairLUT(a.blocks[0], b.blocks[0], eval.lutPairBoolOr, func(x, y int) int {
		if x != 0 || y != 0 {
			return 1
		}
		return 0
	})
	if err != nil {
		return nil, err
	}
	return &Ciphertext{blocks: []*block{res}}, nil
}

// BoolXor computes the exclusive or of two encrypted booleans.
func (eval *Evaluator) BoolXor(a, b *Ciphertext) (*Ciphertext, error) {
	if err := checkBool("xor", a, b); err != nil {
		return nil, err
	}
	res, err := eval.pairLUT(a.blocks[0], b.blocks[0], eval.lutPairBoolXor, func(x, y int) int {
		if (x != 0) != (y != 0) {
			return 1
		}
		return 0
	})
	if err != nil {
		return nil, err
	}
	return &Ciphertext{blocks: []*block{res}}, nil
}

// BoolNot negates an encrypted boolean.
func (eval *Evaluator) BoolNot(a *Ciphertext) (*Ciphertext, error) {
	if err := checkBool("not", a); err != nil {
		return nil, err
	}
	res, err := eval.singleLUT(a.blocks[0], eval.lutBoolNot, func(v int) int {
		if v == 0 {
			return 1
		}
		return 0
	})
	if err != nil {
		return nil, err
	}
	return &Ciphertext{blocks: []*block{res}}, nil
}

// ========== Selection ==========

func gateFunc(x, cond int) int {
	if cond != 0 {
		return x
	}
	return 0
}

func gateNotFunc(x, cond int) int {
	if cond == 0 {
		return x
	}
	return 0
}

// MulBool gates a value by an encrypted boolean: cond*x. The result has
// x's width.
func (eval *Evaluator) MulBool(cond, x *Ciphertext) (*Ciphertext, error) {
	if err := checkBool("mulbool", cond); err != nil {
		return nil, err
	}
	if v, ok := cond.trivialValue(); ok {
		if v != 0 {
			return x.Copy(), nil
		}
		return NewTrivial(0, len(x.blocks)), nil
	}

	blocks := make([]*block, len(x.blocks))
	for i, b := range x.blocks {
		gated, err := eval.pairLUT(b, cond.blocks[0], eval.lutPairGate, gateFunc)
		if err != nil {
			return nil, fmt.Errorf("mulbool: block %d: %w", i, err)
		}
		blocks[i] = gated
	}
	return &Ciphertext{blocks: blocks}, nil
}

// Select returns a when cond holds, b otherwise. Both branches are always
// computed; only the combination is driven by cond.
func (eval *Evaluator) Select(cond, a, b *Ciphertext) (*Ciphertext, error) {
	if err := checkBool("select", cond); err != nil {
		return nil, err
	}
	if len(a.blocks) != len(b.blocks) {
		return nil, fmt.Errorf("select: width mismatch: %d vs %d blocks", len(a.blocks), len(b.blocks))
	}
	if v, ok := cond.trivialValue(); ok {
		if v != 0 {
			return a.Copy(), nil
		}
		return b.Copy(), nil
	}

	blocks := make([]*block, len(a.blocks))
	for i := range a.blocks {
		kept, err := eval.pairLUT(a.blocks[i], cond.blocks[0], eval.lutPairGate, gateFunc)
		if err != nil {
			return nil, fmt.Errorf("select: block %d: %w", i, err)
		}
		dropped, err := eval.pairLUT(b.blocks[i], cond.blocks[0], eval.lutPairGateNot, gateNotFunc)
		if err != nil {
			return nil, fmt.Errorf("select: block %d: %w", i, err)
		}
		if kept.trivial && dropped.trivial {
			blocks[i] = trivialBlock(kept.value + dropped.value)
			continue
		}
		sum := eval.addCts(liftBlock(eval.params, kept), liftBlock(eval.params, dropped))
		refreshed, err := eval.bootstrap(sum, eval.lutMessage)
		if err != nil {
			return nil, fmt.Errorf("select: block %d: %w", i, err)
		}
		blocks[i] = &block{ct: refreshed}
	}
	return &Ciphertext{blocks: blocks}, nil
}

// ========== Width Management ==========

// Extend widens a ciphertext to numBlocks by appending trivial zero
// blocks. Widening never touches secret data.
func (eval *Evaluator) Extend(a *Ciphertext, numBlocks int) (*Ciphertext, error) {
	if numBlocks < len(a.blocks) {
		return nil, fmt.Errorf("extend: cannot narrow %d blocks to %d", len(a.blocks), numBlocks)
	}
	out := a.Copy()
	for len(out.blocks) < numBlocks {
		out.blocks = append(out.blocks, trivialBlock(0))
	}
	return out, nil
}

// ExtendEqually widens both operands to the larger of the two widths.
func (eval *Evaluator) ExtendEqually(a, b *Ciphertext) (*Ciphertext, *Ciphertext, error) {
	n := len(a.blocks)
	if len(b.blocks) > n {
		n = len(b.blocks)
	}
	ea, err := eval.Extend(a, n)
	if err != nil {
		return nil, nil, err
	}
	eb, err := eval.Extend(b, n)
	if err != nil {
		return nil, nil, err
	}
	return ea, eb, nil
}
