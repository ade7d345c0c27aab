// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhestring

import (
	"fmt"

	"github.com/luxfi/lattice/v7/core/rlwe"
)

// Radix blocks carry 2 message bits with 2 carry bits of headroom
// (message space 4, encoding space 16). The carry space is what lets a
// linear sum of a few blocks be evaluated by a single LUT bootstrap
// before any wrap-around occurs.
const (
	blockBits  = 2
	blockSpace = 1 << blockBits
	// carrySpace is the full encoding space, message plus carry bits.
	carrySpace = blockSpace * blockSpace

	// CellBlocks is the number of radix blocks carrying one ASCII cell.
	CellBlocks = 4
	// BoolBlocks is the number of radix blocks carrying an encrypted boolean.
	BoolBlocks = 1
)

// block is a single 2-bit message, either a real LWE ciphertext or a
// trivial (noiseless, publicly known) encoding. Operations between
// trivial blocks are computed directly and stay trivial.
type block struct {
	ct      *rlwe.Ciphertext // nil when trivial
	trivial bool
	value   int // plaintext value when trivial, in [0, blockSpace)
}

func trivialBlock(value int) *block {
	value %= blockSpace
	if value < 0 {
		value += blockSpace
	}
	return &block{trivial: true, value: value}
}

func (b *block) copyBlock() *block {
	if b.trivial {
		return &block{trivial: true, value: b.value}
	}
	return &block{ct: b.ct.CopyNew()}
}

// blockScale returns the encoding scale Q / (2 * carrySpace).
func blockScale(params Parameters) float64 {
	return float64(params.QLWE()) / float64(2*carrySpace)
}

// blockEncryptor encrypts 2-bit blocks under the LWE secret key.
type blockEncryptor struct {
	params    Parameters
	encryptor *rlwe.Encryptor
	scale     float64
}

func newBlockEncryptor(params Parameters, sk *SecretKey) *blockEncryptor {
	return &blockEncryptor{
		params:    params,
		encryptor: rlwe.NewEncryptor(params.paramsLWE, sk.SKLWE),
		scale:     blockScale(params),
	}
}

func (enc *blockEncryptor) encrypt(value int) (*block, error) {
	if value < 0 || value >= blockSpace {
		return nil, fmt.Errorf("block value %d out of range [0, %d)", value, blockSpace)
	}

	pt := rlwe.NewPlaintext(enc.params.paramsLWE, enc.params.paramsLWE.MaxLevel())

	q := enc.params.QLWE()
	encoded := uint64(float64(value) * enc.scale)
	pt.Value.Coeffs[0][0] = encoded % q

	enc.params.paramsLWE.RingQ().NTT(pt.Value, pt.Value)

	ct := rlwe.NewCiphertext(enc.params.paramsLWE, 1, enc.params.paramsLWE.MaxLevel())
	if err := enc.encryptor.Encrypt(pt, ct); err != nil {
		return nil, err
	}

	return &block{ct: ct}, nil
}

// blockDecryptor decrypts 2-bit blocks.
type blockDecryptor struct {
	params    Parameters
	decryptor *rlwe.Decryptor
	scale     float64
}

func newBlockDecryptor(params Parameters, sk *SecretKey) *blockDecryptor {
	return &blockDecryptor{
		params:    params,
		decryptor: rlwe.NewDecryptor(params.paramsLWE, sk.SKLWE),
		scale:     blockScale(params),
	}
}

func (dec *blockDecryptor) decrypt(b *block) int {
	if b.trivial {
		return b.value
	}

	pt := rlwe.NewPlaintext(dec.params.paramsLWE, b.ct.Level())
	dec.decryptor.Decrypt(b.ct, pt)

	ringQ := dec.params.paramsLWE.RingQ()
	if pt.IsNTT {
		ringQ.INTT(pt.Value, pt.Value)
	}

	c := pt.Value.Coeffs[0][0]
	q := dec.params.QLWE()

	scaled := float64(c) * float64(2*carrySpace) / float64(q)
	value := int(scaled+0.5) % carrySpace

	return value % blockSpace
}

// liftBlock materializes a trivial block as a noiseless LWE ciphertext so
// it can enter homomorphic operations alongside real ciphertexts.
func liftBlock(params Parameters, b *block) *rlwe.Ciphertext {
	if !b.trivial {
		return b.ct
	}

	ct := rlwe.NewCiphertext(params.paramsLWE, 1, params.paramsLWE.MaxLevel())

	encoded := uint64(float64(b.value)*blockScale(params)) % params.QLWE()
	// b part carries the message in every NTT coefficient, a part stays zero.
	for i := range ct.Value[0].Coeffs[0] {
		ct.Value[0].Coeffs[0][i] = encoded
	}
	ct.IsNTT = true

	return ct
}
