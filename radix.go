// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhestring

import (
	"fmt"
)

// Ciphertext is an encrypted unsigned integer in radix decomposition,
// LSB-first. A 4-block ciphertext is a character cell (one ASCII byte),
// a 1-block ciphertext holding 0 or 1 is an encrypted boolean; wider
// ciphertexts carry hidden indices and counts.
type Ciphertext struct {
	blocks []*block
}

// NumBlocks returns the number of radix blocks.
func (c *Ciphertext) NumBlocks() int {
	return len(c.blocks)
}

// NumBits returns the total message width in bits.
func (c *Ciphertext) NumBits() int {
	return len(c.blocks) * blockBits
}

// IsTrivial reports whether every block is a trivial (noiseless, publicly
// known) encoding.
func (c *Ciphertext) IsTrivial() bool {
	for _, b := range c.blocks {
		if !b.trivial {
			return false
		}
	}
	return true
}

// Copy returns a deep copy.
func (c *Ciphertext) Copy() *Ciphertext {
	blocks := make([]*block, len(c.blocks))
	for i, b := range c.blocks {
		blocks[i] = b.copyBlock()
	}
	return &Ciphertext{blocks: blocks}
}

// trivialValue returns the plaintext value when the whole ciphertext is
// trivial.
func (c *Ciphertext) trivialValue() (uint64, bool) {
	var v uint64
	for i, b := range c.blocks {
		if !b.trivial {
			return 0, false
		}
		v |= uint64(b.value) << (i * blockBits)
	}
	return v, true
}

// BlocksForRange returns the number of radix blocks needed to hold values
// in [0, maxValue].
func BlocksForRange(maxValue uint64) int {
	n := 1
	for maxValue >= blockSpace {
		maxValue >>= blockBits
		n++
	}
	return n
}

// NewTrivial encodes a publicly known value as a trivial ciphertext of
// the given width. No secret key material is involved.
func NewTrivial(value uint64, numBlocks int) *Ciphertext {
	blocks := make([]*block, numBlocks)
	for i := 0; i < numBlocks; i++ {
		blocks[i] = trivialBlock(int((value >> (i * blockBits)) & (blockSpace - 1)))
	}
	return &Ciphertext{blocks: blocks}
}

// NewTrivialBool encodes a publicly known boolean.
func NewTrivialBool(value bool) *Ciphertext {
	v := uint64(0)
	if value {
		v = 1
	}
	return NewTrivial(v, BoolBlocks)
}

// Encryptor encrypts integers, booleans and character cells under a
// secret key.
type Encryptor struct {
	params Parameters
	enc    *blockEncryptor
}

// NewEncryptor creates a new encryptor.
func NewEncryptor(params Parameters, sk *SecretKey) *Encryptor {
	return &Encryptor{
		params: params,
		enc:    newBlockEncryptor(params, sk),
	}
}

// EncryptUint64 encrypts a value into the given number of blocks.
func (e *Encryptor) EncryptUint64(value uint64, numBlocks int) (*Ciphertext, error) {
	blocks := make([]*block, numBlocks)
	for i := 0; i < numBlocks; i++ {
		blockValue := int((value >> (i * blockBits)) & (blockSpace - 1))
		b, err := e.enc.encrypt(blockValue)
		if err != nil {
			return nil, fmt.Errorf("encrypting block %d: %w", i, err)
		}
		blocks[i] = b
	}
	return &Ciphertext{blocks: blocks}, nil
}

// EncryptByte encrypts one character cell.
func (e *Encryptor) EncryptByte(value byte) (*Ciphertext, error) {
	return e.EncryptUint64(uint64(value), CellBlocks)
}

// EncryptBool encrypts a boolean.
func (e *Encryptor) EncryptBool(value bool) (*Ciphertext, error) {
	v := uint64(0)
	if value {
		v = 1
	}
	return e.EncryptUint64(v, BoolBlocks)
}

// Decryptor decrypts integers, booleans and character cells.
type Decryptor struct {
	params Parameters
	dec    *blockDecryptor
}

// NewDecryptor creates a new decryptor.
func NewDecryptor(params Parameters, sk *SecretKey) *Decryptor {
	return &Decryptor{
		params: params,
		dec:    newBlockDecryptor(params, sk),
	}
}

// DecryptUint64 decrypts a radix ciphertext of up to 32 blocks.
func (d *Decryptor) DecryptUint64(c *Ciphertext) uint64 {
	var result uint64
	for i, b := range c.blocks {
		result |= uint64(d.dec.decrypt(b)) << (i * blockBits)
	}
	return result
}

// DecryptByte decrypts one character cell.
func (d *Decryptor) DecryptByte(c *Ciphertext) byte {
	return byte(d.DecryptUint64(c))
}

// DecryptBool decrypts an encrypted boolean.
func (d *Decryptor) DecryptBool(c *Ciphertext) bool {
	return d.DecryptUint64(c) != 0
}
