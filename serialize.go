// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhestring

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/luxfi/lattice/v7/core/rlwe"
)

// Binary marshalling for keys, ciphertexts and strings. This is a
// backend concern used by the blob store and the job queue; the wire
// layout is not a public contract.

// ========== Secret Key ==========

// MarshalBinary serializes the secret key.
func (sk *SecretKey) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(sk.SKLWE); err != nil {
		return nil, fmt.Errorf("serialize SKLWE: %w", err)
	}
	if err := enc.Encode(sk.SKBR); err != nil {
		return nil, fmt.Errorf("serialize SKBR: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary deserializes the secret key.
func (sk *SecretKey) UnmarshalBinary(data []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(data))
	var sklwe, skbr rlwe.SecretKey
	if err := dec.Decode(&sklwe); err != nil {
		return fmt.Errorf("deserialize SKLWE: %w", err)
	}
	if err := dec.Decode(&skbr); err != nil {
		return fmt.Errorf("deserialize SKBR: %w", err)
	}
	sk.SKLWE = &sklwe
	sk.SKBR = &skbr
	return nil
}

// ========== Public Key ==========

// MarshalBinary serializes the public key.
func (pk *PublicKey) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(pk.PKLWE); err != nil {
		return nil, fmt.Errorf("serialize PKLWE: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary deserializes the public key.
func (pk *PublicKey) UnmarshalBinary(data []byte) error {
	var pklwe rlwe.PublicKey
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&pklwe); err != nil {
		return fmt.Errorf("deserialize PKLWE: %w", err)
	}
	pk.PKLWE = &pklwe
	return nil
}

// ========== Radix Ciphertext ==========

// radixBlockData is the serializable form of one block. Trivial blocks
// carry only their public value.
type radixBlockData struct {
	Trivial bool
	Value   int
	CT      *rlwe.Ciphertext
}

// MarshalBinary serializes a radix ciphertext.
func (c *Ciphertext) MarshalBinary() ([]byte, error) {
	blocks := make([]radixBlockData, len(c.blocks))
	for i, b := range c.blocks {
		if b.trivial {
			blocks[i] = radixBlockData{Trivial: true, Value: b.value}
		} else {
			blocks[i] = radixBlockData{CT: b.ct}
		}
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(blocks); err != nil {
		return nil, fmt.Errorf("serialize ciphertext: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary deserializes a radix ciphertext.
func (c *Ciphertext) UnmarshalBinary(data []byte) error {
	var blocks []radixBlockData
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&blocks); err != nil {
		return fmt.Errorf("deserialize ciphertext: %w", err)
	}

	c.blocks = make([]*block, len(blocks))
	for i, b := range blocks {
		if b.Trivial {
			c.blocks[i] = trivialBlock(b.Value)
		} else {
			c.blocks[i] = &block{ct: b.CT}
		}
	}
	return nil
}

// ========== FheString ==========

// fheStringHeader is the serialized flag set of a string.
type fheStringHeader struct {
	Encrypted bool
	Padded    bool
	Reusable  bool
	NumCells  uint32
}

// MarshalBinary serializes a string value, clear or encrypted.
func (s *FheString) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	hdr := fheStringHeader{
		Encrypted: s.encrypted,
		Padded:    s.padded,
		Reusable:  s.reusable,
		NumCells:  uint32(s.Len()),
	}
	if err := enc.Encode(hdr); err != nil {
		return nil, fmt.Errorf("serialize header: %w", err)
	}

	if !s.encrypted {
		if err := enc.Encode(s.clear); err != nil {
			return nil, fmt.Errorf("serialize cells: %w", err)
		}
		return buf.Bytes(), nil
	}

	for i, c := range s.cells {
		raw, err := c.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("serialize cell %d: %w", i, err)
		}
		if err := enc.Encode(raw); err != nil {
			return nil, fmt.Errorf("serialize cell %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary deserializes a string value.
func (s *FheString) UnmarshalBinary(data []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(data))

	var hdr fheStringHeader
	if err := dec.Decode(&hdr); err != nil {
		return fmt.Errorf("deserialize header: %w", err)
	}
	s.encrypted = hdr.Encrypted
	s.padded = hdr.Padded
	s.reusable = hdr.Reusable

	if !hdr.Encrypted {
		if err := dec.Decode(&s.clear); err != nil {
			return fmt.Errorf("deserialize cells: %w", err)
		}
		s.cells = nil
		return nil
	}

	s.clear = nil
	s.cells = make([]*Ciphertext, hdr.NumCells)
	for i := range s.cells {
		var raw []byte
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("deserialize cell %d: %w", i, err)
		}
		var c Ciphertext
		if err := c.UnmarshalBinary(raw); err != nil {
			return fmt.Errorf("deserialize cell %d: %w", i, err)
		}
		s.cells[i] = &c
	}
	return nil
}
