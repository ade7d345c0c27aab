// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhestring

import (
	"fmt"
	"strings"
)

// FheString is an ASCII string value, either clear or encrypted.
//
// An encrypted FheString is a vector of character cells, one radix
// ciphertext per byte. Zero cells act as padding: they hide the true
// length of the string and are stripped at decryption. Two flags track
// what the server may assume about the cells:
//
//   - padded: the value may contain zero cells. An unpadded value is
//     known to contain none, which lets most algorithms skip the
//     hidden-length machinery entirely.
//   - reusable: all zero cells (if any) form a contiguous suffix. Many
//     algorithms require this layout; values with interior zeros must
//     be compacted with ServerKey.MakeReusable first.
//
// Clear FheStrings carry their bytes directly and exist so that mixed
// clear/encrypted operations can take plaintext fast paths.
type FheString struct {
	clear []byte
	cells []*Ciphertext

	encrypted bool
	padded    bool
	reusable  bool
}

// NewFheString builds a clear FheString. The input must be ASCII and
// must not contain NUL bytes, which are reserved for padding.
func NewFheString(s string) (*FheString, error) {
	for i := 0; i < len(s); i++ {
		if s[i] == 0 || s[i] > 127 {
			return nil, fmt.Errorf("byte %d: %w", i, ErrNotASCII)
		}
	}
	return &FheString{
		clear:    []byte(s),
		reusable: true,
	}, nil
}

// MustNewFheString is NewFheString for string literals known to be
// valid ASCII. It panics on invalid input.
func MustNewFheString(s string) *FheString {
	fs, err := NewFheString(s)
	if err != nil {
		panic(err)
	}
	return fs
}

// FromCells builds an encrypted FheString from character cells. The
// caller asserts the padded and reusable flags; nothing is checked
// homomorphically. The cells are owned by the result, not copied.
func FromCells(cells []*Ciphertext, padded, reusable bool) *FheString {
	return &FheString{
		cells:     cells,
		encrypted: true,
		padded:    padded,
		reusable:  reusable,
	}
}

// EmptyEncrypted returns an encrypted FheString with no cells.
func EmptyEncrypted() *FheString {
	return &FheString{
		encrypted: true,
		reusable:  true,
	}
}

// Len returns the visible length: the number of allocated cells,
// padding included. The logical length of a padded value stays hidden;
// see ServerKey.HiddenLen.
func (s *FheString) Len() int {
	if s.encrypted {
		return len(s.cells)
	}
	return len(s.clear)
}

// IsClear reports whether the value carries plaintext bytes.
func (s *FheString) IsClear() bool { return !s.encrypted }

// IsEncrypted reports whether the value carries encrypted cells.
func (s *FheString) IsEncrypted() bool { return s.encrypted }

// IsPadded reports whether the value may contain zero cells.
func (s *FheString) IsPadded() bool { return s.padded }

// IsReusable reports whether all zero cells are known to form a
// contiguous suffix.
func (s *FheString) IsReusable() bool { return s.reusable }

// Cells returns the character cells of an encrypted value. The slice
// is shared, not copied.
func (s *FheString) Cells() []*Ciphertext { return s.cells }

// Clear returns the plaintext bytes of a clear value.
func (s *FheString) Clear() []byte { return s.clear }

// ClearString returns the plaintext of a clear value as a string.
func (s *FheString) ClearString() string { return string(s.clear) }

// Copy returns a deep copy.
func (s *FheString) Copy() *FheString {
	out := &FheString{
		encrypted: s.encrypted,
		padded:    s.padded,
		reusable:  s.reusable,
	}
	if s.encrypted {
		out.cells = make([]*Ciphertext, len(s.cells))
		for i, c := range s.cells {
			out.cells[i] = c.Copy()
		}
	} else {
		out.clear = append([]byte(nil), s.clear...)
	}
	return out
}

// Encrypt encrypts a clear FheString under the client key, appending
// padding zero cells to hide the true length. The result is reusable;
// it is flagged padded only when padding is requested.
func (s *FheString) Encrypt(enc *Encryptor, padding int) (*FheString, error) {
	if s.encrypted {
		return nil, fmt.Errorf("encrypt: %w", ErrNotClear)
	}
	cells := make([]*Ciphertext, 0, len(s.clear)+padding)
	for i, b := range s.clear {
		c, err := enc.EncryptByte(b)
		if err != nil {
			return nil, fmt.Errorf("encrypt cell %d: %w", i, err)
		}
		cells = append(cells, c)
	}
	for i := 0; i < padding; i++ {
		c, err := enc.EncryptByte(0)
		if err != nil {
			return nil, fmt.Errorf("encrypt padding cell %d: %w", i, err)
		}
		cells = append(cells, c)
	}
	return &FheString{
		cells:     cells,
		encrypted: true,
		padded:    padding > 0,
		reusable:  true,
	}, nil
}

// TrivialEncrypt lifts a clear FheString into trivial (noiseless,
// publicly known) cells so it can enter homomorphic circuits. Flag
// semantics match Encrypt.
func (s *FheString) TrivialEncrypt(padding int) (*FheString, error) {
	if s.encrypted {
		return nil, fmt.Errorf("trivial encrypt: %w", ErrNotClear)
	}
	cells := make([]*Ciphertext, 0, len(s.clear)+padding)
	for _, b := range s.clear {
		cells = append(cells, NewTrivial(uint64(b), CellBlocks))
	}
	for i := 0; i < padding; i++ {
		cells = append(cells, NewTrivial(0, CellBlocks))
	}
	return &FheString{
		cells:     cells,
		encrypted: true,
		padded:    padding > 0,
		reusable:  true,
	}, nil
}

// Decrypt decrypts an encrypted FheString and strips all zero cells.
// When the value is flagged reusable, a zero cell followed by a
// non-zero one is an invariant violation and yields ErrInteriorZero.
func (s *FheString) Decrypt(dec *Decryptor) (string, error) {
	if !s.encrypted {
		return "", fmt.Errorf("decrypt: %w", ErrNotEncrypted)
	}
	raw := make([]byte, len(s.cells))
	for i, c := range s.cells {
		raw[i] = dec.DecryptByte(c)
	}
	// trailing zeros are expected padding
	end := len(raw)
	for end > 0 && raw[end-1] == 0 {
		end--
	}
	trimmed := raw[:end]
	if s.reusable {
		for _, b := range trimmed {
			if b == 0 {
				return "", ErrInteriorZero
			}
		}
		return string(trimmed), nil
	}
	var sb strings.Builder
	for _, b := range trimmed {
		if b != 0 {
			sb.WriteByte(b)
		}
	}
	return sb.String(), nil
}

// SubString returns the cells (or bytes) in [start, end). Nothing is
// known about zeros inside the window, so the result is flagged
// padded regardless of the input.
func (s *FheString) SubString(start, end int) (*FheString, error) {
	if start < 0 || end < start || end > s.Len() {
		return nil, fmt.Errorf("substring [%d:%d): out of range for length %d", start, end, s.Len())
	}
	if !s.encrypted {
		return &FheString{
			clear:    append([]byte(nil), s.clear[start:end]...),
			padded:   true,
			reusable: s.reusable,
		}, nil
	}
	cells := make([]*Ciphertext, end-start)
	for i := range cells {
		cells[i] = s.cells[start+i].Copy()
	}
	return &FheString{
		cells:     cells,
		encrypted: true,
		padded:    true,
		reusable:  s.reusable,
	}, nil
}

// Pad appends n trivial zero cells to an encrypted value in place.
func (s *FheString) Pad(n int) error {
	if !s.encrypted {
		return fmt.Errorf("pad: %w", ErrNotEncrypted)
	}
	for i := 0; i < n; i++ {
		s.cells = append(s.cells, NewTrivial(0, CellBlocks))
	}
	if n > 0 {
		s.padded = true
	}
	return nil
}

// Reverse reverses the cells (or bytes) in place. Reversing a padded
// value moves its padding to the front, so the result is reusable only
// when the input is unpadded.
func (s *FheString) Reverse() {
	for i, j := 0, len(s.clear)-1; i < j; i, j = i+1, j-1 {
		s.clear[i], s.clear[j] = s.clear[j], s.clear[i]
	}
	for i, j := 0, len(s.cells)-1; i < j; i, j = i+1, j-1 {
		s.cells[i], s.cells[j] = s.cells[j], s.cells[i]
	}
	s.reusable = !s.padded
}

// Repeat concatenates the representation n times. A padded input
// leaves its padding inside every copy, so the result of repeating a
// padded value is not reusable; see ServerKey.RepeatReusable for the
// compacting variant.
func (s *FheString) Repeat(n int) *FheString {
	if !s.encrypted {
		out, _ := NewFheString(strings.Repeat(string(s.clear), n))
		return out
	}
	if n == 0 {
		return EmptyEncrypted()
	}
	if n == 1 {
		return s.Copy()
	}
	cells := make([]*Ciphertext, 0, n*len(s.cells))
	for i := 0; i < n; i++ {
		for _, c := range s.cells {
			cells = append(cells, c.Copy())
		}
	}
	return &FheString{
		cells:     cells,
		encrypted: true,
		padded:    s.padded,
		reusable:  !s.padded,
	}
}

// Concat concatenates values, all clear or all encrypted, at the
// representation level. The result is reusable only when every value
// but the last is unpadded and the last is reusable; it is padded when
// any input is.
func Concat(values ...*FheString) (*FheString, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("concat: no values")
	}
	encrypted := values[0].encrypted
	padded := false
	for i, v := range values {
		if v.encrypted != encrypted {
			return nil, fmt.Errorf("concat: value %d mixes clear and encrypted", i)
		}
		padded = padded || v.padded
	}
	reusable := values[len(values)-1].reusable
	for _, v := range values[:len(values)-1] {
		if v.padded {
			reusable = false
		}
	}
	if len(values) == 1 {
		reusable = values[0].reusable
	}

	out := &FheString{
		encrypted: encrypted,
		padded:    padded,
		reusable:  reusable,
	}
	for _, v := range values {
		if encrypted {
			for _, c := range v.cells {
				out.cells = append(out.cells, c.Copy())
			}
		} else {
			out.clear = append(out.clear, v.clear...)
		}
	}
	return out, nil
}
