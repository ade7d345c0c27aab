// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhestring

// ClientKey bundles the encryptor and decryptor held by the data
// owner. It never travels to the server; the server operates with a
// ServerKey built from the bootstrap key alone.
type ClientKey struct {
	params Parameters
	enc    *Encryptor
	dec    *Decryptor
}

// NewClientKey creates a client key from the secret key.
func NewClientKey(params Parameters, sk *SecretKey) *ClientKey {
	return &ClientKey{
		params: params,
		enc:    NewEncryptor(params, sk),
		dec:    NewDecryptor(params, sk),
	}
}

// Encryptor exposes the underlying radix encryptor.
func (ck *ClientKey) Encryptor() *Encryptor { return ck.enc }

// Decryptor exposes the underlying radix decryptor.
func (ck *ClientKey) Decryptor() *Decryptor { return ck.dec }

// EncryptStr encrypts a plaintext string with the given zero-cell
// padding. Rejects non-ASCII input.
func (ck *ClientKey) EncryptStr(s string, padding int) (*FheString, error) {
	fs, err := NewFheString(s)
	if err != nil {
		return nil, err
	}
	return fs.Encrypt(ck.enc, padding)
}

// DecryptToString decrypts an encrypted FheString, stripping padding.
func (ck *ClientKey) DecryptToString(s *FheString) (string, error) {
	return s.Decrypt(ck.dec)
}

// EncryptUint64 encrypts an integer into the given number of blocks.
func (ck *ClientKey) EncryptUint64(value uint64, numBlocks int) (*Ciphertext, error) {
	return ck.enc.EncryptUint64(value, numBlocks)
}

// EncryptBool encrypts a boolean.
func (ck *ClientKey) EncryptBool(value bool) (*Ciphertext, error) {
	return ck.enc.EncryptBool(value)
}

// DecryptUint64 decrypts an encrypted integer.
func (ck *ClientKey) DecryptUint64(c *Ciphertext) uint64 {
	return ck.dec.DecryptUint64(c)
}

// DecryptBool decrypts an encrypted boolean.
func (ck *ClientKey) DecryptBool(c *Ciphertext) bool {
	return ck.dec.DecryptBool(c)
}
