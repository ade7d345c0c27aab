// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhestring

import "errors"

var (
	// ErrNotReusable is returned, before any homomorphic work, when a
	// reusability-dependent entry point receives a value whose zero
	// cells may not form a contiguous suffix. The caller must compact
	// the value first (MakeReusable) or use a Reusable variant.
	ErrNotReusable = errors.New("fhestring: input is not reusable")

	// ErrNotASCII is returned when constructing a string from a literal
	// containing non-ASCII or NUL bytes.
	ErrNotASCII = errors.New("fhestring: string must be ASCII without NUL bytes")

	// ErrNotEncrypted is returned when an operation requiring an
	// encrypted value receives a clear one.
	ErrNotEncrypted = errors.New("fhestring: value is not encrypted")

	// ErrNotClear is returned when an operation requiring a clear value
	// receives an encrypted one.
	ErrNotClear = errors.New("fhestring: value is not clear")

	// ErrInteriorZero is returned at decryption when a reusable-flagged
	// value turns out to hold zero cells before non-zero ones. This is
	// an invariant violation, not a user error.
	ErrInteriorZero = errors.New("fhestring: reusable value decrypted with interior zero cells")
)
