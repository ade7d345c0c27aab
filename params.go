// Package fhestring implements data-oblivious string algorithms over
// homomorphically encrypted ASCII strings.
//
// A string is a vector of encrypted character cells (one byte per cell)
// carried as TFHE-style radix ciphertexts. Every algorithm evaluates all
// candidate outcomes and combines them through encrypted selection, so no
// branch, loop bound or memory access depends on decrypted content.
//
// The encrypted-integer layer is built on luxfi/lattice primitives:
//   - LWE encryption for 2-bit message blocks
//   - RGSW blind rotations for programmable bootstrapping (LUT evaluation)
//   - radix decomposition for bytes, indices and counts
//
// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause
package fhestring

import (
	"github.com/luxfi/lattice/v7/core/rgsw/blindrot"
	"github.com/luxfi/lattice/v7/core/rlwe"
	"github.com/luxfi/lattice/v7/ring"
	"github.com/luxfi/lattice/v7/utils"
)

// Parameters defines the TFHE parameter set used by the engine.
type Parameters struct {
	// paramsLWE defines parameters for LWE samples (encrypted blocks)
	paramsLWE rlwe.Parameters
	// paramsBR defines parameters for blind rotation (bootstrapping)
	paramsBR rlwe.Parameters
	// evkParams defines evaluation key decomposition
	evkParams rlwe.EvaluationKeyParameters
}

// ParametersLiteral is a user-friendly parameter specification.
type ParametersLiteral struct {
	// LogNLWE is log2 of the LWE dimension (typically 9-10)
	LogNLWE int
	// LogNBR is log2 of the blind rotation dimension (typically 10-11)
	LogNBR int
	// QLWE is the LWE modulus
	QLWE uint64
	// QBR is the blind rotation modulus
	QBR uint64
	// BaseTwoDecomposition for key switching (typically 7-10)
	BaseTwoDecomposition int
}

// Standard parameter sets.
var (
	// PN10QP27 provides ~128-bit security with good performance.
	// Uses the same dimension for LWE and BR to avoid key switching
	// complexity. N=1024, Q=134215681
	PN10QP27 = ParametersLiteral{
		LogNLWE:              10,
		LogNBR:               10,
		QLWE:                 0x7fff801,
		QBR:                  0x7fff801,
		BaseTwoDecomposition: 7,
	}

	// PN11QP54 provides ~128-bit security with higher precision.
	// N=2048, Q=~2^54
	PN11QP54 = ParametersLiteral{
		LogNLWE:              11,
		LogNBR:               11,
		QLWE:                 0x3FFFFFFFFFC0001,
		QBR:                  0x3FFFFFFFFFC0001,
		BaseTwoDecomposition: 10,
	}
)

// NewParametersFromLiteral creates Parameters from a literal specification.
func NewParametersFromLiteral(lit ParametersLiteral) (params Parameters, err error) {
	params.paramsLWE, err = rlwe.NewParametersFromLiteral(rlwe.ParametersLiteral{
		LogN:    lit.LogNLWE,
		Q:       []uint64{lit.QLWE},
		NTTFlag: true,
	})
	if err != nil {
		return
	}

	params.paramsBR, err = rlwe.NewParametersFromLiteral(rlwe.ParametersLiteral{
		LogN:    lit.LogNBR,
		Q:       []uint64{lit.QBR},
		NTTFlag: true,
	})
	if err != nil {
		return
	}

	params.evkParams = rlwe.EvaluationKeyParameters{
		BaseTwoDecomposition: utils.Pointy(lit.BaseTwoDecomposition),
	}

	return
}

// N returns the LWE dimension.
func (p Parameters) N() int {
	return p.paramsLWE.N()
}

// NBR returns the blind rotation dimension.
func (p Parameters) NBR() int {
	return p.paramsBR.N()
}

// QLWE returns the LWE modulus.
func (p Parameters) QLWE() uint64 {
	return p.paramsLWE.Q()[0]
}

// QBR returns the blind rotation modulus.
func (p Parameters) QBR() uint64 {
	return p.paramsBR.Q()[0]
}

// SecretKey contains the LWE and RLWE secret keys.
type SecretKey struct {
	// SKLWE is the LWE secret key for encrypting blocks
	SKLWE *rlwe.SecretKey
	// SKBR is the RLWE secret key for blind rotation results
	SKBR *rlwe.SecretKey
}

// PublicKey contains the LWE public key for encryption, allowing clients
// to encrypt operands without holding the secret key.
type PublicKey struct {
	PKLWE *rlwe.PublicKey
}

// BootstrapKey contains the public material needed for programmable
// bootstrapping: the blind rotation key and the key switching key from
// the BR dimension back to the LWE dimension.
type BootstrapKey struct {
	// BRK is the blind rotation key (RGSW encryptions of LWE secret key bits)
	BRK blindrot.BlindRotationEvaluationKeySet
	// KSK is the key switching key from SKBR to SKLWE
	KSK *rlwe.EvaluationKey

	params Parameters
}

// KeyGenerator generates engine keys.
type KeyGenerator struct {
	params  Parameters
	kgenLWE *rlwe.KeyGenerator
	kgenBR  *rlwe.KeyGenerator
}

// NewKeyGenerator creates a new key generator.
func NewKeyGenerator(params Parameters) *KeyGenerator {
	return &KeyGenerator{
		params:  params,
		kgenLWE: rlwe.NewKeyGenerator(params.paramsLWE),
		kgenBR:  rlwe.NewKeyGenerator(params.paramsBR),
	}
}

// GenSecretKey generates a new secret key pair.
func (kg *KeyGenerator) GenSecretKey() *SecretKey {
	// With equal LWE and BR dimensions a single key serves both roles,
	// which removes the key switch from the bootstrap path.
	if kg.params.N() == kg.params.NBR() {
		sk := kg.kgenBR.GenSecretKeyNew()
		return &SecretKey{
			SKLWE: sk,
			SKBR:  sk,
		}
	}
	return &SecretKey{
		SKLWE: kg.kgenLWE.GenSecretKeyNew(),
		SKBR:  kg.kgenBR.GenSecretKeyNew(),
	}
}

// GenPublicKey generates a public key from a secret key.
func (kg *KeyGenerator) GenPublicKey(sk *SecretKey) *PublicKey {
	return &PublicKey{
		PKLWE: kg.kgenLWE.GenPublicKeyNew(sk.SKLWE),
	}
}

// GenKeyPair generates both a secret key and corresponding public key.
func (kg *KeyGenerator) GenKeyPair() (*SecretKey, *PublicKey) {
	sk := kg.GenSecretKey()
	pk := kg.GenPublicKey(sk)
	return sk, pk
}

// GenBootstrapKey generates the bootstrap key from secret keys.
func (kg *KeyGenerator) GenBootstrapKey(sk *SecretKey) *BootstrapKey {
	brk := blindrot.GenEvaluationKeyNew(kg.params.paramsBR, sk.SKBR, kg.params.paramsLWE, sk.SKLWE, kg.params.evkParams)

	// Key switching key from the extraction key (SKBR coefficients treated
	// as an LWE key) to SKLWE, so bootstrap results land back in the LWE
	// dimension without decryption.
	ksk := kg.kgenBR.GenEvaluationKeyNew(sk.SKBR, kg.createExtendedSKLWE(sk.SKLWE), kg.params.evkParams)

	return &BootstrapKey{
		BRK:    brk,
		KSK:    ksk,
		params: kg.params,
	}
}

// createExtendedSKLWE embeds SKLWE into the BR dimension: SKLWE coefficients
// in the first N_LWE positions, zeros elsewhere.
func (kg *KeyGenerator) createExtendedSKLWE(sklwe *rlwe.SecretKey) *rlwe.SecretKey {
	extendedSK := rlwe.NewSecretKey(kg.params.paramsBR)

	ringQLWE := kg.params.paramsLWE.RingQ()
	ringQBR := kg.params.paramsBR.RingQ()

	sklweCoeffs := ringQLWE.NewPoly()
	sklweCoeffs.CopyLvl(ringQLWE.Level(), sklwe.Value.Q)
	ringQLWE.INTT(sklweCoeffs, sklweCoeffs)

	extCoeffs := ringQBR.NewPoly()
	nLWE := ringQLWE.N()
	for i := 0; i < nLWE; i++ {
		extCoeffs.Coeffs[0][i] = sklweCoeffs.Coeffs[0][i]
	}

	ringQBR.NTT(extCoeffs, extendedSK.Value.Q)
	ringQBR.MForm(extendedSK.Value.Q, extendedSK.Value.Q)

	return extendedSK
}

// lutPoly builds a test polynomial evaluating f over the message space
// encoded with the given scale.
func lutPoly(f func(x float64) float64, scale rlwe.Scale, ringQBR *ring.Ring) ring.Poly {
	return blindrot.InitTestPolynomial(f, scale, ringQBR, -1, 1)
}
