// Package sim provides a deterministic software stand-in for the
// hardware platform behind the sgx.Platform capability. It exists for
// tests and local development; nothing in it is part of the attestation
// protocol's contract.
package sim

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"

	"github.com/datachainlab/ela-go/sgx"
)

// RootSize is the size of the simulated per-platform sealing root.
const RootSize = 32

// Platform simulates one physical platform: a sealing root shared by
// every enclave launched on it, plus the randomness source hardware
// would use for key identifiers. The root plays the role of the shared
// hardware key hierarchy and never leaves this package.
type Platform struct {
	mu   sync.Mutex
	root [RootSize]byte
	rng  io.Reader
}

// NewPlatform creates a platform with a root drawn from rng. A nil rng
// defaults to crypto/rand. Passing a seeded deterministic reader makes
// the whole platform reproducible.
func NewPlatform(rng io.Reader) (*Platform, error) {
	if rng == nil {
		rng = rand.Reader
	}
	var root [RootSize]byte
	if _, err := io.ReadFull(rng, root[:]); err != nil {
		return nil, fmt.Errorf("failed to generate platform root: %w", err)
	}
	return &Platform{root: root, rng: rng}, nil
}

// NewPlatformWithRoot creates a platform with an explicit sealing root.
func NewPlatformWithRoot(root [RootSize]byte, rng io.Reader) *Platform {
	if rng == nil {
		rng = rand.Reader
	}
	return &Platform{root: root, rng: rng}
}

// NewEnclave launches a simulated enclave with an explicit identity.
func (p *Platform) NewEnclave(id sgx.CodeIdentity) *Enclave {
	return &Enclave{platform: p, identity: id}
}

// NewRandomEnclave launches a simulated enclave with a randomized
// identity, the analogue of loading an arbitrary enclave binary.
func (p *Platform) NewRandomEnclave() (*Enclave, error) {
	p.mu.Lock()
	id, err := sgx.RandomIdentity(p.rng)
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return p.NewEnclave(id), nil
}

func (p *Platform) drawKeyID() (sgx.KeyID, error) {
	var keyID sgx.KeyID
	p.mu.Lock()
	_, err := io.ReadFull(p.rng, keyID[:])
	p.mu.Unlock()
	if err != nil {
		return sgx.KeyID{}, fmt.Errorf("failed to generate key id: %w", err)
	}
	return keyID, nil
}

func (p *Platform) reportKey(target sgx.TargetInfo, keyID sgx.KeyID) (sgx.ReportKey, error) {
	return sgx.DeriveReportKey(p.root[:], target, keyID)
}
