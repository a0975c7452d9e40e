package local

import (
	"sync"

	errorsmod "cosmossdk.io/errors"
	"github.com/oasisprotocol/oasis-core/go/common/cbor"

	"github.com/datachainlab/ela-go/attestation/types"
	"github.com/datachainlab/ela-go/sgx"
)

// AssertionGenerator produces local attestation assertions over the
// identity of the enclave it runs in. It is stateless across protocol
// calls; the only mutable state is the configuration installed by
// Initialize.
type AssertionGenerator struct {
	platform sgx.Platform

	mu     sync.RWMutex
	config *Config
	domain []byte
}

// NewAssertionGenerator creates a generator bound to the given enclave
// platform. Initialize must be called before any protocol operation.
func NewAssertionGenerator(platform sgx.Platform) *AssertionGenerator {
	return &AssertionGenerator{platform: platform}
}

// Initialize installs the authority configuration. It is idempotent:
// repeated calls with valid config reconfigure the generator
// identically; a failed call leaves the previous state untouched.
func (g *AssertionGenerator) Initialize(config []byte) error {
	parsed, err := ParseConfig(config)
	if err != nil {
		return err
	}
	domain, err := parsed.Domain()
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.config = parsed
	g.domain = domain
	return nil
}

func (g *AssertionGenerator) description() (types.AssertionDescription, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.config == nil {
		return types.AssertionDescription{}, errorsmod.Wrap(types.ErrNotInitialized, "assertion generator")
	}
	return types.AssertionDescription{
		AuthorityType:     types.AuthorityTypeSGXLocal,
		AttestationDomain: g.domain,
	}, nil
}

// CreateAssertionOffer returns an offer describing this generator's
// authority and attestation domain. The offer carries no secret
// material.
func (g *AssertionGenerator) CreateAssertionOffer() (*types.AssertionOffer, error) {
	desc, err := g.description()
	if err != nil {
		return nil, err
	}
	return &types.AssertionOffer{Description: desc}, nil
}

// CanGenerate reports whether this generator can fulfill the request.
// Mere incompatibility is not an error; an unparsable request is.
func (g *AssertionGenerator) CanGenerate(req *types.AssertionRequest) (bool, error) {
	desc, err := g.description()
	if err != nil {
		return false, err
	}
	if req == nil {
		return false, errorsmod.Wrap(types.ErrMalformedRequest, "request is nil")
	}
	if !Matches(desc, req.Description) {
		return false, nil
	}
	if _, err := decodeRequestPayload(req.Payload); err != nil {
		return false, errorsmod.Wrap(types.ErrMalformedRequest, err.Error())
	}
	return true, nil
}

// Generate produces an assertion over this enclave's identity and the
// given user data, bound to the requester's target descriptor. The
// resulting assertion verifies only against the exact (user data,
// requesting target) pair it was generated for.
func (g *AssertionGenerator) Generate(userData []byte, req *types.AssertionRequest) (*types.Assertion, error) {
	ok, err := g.CanGenerate(req)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errorsmod.Wrapf(types.ErrIncompatibleRequest,
			"authority type %q", req.Description.AuthorityType)
	}
	payload, err := decodeRequestPayload(req.Payload)
	if err != nil {
		return nil, errorsmod.Wrap(types.ErrMalformedRequest, err.Error())
	}
	report, err := g.platform.CreateReport(payload.TargetInfo, reportDataFor(userData))
	if err != nil {
		return nil, err
	}
	desc, err := g.description()
	if err != nil {
		return nil, err
	}
	return &types.Assertion{
		Description: desc,
		Payload:     cbor.Marshal(report),
	}, nil
}
