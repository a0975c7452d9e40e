package local

import (
	"crypto/subtle"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"github.com/oasisprotocol/oasis-core/go/common/cbor"

	"github.com/datachainlab/ela-go/attestation/types"
	"github.com/datachainlab/ela-go/sgx"
)

// AssertionVerifier verifies local attestation assertions addressed to
// the enclave it runs in. Requests it creates name itself as target;
// assertions generated for any other target fail verification here.
type AssertionVerifier struct {
	platform sgx.Platform

	mu     sync.RWMutex
	config *Config
	domain []byte
}

// NewAssertionVerifier creates a verifier bound to the given enclave
// platform. Initialize must be called before any protocol operation.
func NewAssertionVerifier(platform sgx.Platform) *AssertionVerifier {
	return &AssertionVerifier{platform: platform}
}

// Initialize installs the authority configuration. Same contract as the
// generator's: idempotent, and a failed call leaves the previous state
// untouched.
func (v *AssertionVerifier) Initialize(config []byte) error {
	parsed, err := ParseConfig(config)
	if err != nil {
		return err
	}
	domain, err := parsed.Domain()
	if err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.config = parsed
	v.domain = domain
	return nil
}

func (v *AssertionVerifier) description() (types.AssertionDescription, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.config == nil {
		return types.AssertionDescription{}, errorsmod.Wrap(types.ErrNotInitialized, "assertion verifier")
	}
	return types.AssertionDescription{
		AuthorityType:     types.AuthorityTypeSGXLocal,
		AttestationDomain: v.domain,
	}, nil
}

func (v *AssertionVerifier) allowDebug() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.config != nil && v.config.AllowDebugEnclaves
}

// CreateAssertionRequest returns a request naming this enclave as the
// assertion's target. The embedded target descriptor is usable for key
// re-derivation by this enclave only.
func (v *AssertionVerifier) CreateAssertionRequest() (*types.AssertionRequest, error) {
	desc, err := v.description()
	if err != nil {
		return nil, err
	}
	payload := requestPayload{TargetInfo: v.platform.SelfTargetInfo()}
	return &types.AssertionRequest{
		Description: desc,
		Payload:     cbor.Marshal(payload),
	}, nil
}

// CanVerify reports whether this verifier can verify assertions
// described by the offer.
func (v *AssertionVerifier) CanVerify(offer *types.AssertionOffer) (bool, error) {
	desc, err := v.description()
	if err != nil {
		return false, err
	}
	if offer == nil {
		return false, errorsmod.Wrap(types.ErrMalformedOffer, "offer is nil")
	}
	return Matches(desc, offer.Description), nil
}

// Verify checks that the assertion was generated over the given user
// data for this exact enclave, and on success extracts the generator's
// authenticated identity. Any mismatch of user data, target, domain, or
// assertion contents fails with ErrAuthenticationFailed; the identity
// result is nil on every failure path.
func (v *AssertionVerifier) Verify(userData []byte, assertion *types.Assertion) (*types.EnclaveIdentity, error) {
	desc, err := v.description()
	if err != nil {
		return nil, err
	}
	if assertion == nil {
		return nil, errorsmod.Wrap(types.ErrAuthenticationFailed, "assertion is nil")
	}
	if !Matches(desc, assertion.Description) {
		return nil, errorsmod.Wrap(types.ErrAuthenticationFailed, "assertion description mismatch")
	}

	var report sgx.Report
	if err := cbor.Unmarshal(assertion.Payload, &report); err != nil {
		return nil, errorsmod.Wrap(types.ErrAuthenticationFailed, "undecodable assertion payload")
	}

	// Re-derive the key the generator must have used to address us. A
	// report bound to any other target yields a different key here and
	// fails the MAC check.
	key, err := v.platform.ReportKey(report.KeyID)
	if err != nil {
		return nil, errorsmod.Wrap(types.ErrAuthenticationFailed, err.Error())
	}
	if !sgx.VerifyReportMAC(key, &report) {
		return nil, errorsmod.Wrap(types.ErrAuthenticationFailed, "report MAC mismatch")
	}
	expected := reportDataFor(userData)
	if subtle.ConstantTimeCompare(expected[:], report.Body.ReportData[:]) != 1 {
		return nil, errorsmod.Wrap(types.ErrAuthenticationFailed, "report data mismatch")
	}

	// The identity bytes are authenticated at this point; a decode
	// failure is an internal-consistency violation of the generator, not
	// a security failure, but still must not yield a usable identity.
	var identity sgx.CodeIdentity
	if err := cbor.Unmarshal(report.Body.Identity, &identity); err != nil {
		return nil, errorsmod.Wrap(types.ErrMalformedIdentity, err.Error())
	}
	if identity.IsDebug() && !v.allowDebug() {
		return nil, errorsmod.Wrap(types.ErrAuthenticationFailed, "debug enclaves are not allowed")
	}

	return &types.EnclaveIdentity{
		Description: desc,
		Identity:    report.Body.Identity,
	}, nil
}

// DecodeCodeIdentity decodes an extracted EnclaveIdentity back into the
// measurement descriptor it carries.
func DecodeCodeIdentity(id *types.EnclaveIdentity) (*sgx.CodeIdentity, error) {
	var identity sgx.CodeIdentity
	if err := cbor.Unmarshal(id.Identity, &identity); err != nil {
		return nil, errorsmod.Wrap(types.ErrMalformedIdentity, err.Error())
	}
	return &identity, nil
}
