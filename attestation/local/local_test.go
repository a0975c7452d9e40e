package local

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/oasisprotocol/oasis-core/go/common/cbor"
	oasissgx "github.com/oasisprotocol/oasis-core/go/common/sgx"
	"github.com/stretchr/testify/require"

	"github.com/datachainlab/ela-go/attestation/types"
	"github.com/datachainlab/ela-go/sgx"
	"github.com/datachainlab/ela-go/sgx/sim"
)

const testUserData = "User data"

var testConfig = []byte(`attestation_domain: "00112233445566778899aabbccddeeff"`)

type testAuthority struct {
	platform  *sim.Platform
	generator *AssertionGenerator
	verifier  *AssertionVerifier

	generatorEnclave *sim.Enclave
	verifierEnclave  *sim.Enclave
}

// newTestAuthority builds a generator and verifier on one simulated
// platform. With sameEnclave the two run in the same enclave instance;
// otherwise each gets an independently randomized identity.
func newTestAuthority(t *testing.T, seed int64, sameEnclave bool) *testAuthority {
	t.Helper()
	platform, err := sim.NewPlatform(rand.New(rand.NewSource(seed)))
	require.NoError(t, err)

	generatorEnclave, err := platform.NewRandomEnclave()
	require.NoError(t, err)
	verifierEnclave := generatorEnclave
	if !sameEnclave {
		verifierEnclave, err = platform.NewRandomEnclave()
		require.NoError(t, err)
	}

	a := &testAuthority{
		platform:         platform,
		generator:        NewAssertionGenerator(generatorEnclave),
		verifier:         NewAssertionVerifier(verifierEnclave),
		generatorEnclave: generatorEnclave,
		verifierEnclave:  verifierEnclave,
	}
	require.NoError(t, a.generator.Initialize(testConfig))
	require.NoError(t, a.verifier.Initialize(testConfig))
	return a
}

// runRandomizedEnclaves runs fn in the two scenarios of interest: the
// generator and verifier sharing one enclave, and each having an
// independently randomized identity on the same platform.
func runRandomizedEnclaves(t *testing.T, fn func(t *testing.T, sameEnclave bool)) {
	for _, sameEnclave := range []bool{true, false} {
		t.Run(fmt.Sprintf("same_enclave=%t", sameEnclave), func(t *testing.T) {
			fn(t, sameEnclave)
		})
	}
}

func TestCanGenerate(t *testing.T) {
	runRandomizedEnclaves(t, func(t *testing.T, sameEnclave bool) {
		a := newTestAuthority(t, 1, sameEnclave)
		request, err := a.verifier.CreateAssertionRequest()
		require.NoError(t, err)
		ok, err := a.generator.CanGenerate(request)
		require.NoError(t, err)
		require.True(t, ok)
	})
}

func TestCanVerify(t *testing.T) {
	runRandomizedEnclaves(t, func(t *testing.T, sameEnclave bool) {
		a := newTestAuthority(t, 2, sameEnclave)
		offer, err := a.generator.CreateAssertionOffer()
		require.NoError(t, err)
		ok, err := a.verifier.CanVerify(offer)
		require.NoError(t, err)
		require.True(t, ok)
	})
}

func TestVerifyAssertion(t *testing.T) {
	runRandomizedEnclaves(t, func(t *testing.T, sameEnclave bool) {
		a := newTestAuthority(t, 3, sameEnclave)

		request, err := a.verifier.CreateAssertionRequest()
		require.NoError(t, err)
		assertion, err := a.generator.Generate([]byte(testUserData), request)
		require.NoError(t, err)

		identity, err := a.verifier.Verify([]byte(testUserData), assertion)
		require.NoError(t, err)
		require.NotNil(t, identity)

		codeIdentity, err := DecodeCodeIdentity(identity)
		require.NoError(t, err)
		require.True(t, codeIdentity.Equal(a.generatorEnclave.SelfIdentity()),
			"extracted identity must match the generator's own identity")
	})
}

func TestVerifyRejectsDifferentUserData(t *testing.T) {
	runRandomizedEnclaves(t, func(t *testing.T, sameEnclave bool) {
		a := newTestAuthority(t, 4, sameEnclave)

		request, err := a.verifier.CreateAssertionRequest()
		require.NoError(t, err)
		assertion, err := a.generator.Generate([]byte(testUserData), request)
		require.NoError(t, err)

		identity, err := a.verifier.Verify([]byte("Different user data"), assertion)
		require.ErrorIs(t, err, types.ErrAuthenticationFailed)
		require.Nil(t, identity)
	})
}

func TestVerifyRejectsDifferentTarget(t *testing.T) {
	a := newTestAuthority(t, 5, false)

	// A second verifier with its own identity, same authority and domain.
	otherEnclave, err := a.platform.NewRandomEnclave()
	require.NoError(t, err)
	other := NewAssertionVerifier(otherEnclave)
	require.NoError(t, other.Initialize(testConfig))

	request, err := a.verifier.CreateAssertionRequest()
	require.NoError(t, err)
	assertion, err := a.generator.Generate([]byte(testUserData), request)
	require.NoError(t, err)

	// The named target still verifies it; the bystander does not.
	_, err = a.verifier.Verify([]byte(testUserData), assertion)
	require.NoError(t, err)
	identity, err := other.Verify([]byte(testUserData), assertion)
	require.ErrorIs(t, err, types.ErrAuthenticationFailed)
	require.Nil(t, identity)
}

func TestVerifyRejectsTamperedAssertion(t *testing.T) {
	a := newTestAuthority(t, 6, false)

	request, err := a.verifier.CreateAssertionRequest()
	require.NoError(t, err)
	assertion, err := a.generator.Generate([]byte(testUserData), request)
	require.NoError(t, err)

	var report sgx.Report
	require.NoError(t, cbor.Unmarshal(assertion.Payload, &report))
	report.Body.ReportData[0] ^= 0x01
	tampered := &types.Assertion{
		Description: assertion.Description,
		Payload:     cbor.Marshal(&report),
	}

	identity, err := a.verifier.Verify([]byte(testUserData), tampered)
	require.ErrorIs(t, err, types.ErrAuthenticationFailed)
	require.Nil(t, identity)

	// Garbage payloads are an authentication failure, not a panic.
	identity, err = a.verifier.Verify([]byte(testUserData), &types.Assertion{
		Description: assertion.Description,
		Payload:     []byte("garbage"),
	})
	require.ErrorIs(t, err, types.ErrAuthenticationFailed)
	require.Nil(t, identity)
}

func TestCompatibilitySymmetry(t *testing.T) {
	a := newTestAuthority(t, 7, false)

	request, err := a.verifier.CreateAssertionRequest()
	require.NoError(t, err)
	offer, err := a.generator.CreateAssertionOffer()
	require.NoError(t, err)

	canGenerate, err := a.generator.CanGenerate(request)
	require.NoError(t, err)
	canVerify, err := a.verifier.CanVerify(offer)
	require.NoError(t, err)
	require.Equal(t, canGenerate, canVerify)
	require.True(t, canGenerate)

	// Mismatched authority type: both directions refuse.
	foreignOffer := &types.AssertionOffer{Description: types.AssertionDescription{
		AuthorityType:     "SGX Remote",
		AttestationDomain: offer.Description.AttestationDomain,
	}}
	foreignRequest := &types.AssertionRequest{
		Description: foreignOffer.Description,
		Payload:     request.Payload,
	}
	ok, err := a.verifier.CanVerify(foreignOffer)
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = a.generator.CanGenerate(foreignRequest)
	require.NoError(t, err)
	require.False(t, ok)

	// Mismatched domain: incompatible even with matching authority type.
	otherDomain := []byte(`attestation_domain: "ffeeddccbbaa99887766554433221100"`)
	b := newTestAuthority(t, 8, false)
	require.NoError(t, b.verifier.Initialize(otherDomain))
	otherRequest, err := b.verifier.CreateAssertionRequest()
	require.NoError(t, err)
	ok, err = a.generator.CanGenerate(otherRequest)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = a.generator.Generate([]byte(testUserData), otherRequest)
	require.ErrorIs(t, err, types.ErrIncompatibleRequest)
}

func TestMatcherSymmetric(t *testing.T) {
	local := types.AssertionDescription{AuthorityType: types.AuthorityTypeSGXLocal, AttestationDomain: []byte{1, 2}}
	cases := []struct {
		name   string
		remote types.AssertionDescription
		match  bool
	}{
		{"equal", types.AssertionDescription{AuthorityType: types.AuthorityTypeSGXLocal, AttestationDomain: []byte{1, 2}}, true},
		{"different authority", types.AssertionDescription{AuthorityType: "SGX Remote", AttestationDomain: []byte{1, 2}}, false},
		{"different domain", types.AssertionDescription{AuthorityType: types.AuthorityTypeSGXLocal, AttestationDomain: []byte{3, 4}}, false},
		{"empty", types.AssertionDescription{}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.match, Matches(local, c.remote))
			require.Equal(t, Matches(local, c.remote), Matches(c.remote, local))
		})
	}
}

func TestOperationsBeforeInitialize(t *testing.T) {
	platform, err := sim.NewPlatform(rand.New(rand.NewSource(9)))
	require.NoError(t, err)
	enclave, err := platform.NewRandomEnclave()
	require.NoError(t, err)

	generator := NewAssertionGenerator(enclave)
	verifier := NewAssertionVerifier(enclave)

	_, err = generator.CreateAssertionOffer()
	require.ErrorIs(t, err, types.ErrNotInitialized)
	_, err = generator.CanGenerate(&types.AssertionRequest{})
	require.ErrorIs(t, err, types.ErrNotInitialized)
	_, err = generator.Generate([]byte(testUserData), &types.AssertionRequest{})
	require.ErrorIs(t, err, types.ErrNotInitialized)

	_, err = verifier.CreateAssertionRequest()
	require.ErrorIs(t, err, types.ErrNotInitialized)
	_, err = verifier.CanVerify(&types.AssertionOffer{})
	require.ErrorIs(t, err, types.ErrNotInitialized)
	_, err = verifier.Verify([]byte(testUserData), &types.Assertion{})
	require.ErrorIs(t, err, types.ErrNotInitialized)
}

func TestInitializeIdempotent(t *testing.T) {
	a := newTestAuthority(t, 10, true)

	// Re-initializing with valid config succeeds and the pair still
	// interoperates.
	require.NoError(t, a.generator.Initialize(testConfig))
	require.NoError(t, a.verifier.Initialize(testConfig))

	// A failed re-initialization leaves the previous config in place.
	require.ErrorIs(t, a.generator.Initialize([]byte(`attestation_domain: "zz"`)), types.ErrInvalidConfig)

	request, err := a.verifier.CreateAssertionRequest()
	require.NoError(t, err)
	assertion, err := a.generator.Generate([]byte(testUserData), request)
	require.NoError(t, err)
	_, err = a.verifier.Verify([]byte(testUserData), assertion)
	require.NoError(t, err)
}

func TestParseConfig(t *testing.T) {
	cases := []struct {
		name   string
		config string
		valid  bool
	}{
		{"valid", `attestation_domain: "00112233445566778899aabbccddeeff"`, true},
		{"valid json", `{"attestation_domain": "00112233445566778899aabbccddeeff"}`, true},
		{"valid with debug", "attestation_domain: \"00112233445566778899aabbccddeeff\"\nallow_debug_enclaves: true", true},
		{"valid explicit authority", "authority_type: \"SGX Local\"\nattestation_domain: \"00112233445566778899aabbccddeeff\"", true},
		{"unrecognized authority", "authority_type: \"SGX Remote\"\nattestation_domain: \"00112233445566778899aabbccddeeff\"", false},
		{"not hex", `attestation_domain: "not hex at all, really"`, false},
		{"wrong size", `attestation_domain: "0011"`, false},
		{"missing domain", `allow_debug_enclaves: true`, false},
		{"unknown field", `local_attestation_domain: "00112233445566778899aabbccddeeff"`, false},
		{"not yaml", `{{{{`, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			config, err := ParseConfig([]byte(c.config))
			if c.valid {
				require.NoError(t, err)
				require.NotNil(t, config)
			} else {
				require.ErrorIs(t, err, types.ErrInvalidConfig)
			}
		})
	}
}

func TestMalformedRequest(t *testing.T) {
	a := newTestAuthority(t, 11, false)

	desc := types.AssertionDescription{
		AuthorityType:     types.AuthorityTypeSGXLocal,
		AttestationDomain: mustDomain(t),
	}

	_, err := a.generator.CanGenerate(nil)
	require.ErrorIs(t, err, types.ErrMalformedRequest)
	_, err = a.generator.CanGenerate(&types.AssertionRequest{
		Description: desc,
		Payload:     []byte("not cbor"),
	})
	require.ErrorIs(t, err, types.ErrMalformedRequest)

	_, err = a.verifier.CanVerify(nil)
	require.ErrorIs(t, err, types.ErrMalformedOffer)
}

func mustDomain(t *testing.T) []byte {
	t.Helper()
	config, err := ParseConfig(testConfig)
	require.NoError(t, err)
	domain, err := config.Domain()
	require.NoError(t, err)
	return domain
}

func TestVerifyRejectsMalformedIdentity(t *testing.T) {
	a := newTestAuthority(t, 12, false)

	// Hand-craft a correctly authenticated report whose identity bytes
	// do not decode. Only the target itself can mint such a report, so
	// this models a broken generator rather than an attack.
	var keyID sgx.KeyID
	keyID[0] = 0x42
	key, err := a.verifierEnclave.ReportKey(keyID)
	require.NoError(t, err)

	body := sgx.ReportBody{
		Identity:   []byte{0xff}, // not decodable as a CodeIdentity
		ReportData: reportDataFor([]byte(testUserData)),
	}
	report := &sgx.Report{
		Body:  body,
		KeyID: keyID,
		MAC:   sgx.ComputeReportMAC(key, body, keyID),
	}
	assertion := &types.Assertion{
		Description: types.AssertionDescription{
			AuthorityType:     types.AuthorityTypeSGXLocal,
			AttestationDomain: mustDomain(t),
		},
		Payload: cbor.Marshal(report),
	}

	identity, err := a.verifier.Verify([]byte(testUserData), assertion)
	require.ErrorIs(t, err, types.ErrMalformedIdentity)
	require.Nil(t, identity)
}

func TestVerifyDebugEnclaveGating(t *testing.T) {
	platform, err := sim.NewPlatform(rand.New(rand.NewSource(13)))
	require.NoError(t, err)

	debugIdentity, err := sgx.RandomIdentity(rand.New(rand.NewSource(14)))
	require.NoError(t, err)
	debugIdentity.Attributes.Flags |= oasissgx.AttributeDebug

	generatorEnclave := platform.NewEnclave(debugIdentity)
	verifierEnclave, err := platform.NewRandomEnclave()
	require.NoError(t, err)

	generator := NewAssertionGenerator(generatorEnclave)
	verifier := NewAssertionVerifier(verifierEnclave)
	require.NoError(t, generator.Initialize(testConfig))
	require.NoError(t, verifier.Initialize(testConfig))

	request, err := verifier.CreateAssertionRequest()
	require.NoError(t, err)
	assertion, err := generator.Generate([]byte(testUserData), request)
	require.NoError(t, err)

	_, err = verifier.Verify([]byte(testUserData), assertion)
	require.ErrorIs(t, err, types.ErrAuthenticationFailed)

	permissive := []byte("attestation_domain: \"00112233445566778899aabbccddeeff\"\nallow_debug_enclaves: true")
	require.NoError(t, verifier.Initialize(permissive))
	identity, err := verifier.Verify([]byte(testUserData), assertion)
	require.NoError(t, err)
	codeIdentity, err := DecodeCodeIdentity(identity)
	require.NoError(t, err)
	require.True(t, codeIdentity.IsDebug())
}
