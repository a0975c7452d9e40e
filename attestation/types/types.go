package types

import "bytes"

const ModuleName = "attestation"

// AuthorityTypeSGXLocal tags messages belonging to the SGX-style local
// attestation scheme.
const AuthorityTypeSGXLocal = "SGX Local"

// AttestationDomainSize is the size of a local attestation domain
// parameter.
const AttestationDomainSize = 16

// AssertionDescription identifies an attestation scheme instance: the
// authority type naming the scheme and the opaque domain parameters
// scoping which platform root the scheme's keys hang off. Two parties
// interoperate iff their descriptions match; the match is independent of
// either party's code identity.
type AssertionDescription struct {
	AuthorityType     string `json:"authority_type"`
	AttestationDomain []byte `json:"attestation_domain,omitempty"`
}

func (d AssertionDescription) Equal(other AssertionDescription) bool {
	return d.AuthorityType == other.AuthorityType &&
		bytes.Equal(d.AttestationDomain, other.AttestationDomain)
}

// AssertionOffer advertises "I can generate assertions of this type".
// The payload is authority-specific and opaque to everything but a
// matching verifier.
type AssertionOffer struct {
	Description AssertionDescription `json:"description"`
	Payload     []byte               `json:"payload,omitempty"`
}

// AssertionRequest asks for an assertion verifiable by its sender. The
// payload carries the requester's target-binding descriptor; only the
// requester can later re-derive the key a generator binds to it.
type AssertionRequest struct {
	Description AssertionDescription `json:"description"`
	Payload     []byte               `json:"payload"`
}

// Assertion is the proof itself: the generator's identity descriptor in
// the clear plus an authentication code binding it to the user data and
// requesting target it was generated for.
type Assertion struct {
	Description AssertionDescription `json:"description"`
	Payload     []byte               `json:"payload"`
}

// EnclaveIdentity is the verified identity of a peer, produced only by a
// successful Verify. Identity holds the authority-specific serialized
// identity descriptor extracted from the assertion's authenticated
// payload.
type EnclaveIdentity struct {
	Description AssertionDescription `json:"description"`
	Identity    []byte               `json:"identity"`
}
