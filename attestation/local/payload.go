package local

import (
	"crypto/sha256"

	"github.com/oasisprotocol/oasis-core/go/common/cbor"

	"github.com/datachainlab/ela-go/sgx"
)

// requestPayload is the authority-specific body of a local attestation
// AssertionRequest: the requester's target-binding descriptor.
type requestPayload struct {
	TargetInfo sgx.TargetInfo `json:"target_info"`
}

func decodeRequestPayload(data []byte) (*requestPayload, error) {
	var payload requestPayload
	if err := cbor.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// reportDataFor binds user data into a report: the report data field is
// the SHA-256 digest of the user data, zero padded.
func reportDataFor(userData []byte) sgx.ReportData {
	var data sgx.ReportData
	digest := sha256.Sum256(userData)
	copy(data[:], digest[:])
	return data
}
