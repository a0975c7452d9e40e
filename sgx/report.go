package sgx

import (
	"github.com/oasisprotocol/oasis-core/go/common/sgx"
)

const (
	// ReportDataSize is the size of the user-controlled data field bound
	// into a report.
	ReportDataSize = 64
	// KeyIDSize is the size of the key identifier selecting a report key.
	KeyIDSize = 32
	// ReportKeySize is the size of a derived report key.
	ReportKeySize = 32
	// MACSize is the size of a report authentication code.
	MACSize = 32
)

type (
	ReportData [ReportDataSize]byte
	KeyID      [KeyIDSize]byte
	ReportKey  [ReportKeySize]byte
)

// TargetInfo names the enclave a report must be addressed to. A report
// created against a TargetInfo can only be authenticated by an enclave
// whose own measurement matches it.
type TargetInfo struct {
	MrEnclave  sgx.MrEnclave `json:"mr_enclave"`
	Attributes uint64        `json:"attributes"`
	MiscSelect uint32        `json:"misc_select"`
}

// TargetInfoFor derives the TargetInfo addressing an enclave with the
// given identity.
func TargetInfoFor(id CodeIdentity) TargetInfo {
	return TargetInfo{
		MrEnclave:  id.MrEnclave,
		Attributes: uint64(id.Attributes.Flags),
		MiscSelect: id.MiscSelect,
	}
}

// ReportBody is the authenticated portion of a report. Identity holds the
// reporting enclave's serialized CodeIdentity; it stays opaque here so
// the MAC covers the exact bytes the verifier will later decode.
type ReportBody struct {
	Identity   []byte     `json:"identity"`
	ReportData ReportData `json:"report_data"`
}

// Report is the hardware-authenticated statement "an enclave with Body's
// identity ran on this platform and bound Body's report data". The MAC is
// keyed for a single target enclave, selected by KeyID.
type Report struct {
	Body  ReportBody    `json:"body"`
	KeyID KeyID         `json:"key_id"`
	MAC   [MACSize]byte `json:"mac"`
}
