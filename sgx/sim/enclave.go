package sim

import (
	"github.com/oasisprotocol/oasis-core/go/common/cbor"

	"github.com/datachainlab/ela-go/sgx"
)

// Enclave is one simulated enclave instance on a Platform. It implements
// sgx.Platform: the identity is fixed at launch and the platform's
// sealing root is reachable only through the two key operations, scoped
// to this enclave's own measurement where the hardware would scope them.
type Enclave struct {
	platform *Platform
	identity sgx.CodeIdentity
}

var _ sgx.Platform = (*Enclave)(nil)

func (e *Enclave) SelfIdentity() sgx.CodeIdentity {
	return e.identity
}

func (e *Enclave) SelfTargetInfo() sgx.TargetInfo {
	return sgx.TargetInfoFor(e.identity)
}

// CreateReport implements the EREPORT analogue: the MAC key is derived
// for the named target, not for this enclave.
func (e *Enclave) CreateReport(target sgx.TargetInfo, data sgx.ReportData) (*sgx.Report, error) {
	keyID, err := e.platform.drawKeyID()
	if err != nil {
		return nil, err
	}
	key, err := e.platform.reportKey(target, keyID)
	if err != nil {
		return nil, err
	}
	body := sgx.ReportBody{
		Identity:   cbor.Marshal(e.identity),
		ReportData: data,
	}
	return &sgx.Report{
		Body:  body,
		KeyID: keyID,
		MAC:   sgx.ComputeReportMAC(key, body, keyID),
	}, nil
}

// ReportKey implements the EGETKEY analogue: the derivation is pinned to
// this enclave's own target info, so keys addressed to other enclaves
// are out of reach regardless of the key id presented.
func (e *Enclave) ReportKey(keyID sgx.KeyID) (sgx.ReportKey, error) {
	return e.platform.reportKey(e.SelfTargetInfo(), keyID)
}
