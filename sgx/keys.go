package sgx

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"io"

	"github.com/oasisprotocol/oasis-core/go/common/cbor"
	"golang.org/x/crypto/hkdf"
)

// reportKeyContext domain-separates report keys from any other key the
// platform root may back.
const reportKeyContext = "ela-go/v1: report key"

// DeriveReportKey derives the report key addressing the given target on
// the platform identified by root. The derivation is deterministic in
// (root, target, keyID) and changes with overwhelming probability when
// any input changes.
//
// The asymmetry of the scheme lives in who may call this with which
// target: the platform hands out report keys only for the calling
// enclave's own measurement (see Platform.ReportKey), so a key addressed
// to target T is reproducible by T alone.
func DeriveReportKey(root []byte, target TargetInfo, keyID KeyID) (ReportKey, error) {
	var key ReportKey
	info := make([]byte, 0, len(reportKeyContext)+len(keyID))
	info = append(info, reportKeyContext...)
	info = append(info, cbor.Marshal(target)...)
	info = append(info, keyID[:]...)
	kdf := hkdf.New(sha256.New, root, nil, info)
	if _, err := io.ReadFull(kdf, key[:]); err != nil {
		return ReportKey{}, fmt.Errorf("report key derivation failed: %w", err)
	}
	return key, nil
}

// ComputeReportMAC computes the authentication code over a report body
// under the given report key.
func ComputeReportMAC(key ReportKey, body ReportBody, keyID KeyID) [MACSize]byte {
	var mac [MACSize]byte
	h := hmac.New(sha256.New, key[:])
	h.Write(cbor.Marshal(body))
	h.Write(keyID[:])
	copy(mac[:], h.Sum(nil))
	return mac
}

// VerifyReportMAC recomputes the report's authentication code under key
// and compares it to the embedded one in constant time.
func VerifyReportMAC(key ReportKey, report *Report) bool {
	mac := ComputeReportMAC(key, report.Body, report.KeyID)
	return subtle.ConstantTimeCompare(mac[:], report.MAC[:]) == 1
}
