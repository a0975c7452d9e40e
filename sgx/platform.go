package sgx

// Platform is the hardware capability an enclave's attestation code runs
// against. Real deployments back it with the CPU's report and key
// derivation instructions; tests back it with the simulator in sgx/sim.
//
// The per-instance secret rooting these operations never crosses this
// interface. Implementations must preserve the asymmetry property:
// CreateReport may address any target, but ReportKey yields only keys
// addressed to the calling enclave's own measurement, so no third party
// can reproduce a key bound to someone else's target.
type Platform interface {
	// SelfIdentity returns the enclave's own measurement descriptor.
	SelfIdentity() CodeIdentity

	// SelfTargetInfo returns the TargetInfo peers must use to address
	// reports to this enclave.
	SelfTargetInfo() TargetInfo

	// CreateReport produces a report over the enclave's own identity and
	// the given report data, authenticated under a key only the target
	// enclave can re-derive.
	CreateReport(target TargetInfo, data ReportData) (*Report, error)

	// ReportKey derives the report key addressed to this enclave for the
	// given key identifier.
	ReportKey(keyID KeyID) (ReportKey, error)
}
