package sgx

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/oasisprotocol/oasis-core/go/common/sgx"
)

// CodeIdentity is the attestable measurement descriptor of a single
// enclave instance: what code is running, who signed it, and which
// capabilities it was launched with. It is the only part of an enclave's
// platform identity that is ever revealed to a peer.
type CodeIdentity struct {
	MrEnclave  sgx.MrEnclave  `json:"mr_enclave"`
	MrSigner   sgx.MrSigner   `json:"mr_signer"`
	ISVProdID  uint16         `json:"isv_prod_id"`
	ISVSVN     uint16         `json:"isv_svn"`
	Attributes sgx.Attributes `json:"attributes"`
	MiscSelect uint32         `json:"misc_select"`
}

func (id CodeIdentity) Equal(other CodeIdentity) bool {
	return id.MrEnclave == other.MrEnclave &&
		id.MrSigner == other.MrSigner &&
		id.ISVProdID == other.ISVProdID &&
		id.ISVSVN == other.ISVSVN &&
		id.Attributes == other.Attributes &&
		id.MiscSelect == other.MiscSelect
}

// IsDebug reports whether the enclave was launched with the debug
// attribute set.
func (id CodeIdentity) IsDebug() bool {
	return id.Attributes.Flags&sgx.AttributeDebug != 0
}

func (id CodeIdentity) String() string {
	return fmt.Sprintf("CodeIdentity{mr_enclave: %s, mr_signer: %s, isv_prod_id: %d, isv_svn: %d}",
		id.MrEnclave, id.MrSigner, id.ISVProdID, id.ISVSVN)
}

// RandomIdentity draws a fresh enclave identity from rng. The attribute
// flags are fixed to a production-style launch configuration; only the
// measurement fields are randomized.
func RandomIdentity(rng io.Reader) (CodeIdentity, error) {
	var id CodeIdentity
	if _, err := io.ReadFull(rng, id.MrEnclave[:]); err != nil {
		return CodeIdentity{}, fmt.Errorf("failed to randomize MRENCLAVE: %w", err)
	}
	if _, err := io.ReadFull(rng, id.MrSigner[:]); err != nil {
		return CodeIdentity{}, fmt.Errorf("failed to randomize MRSIGNER: %w", err)
	}
	var buf [4]byte
	if _, err := io.ReadFull(rng, buf[:]); err != nil {
		return CodeIdentity{}, fmt.Errorf("failed to randomize ISV fields: %w", err)
	}
	id.ISVProdID = binary.LittleEndian.Uint16(buf[0:2])
	id.ISVSVN = binary.LittleEndian.Uint16(buf[2:4])
	id.Attributes = sgx.Attributes{
		Flags: sgx.AttributeInit | sgx.AttributeMode64Bit,
		Xfrm:  3,
	}
	return id, nil
}
