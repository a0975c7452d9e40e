package local

import (
	"github.com/datachainlab/ela-go/attestation/types"
)

// Matches decides whether two attestation scheme instances interoperate:
// equal authority types and equal domain parameters. The relation is
// symmetric and deliberately independent of either party's code
// identity, so differently measured enclaves on one platform still
// interoperate.
func Matches(local, remote types.AssertionDescription) bool {
	return local.Equal(remote)
}
