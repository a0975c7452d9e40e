// Package local implements the SGX-style local attestation authority: an
// assertion generator and verifier for enclaves sharing a platform,
// backed by target-bound report keys instead of a certificate authority.
package local

import (
	"encoding/hex"

	errorsmod "cosmossdk.io/errors"
	"sigs.k8s.io/yaml"

	"github.com/datachainlab/ela-go/attestation/types"
)

// Config is the authority configuration consumed by Initialize. It is
// carried as an opaque serialized blob (YAML or JSON) so a deployment's
// authority registration plumbing can treat it uniformly with other
// authority types.
type Config struct {
	// AuthorityType names the scheme this config belongs to. Empty
	// defaults to types.AuthorityTypeSGXLocal; anything else is
	// unrecognized here.
	AuthorityType string `json:"authority_type,omitempty"`

	// AttestationDomain is the hex-encoded 16-byte local attestation
	// domain shared by all mutually attestable enclaves on the platform.
	AttestationDomain string `json:"attestation_domain"`

	// AllowDebugEnclaves admits assertions from enclaves launched with
	// the debug attribute. Off by default.
	AllowDebugEnclaves bool `json:"allow_debug_enclaves,omitempty"`
}

// ParseConfig decodes and validates a serialized authority config. A
// failure leaves nothing configured.
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	if err := yaml.UnmarshalStrict(data, &config); err != nil {
		return nil, errorsmod.Wrap(types.ErrInvalidConfig, err.Error())
	}
	if config.AuthorityType != "" && config.AuthorityType != types.AuthorityTypeSGXLocal {
		return nil, errorsmod.Wrapf(types.ErrInvalidConfig, "unrecognized authority type %q", config.AuthorityType)
	}
	if _, err := config.Domain(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Domain returns the decoded attestation domain parameter.
func (c *Config) Domain() ([]byte, error) {
	domain, err := hex.DecodeString(c.AttestationDomain)
	if err != nil {
		return nil, errorsmod.Wrap(types.ErrInvalidConfig, err.Error())
	}
	if len(domain) != types.AttestationDomainSize {
		return nil, errorsmod.Wrapf(types.ErrInvalidConfig,
			"attestation domain must be %d bytes, got %d", types.AttestationDomainSize, len(domain))
	}
	return domain, nil
}

// MarshalConfig serializes a Config into the opaque form Initialize
// accepts.
func MarshalConfig(c *Config) ([]byte, error) {
	return yaml.Marshal(c)
}
