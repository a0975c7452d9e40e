package main

import (
	"crypto/rand"
	"fmt"
	"io"
	mathrand "math/rand"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/datachainlab/ela-go/attestation/local"
	"github.com/datachainlab/ela-go/sgx/sim"
)

const (
	flagDomain      = "domain"
	flagSeed        = "seed"
	flagSameEnclave = "same_enclave"
	flagUserData    = "user_data"
)

// demoCmd runs one full local attestation round trip between two
// simulated enclaves on one platform and prints the identity the
// verifier extracted.
func demoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "run a local attestation round trip on a simulated platform",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			defer logger.Sync()

			domain, err := cmd.Flags().GetString(flagDomain)
			if err != nil {
				return err
			}
			seed, err := cmd.Flags().GetInt64(flagSeed)
			if err != nil {
				return err
			}
			sameEnclave, err := cmd.Flags().GetBool(flagSameEnclave)
			if err != nil {
				return err
			}
			userData, err := cmd.Flags().GetString(flagUserData)
			if err != nil {
				return err
			}

			var rng io.Reader = rand.Reader
			if seed != 0 {
				rng = mathrand.New(mathrand.NewSource(seed))
			}
			platform, err := sim.NewPlatform(rng)
			if err != nil {
				return err
			}
			generatorEnclave, err := platform.NewRandomEnclave()
			if err != nil {
				return err
			}
			verifierEnclave := generatorEnclave
			if !sameEnclave {
				if verifierEnclave, err = platform.NewRandomEnclave(); err != nil {
					return err
				}
			}
			logger.Info("launched simulated enclaves",
				zap.Stringer("generator", generatorEnclave.SelfIdentity()),
				zap.Stringer("verifier", verifierEnclave.SelfIdentity()),
			)

			config, err := local.MarshalConfig(&local.Config{AttestationDomain: domain})
			if err != nil {
				return err
			}
			generator := local.NewAssertionGenerator(generatorEnclave)
			verifier := local.NewAssertionVerifier(verifierEnclave)
			if err := generator.Initialize(config); err != nil {
				return err
			}
			if err := verifier.Initialize(config); err != nil {
				return err
			}

			request, err := verifier.CreateAssertionRequest()
			if err != nil {
				return err
			}
			ok, err := generator.CanGenerate(request)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("generator cannot fulfill the verifier's request")
			}
			assertion, err := generator.Generate([]byte(userData), request)
			if err != nil {
				return err
			}
			logger.Info("generated assertion",
				zap.String("authority_type", assertion.Description.AuthorityType),
				zap.Int("payload_size", len(assertion.Payload)),
			)

			identity, err := verifier.Verify([]byte(userData), assertion)
			if err != nil {
				return err
			}
			codeIdentity, err := local.DecodeCodeIdentity(identity)
			if err != nil {
				return err
			}
			logger.Info("verified assertion", zap.Stringer("identity", codeIdentity))
			return nil
		},
	}
	cmd.Flags().String(flagDomain, "00112233445566778899aabbccddeeff", "hex-encoded 16-byte attestation domain")
	cmd.Flags().Int64(flagSeed, 0, "deterministic seed for the simulated platform (0 uses crypto/rand)")
	cmd.Flags().Bool(flagSameEnclave, false, "run generator and verifier in the same enclave")
	cmd.Flags().String(flagUserData, "User data", "user data to bind into the assertion")
	return cmd
}
