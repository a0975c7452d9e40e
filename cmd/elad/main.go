package main

import (
	"log"

	"github.com/spf13/cobra"
)

func main() {
	cmd := &cobra.Command{
		Use:   "elad",
		Short: "enclave local attestation demo tooling",
	}
	cmd.AddCommand(demoCmd())
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
