// Command fhesigner produces ciphertexts, input proofs and decryption proofs
// for local development against a ledger configured with the same key material.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
)

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:   "fhesigner",
		Usage:  "Development signer for the cipherwork ledger",
		Writer: out,
		Commands: []*cli.Command{
			keygenCommand(),
			encryptCommand(),
			decryptCommand(),
			handleCommand(),
			inputProofCommand(),
			decryptionProofCommand(),
		},
	}
}

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
