package main

import (
	"crypto/ecdsa"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/trigg3rX/cipherwork/pkg/cryptography"
	"github.com/trigg3rX/cipherwork/pkg/fhe"
)

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Usage:   "Key material YAML shared with the ledger",
		Value:   "config/fhe.yaml",
		EnvVars: []string{"FHE_CONFIG_PATH"},
	}
}

func keygenCommand() *cli.Command {
	return &cli.Command{
		Name:  "keygen",
		Usage: "Generate a secp256k1 key for a coprocessor, kms node or network key",
		Action: func(c *cli.Context) error {
			key, err := crypto.GenerateKey()
			if err != nil {
				return cli.Exit(fmt.Sprintf("Error generating key: %s", err), 1)
			}
			fmt.Fprintf(c.App.Writer, "private_key: %s\n", hexutil.Encode(crypto.FromECDSA(key)))
			fmt.Fprintf(c.App.Writer, "public_key:  %s\n", hexutil.Encode(crypto.FromECDSAPub(&key.PublicKey)))
			fmt.Fprintf(c.App.Writer, "address:     %s\n", cryptography.AddressOf(key))
			return nil
		},
	}
}

func encryptCommand() *cli.Command {
	return &cli.Command{
		Name:  "encrypt",
		Usage: "Encrypt a uint32 under the network public key",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "network-key", Usage: "Uncompressed network public key (hex)", Required: true},
			&cli.Uint64Flag{Name: "value", Usage: "Value to encrypt", Required: true},
		},
		Action: func(c *cli.Context) error {
			pub, err := hexutil.Decode(c.String("network-key"))
			if err != nil {
				return cli.Exit(fmt.Sprintf("Invalid network key: %s", err), 1)
			}
			value, err := uint32Value(c.Uint64("value"))
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			ciphertext, err := fhe.NewSigner(fhe.Domain{}).EncryptUint32(pub, value)
			if err != nil {
				return cli.Exit(fmt.Sprintf("Error encrypting: %s", err), 1)
			}
			fmt.Fprintln(c.App.Writer, hexutil.Encode(ciphertext))
			return nil
		},
	}
}

func decryptCommand() *cli.Command {
	return &cli.Command{
		Name:  "decrypt",
		Usage: "Decrypt a ciphertext with the network private key, as a kms node would",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "ciphertext", Usage: "Ciphertext (hex)", Required: true},
			&cli.StringFlag{Name: "network-private-key", Usage: "Network private key (hex), prompted when omitted"},
		},
		Action: func(c *cli.Context) error {
			ciphertext, err := hexutil.Decode(c.String("ciphertext"))
			if err != nil || len(ciphertext) < 2 {
				return cli.Exit("Invalid ciphertext", 1)
			}
			if fhe.FheType(ciphertext[0]) != fhe.TypeUint32 {
				return cli.Exit(fmt.Sprintf("Unsupported ciphertext type %d", ciphertext[0]), 1)
			}
			secret, err := secretValue(c, "network-private-key", "Enter network private key: ")
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			plaintext, err := cryptography.DecryptWith(secret, ciphertext[1:])
			if err != nil {
				return cli.Exit(fmt.Sprintf("Error decrypting: %s", err), 1)
			}
			if len(plaintext) != 4 {
				return cli.Exit("Unexpected plaintext length", 1)
			}
			fmt.Fprintln(c.App.Writer, binary.BigEndian.Uint32(plaintext))
			return nil
		},
	}
}

func handleCommand() *cli.Command {
	return &cli.Command{
		Name:  "handle",
		Usage: "Print the handle the ledger will assign to a ciphertext",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{Name: "ciphertext", Usage: "Ciphertext (hex)", Required: true},
			&cli.StringFlag{Name: "owner", Usage: "Requester identity", Required: true},
		},
		Action: func(c *cli.Context) error {
			signer, err := loadSigner(c)
			if err != nil {
				return err
			}
			ciphertext, err := hexutil.Decode(c.String("ciphertext"))
			if err != nil {
				return cli.Exit(fmt.Sprintf("Invalid ciphertext: %s", err), 1)
			}
			fmt.Fprintln(c.App.Writer, signer.Handle(ciphertext, c.String("owner")).Hex())
			return nil
		},
	}
}

func inputProofCommand() *cli.Command {
	return &cli.Command{
		Name:  "input-proof",
		Usage: "Sign a ciphertext as the coprocessor",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{Name: "ciphertext", Usage: "Ciphertext (hex)", Required: true},
			&cli.StringFlag{Name: "owner", Usage: "Requester identity", Required: true},
			&cli.StringFlag{Name: "coprocessor-key", Usage: "Coprocessor private key (hex), prompted when omitted"},
		},
		Action: func(c *cli.Context) error {
			signer, err := loadSigner(c)
			if err != nil {
				return err
			}
			ciphertext, err := hexutil.Decode(c.String("ciphertext"))
			if err != nil {
				return cli.Exit(fmt.Sprintf("Invalid ciphertext: %s", err), 1)
			}
			key, err := privateKey(c, "coprocessor-key", "Enter coprocessor private key: ")
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			proof, err := signer.InputProof(ciphertext, c.String("owner"), key)
			if err != nil {
				return cli.Exit(fmt.Sprintf("Error signing: %s", err), 1)
			}
			fmt.Fprintf(c.App.Writer, "input_proof: %s\n", hexutil.Encode(proof))
			fmt.Fprintf(c.App.Writer, "handle:      %s\n", signer.Handle(ciphertext, c.String("owner")).Hex())
			return nil
		},
	}
}

func decryptionProofCommand() *cli.Command {
	return &cli.Command{
		Name:  "decryption-proof",
		Usage: "Sign the opening of one or more handles with kms keys",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringSliceFlag{Name: "handle", Usage: "Handle (hex), repeat for several", Required: true},
			&cli.Uint64SliceFlag{Name: "value", Usage: "Cleartext per handle, in the same order", Required: true},
			&cli.StringSliceFlag{Name: "kms-key", Usage: "KMS private key (hex), repeat up to the threshold; prompted when omitted"},
			&cli.StringFlag{Name: "extra-data", Usage: "Extra data bound into the signatures (hex)"},
		},
		Action: func(c *cli.Context) error {
			signer, err := loadSigner(c)
			if err != nil {
				return err
			}

			var handles []fhe.Handle
			for _, s := range c.StringSlice("handle") {
				h, err := fhe.ParseHandle(s)
				if err != nil {
					return cli.Exit(fmt.Sprintf("Invalid handle %s: %s", s, err), 1)
				}
				handles = append(handles, h)
			}
			var values []uint32
			for _, v := range c.Uint64Slice("value") {
				value, err := uint32Value(v)
				if err != nil {
					return cli.Exit(err.Error(), 1)
				}
				values = append(values, value)
			}
			var extraData []byte
			if s := c.String("extra-data"); s != "" {
				if extraData, err = hexutil.Decode(s); err != nil {
					return cli.Exit(fmt.Sprintf("Invalid extra data: %s", err), 1)
				}
			}

			keys, err := kmsKeys(c)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			cleartexts, proof, err := signer.DecryptionProof(handles, values, extraData, keys...)
			if err != nil {
				return cli.Exit(fmt.Sprintf("Error signing: %s", err), 1)
			}
			fmt.Fprintf(c.App.Writer, "cleartexts: %s\n", hexutil.Encode(cleartexts))
			fmt.Fprintf(c.App.Writer, "proof:      %s\n", hexutil.Encode(proof))
			return nil
		},
	}
}

func loadSigner(c *cli.Context) (*fhe.Signer, error) {
	km, err := fhe.LoadKeyMaterial(c.String("config"))
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("Error loading key material: %s", err), 1)
	}
	return fhe.NewSigner(km.Domain), nil
}

func kmsKeys(c *cli.Context) ([]*ecdsa.PrivateKey, error) {
	raw := c.StringSlice("kms-key")
	if len(raw) == 0 {
		secret, err := promptSecret("Enter kms private key: ")
		if err != nil {
			return nil, err
		}
		raw = []string{secret}
	}
	keys := make([]*ecdsa.PrivateKey, 0, len(raw))
	for _, s := range raw {
		key, err := cryptography.ParsePrivateKey(s)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func privateKey(c *cli.Context, flag, prompt string) (*ecdsa.PrivateKey, error) {
	secret, err := secretValue(c, flag, prompt)
	if err != nil {
		return nil, err
	}
	return cryptography.ParsePrivateKey(secret)
}

// secretValue returns the flag value, or reads it from the terminal without echo
func secretValue(c *cli.Context, flag, prompt string) (string, error) {
	if v := c.String(flag); v != "" {
		return v, nil
	}
	return promptSecret(prompt)
}

func promptSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no key given and stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("error reading key: %w", err)
	}
	return strings.TrimSpace(string(secret)), nil
}

func uint32Value(v uint64) (uint32, error) {
	if v > 0xffffffff {
		return 0, fmt.Errorf("value %d does not fit in 32 bits", v)
	}
	return uint32(v), nil
}
