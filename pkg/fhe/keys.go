package fhe

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/trigg3rX/cipherwork/pkg/yaml"
)

// KeyMaterial is the public verification material of a coprocessor + KMS deployment.
// It is loaded once at start-up and never generated by this module.
type KeyMaterial struct {
	Domain            Domain   `yaml:"domain"`
	CoprocessorSigner string   `yaml:"coprocessor_signer" validate:"required,eth_address"`
	KMSSigners        []string `yaml:"kms_signers" validate:"min=1,eth_address"`
	Threshold         int      `yaml:"threshold" validate:"min=1"`
}

// LoadKeyMaterial reads and validates key material from a YAML file
func LoadKeyMaterial(path string) (KeyMaterial, error) {
	var km KeyMaterial
	if err := yaml.LoadAndValidate(path, &km); err != nil {
		return km, err
	}
	if err := km.Validate(); err != nil {
		return km, fmt.Errorf("invalid key material %s: %w", path, err)
	}
	return km, nil
}

// Validate checks the invariants the struct tags cannot express
func (km KeyMaterial) Validate() error {
	if err := yaml.NewValidator().ValidateConfig(km); err != nil {
		return err
	}
	if km.Threshold > len(km.KMSSigners) {
		return fmt.Errorf("threshold %d exceeds %d kms signers", km.Threshold, len(km.KMSSigners))
	}
	seen := make(map[common.Address]struct{}, len(km.KMSSigners))
	for _, s := range km.KMSSigners {
		addr := common.HexToAddress(s)
		if _, dup := seen[addr]; dup {
			return fmt.Errorf("duplicate kms signer %s", strings.ToLower(s))
		}
		seen[addr] = struct{}{}
	}
	return nil
}
