// Package keys loads the relayer's single signing credential.
//
// The key comes from one of two sources, resolved once at startup: a
// hex-encoded private key passed directly through the environment, or a
// YAML key file on disk. The derived address is the relayer identity every
// other component reports and compares against; it never changes while the
// process runs.
package keys

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"gopkg.in/yaml.v3"

	"github.com/digijoe7/mezo-relayer/logging"
)

// RelayerKey is the process-wide signing identity. Immutable after Load.
type RelayerKey struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// Address returns the address derived from the signing key.
func (k *RelayerKey) Address() common.Address {
	return k.address
}

// SignTx signs a transaction for the given chain using the relayer key.
func (k *RelayerKey) SignTx(chainID *big.Int, tx *types.Transaction) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), k.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return signed, nil
}

// KeyFile is the structure of a relayer key file.
//
// Schema:
//
//	private_key_hex: "0x..."   # hex-encoded secp256k1 private key (64 hex chars)
//	address: "0x..."           # optional; cross-checked against the derived address
type KeyFile struct {
	// PrivateKeyHex is the hex-encoded secp256k1 private key.
	// Can be prefixed with "0x" or not. Must be 64 hex characters (32 bytes).
	PrivateKeyHex string `yaml:"private_key_hex"`

	// Address optionally pins the expected relayer address. Loading fails if
	// it does not match the address derived from the key.
	Address string `yaml:"address,omitempty"`
}

// Validate validates the key file structure and returns detailed errors.
func (f *KeyFile) Validate() error {
	var errs []string

	if f.PrivateKeyHex == "" {
		errs = append(errs, "missing required field 'private_key_hex'")
	} else if err := validateKeyHex(f.PrivateKeyHex); err != nil {
		errs = append(errs, err.Error())
	}

	if f.Address != "" && !common.IsHexAddress(f.Address) {
		errs = append(errs, fmt.Sprintf("invalid address: %q is not a hex address", f.Address))
	}

	if len(errs) > 0 {
		return fmt.Errorf("key file validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// validateKeyHex checks the raw key material before handing it to the
// crypto package, so operators get a precise diagnostic.
func validateKeyHex(hexKey string) error {
	cleaned := strings.TrimSpace(strings.TrimPrefix(hexKey, "0x"))

	if len(cleaned) != 64 {
		return fmt.Errorf("invalid private_key_hex length: expected 64 hex characters (32 bytes), got %d", len(cleaned))
	}

	for i, c := range cleaned {
		isDigit := c >= '0' && c <= '9'
		isLowerHex := c >= 'a' && c <= 'f'
		isUpperHex := c >= 'A' && c <= 'F'
		if !isDigit && !isLowerHex && !isUpperHex {
			return fmt.Errorf("invalid hex character %q at position %d in private_key_hex", c, i)
		}
	}

	return nil
}

// Load resolves the relayer key from the configured source. Exactly one of
// privateKeyHex and keyFilePath must be set; config validation enforces that
// before Load runs.
func Load(logger logging.Logger, privateKeyHex, keyFilePath string) (*RelayerKey, error) {
	log := logging.ForComponent(logger, logging.ComponentKeyProvider)

	switch {
	case privateKeyHex != "":
		key, err := loadFromHex(privateKeyHex)
		if err != nil {
			keyLoadErrors.WithLabelValues(sourceEnv).Inc()
			return nil, fmt.Errorf("failed to load relayer key from environment: %w", err)
		}
		log.Info().Str(logging.FieldRelayer, key.address.Hex()).Msg("loaded relayer key from environment")
		return key, nil

	case keyFilePath != "":
		key, err := loadFromFile(keyFilePath)
		if err != nil {
			keyLoadErrors.WithLabelValues(sourceFile).Inc()
			return nil, fmt.Errorf("failed to load relayer key from %s: %w", keyFilePath, err)
		}
		log.Info().
			Str(logging.FieldRelayer, key.address.Hex()).
			Str("file", keyFilePath).
			Msg("loaded relayer key from file")
		return key, nil

	default:
		keyLoadErrors.WithLabelValues(sourceNone).Inc()
		return nil, fmt.Errorf("no relayer key source configured")
	}
}

// loadFromHex parses a hex private key into a RelayerKey.
func loadFromHex(hexKey string) (*RelayerKey, error) {
	if err := validateKeyHex(hexKey); err != nil {
		return nil, err
	}

	cleaned := strings.TrimSpace(strings.TrimPrefix(hexKey, "0x"))
	privateKey, err := crypto.HexToECDSA(cleaned)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &RelayerKey{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
	}, nil
}

// loadFromFile reads and validates a YAML key file.
func loadFromFile(path string) (*RelayerKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var keyFile KeyFile
	if unmarshalErr := yaml.Unmarshal(data, &keyFile); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse file as YAML: %w", unmarshalErr)
	}

	if err := keyFile.Validate(); err != nil {
		return nil, err
	}

	key, err := loadFromHex(keyFile.PrivateKeyHex)
	if err != nil {
		return nil, err
	}

	if keyFile.Address != "" {
		pinned := common.HexToAddress(keyFile.Address)
		if pinned != key.address {
			return nil, fmt.Errorf("key file address %s does not match derived address %s", pinned.Hex(), key.address.Hex())
		}
	}

	return key, nil
}
