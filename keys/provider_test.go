package keys

import (
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/digijoe7/mezo-relayer/logging"
)

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe51296170827936ea5cce4b76994b0f"

// testKeyAddress derives the expected address for testKeyHex with the
// crypto package directly, so the tests carry no magic address constant.
func testKeyAddress(t *testing.T) common.Address {
	t.Helper()

	privateKey, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)
	return crypto.PubkeyToAddress(privateKey.PublicKey)
}

func testLogger() logging.Logger {
	return logging.NewLoggerFromConfig(logging.DefaultConfig())
}

func writeKeyFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "relayer-key.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_FromHex(t *testing.T) {
	key, err := Load(testLogger(), testKeyHex, "")
	require.NoError(t, err)
	require.Equal(t, testKeyAddress(t), key.Address())
}

func TestLoad_FromHexWithPrefix(t *testing.T) {
	key, err := Load(testLogger(), "0x"+testKeyHex, "")
	require.NoError(t, err)
	require.Equal(t, testKeyAddress(t), key.Address())
}

func TestLoad_HexWrongLength(t *testing.T) {
	_, err := Load(testLogger(), "abcd", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "expected 64 hex characters")
	require.Contains(t, err.Error(), "got 4")
}

func TestLoad_HexBadCharacter(t *testing.T) {
	bad := "g" + testKeyHex[1:]

	_, err := Load(testLogger(), bad, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), `invalid hex character 'g' at position 0`)
}

func TestLoad_NoSource(t *testing.T) {
	_, err := Load(testLogger(), "", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no relayer key source configured")
}

func TestLoad_FromFile(t *testing.T) {
	path := writeKeyFile(t, "private_key_hex: "+testKeyHex+"\n")

	key, err := Load(testLogger(), "", path)
	require.NoError(t, err)
	require.Equal(t, testKeyAddress(t), key.Address())
}

func TestLoad_FromFileWithAddressPin(t *testing.T) {
	content := "private_key_hex: 0x" + testKeyHex + "\n" +
		"address: " + testKeyAddress(t).Hex() + "\n"
	path := writeKeyFile(t, content)

	key, err := Load(testLogger(), "", path)
	require.NoError(t, err)
	require.Equal(t, testKeyAddress(t), key.Address())
}

func TestLoad_FromFileAddressPinMismatch(t *testing.T) {
	content := "private_key_hex: " + testKeyHex + "\n" +
		"address: 0x1111111111111111111111111111111111111111\n"
	path := writeKeyFile(t, content)

	_, err := Load(testLogger(), "", path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not match derived address")
}

func TestLoad_FileMissing(t *testing.T) {
	_, err := Load(testLogger(), "", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to read file")
}

func TestLoad_FileNotYAML(t *testing.T) {
	path := writeKeyFile(t, "{not yaml: [")

	_, err := Load(testLogger(), "", path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to parse file as YAML")
}

func TestLoad_FileMissingKeyField(t *testing.T) {
	path := writeKeyFile(t, "address: 0x1111111111111111111111111111111111111111\n")

	_, err := Load(testLogger(), "", path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing required field 'private_key_hex'")
}

func TestKeyFile_Validate(t *testing.T) {
	tests := []struct {
		name    string
		keyFile KeyFile
		wantErr string
	}{
		{
			name:    "valid without address",
			keyFile: KeyFile{PrivateKeyHex: testKeyHex},
		},
		{
			name:    "valid with prefix",
			keyFile: KeyFile{PrivateKeyHex: "0x" + testKeyHex},
		},
		{
			name:    "missing key",
			keyFile: KeyFile{},
			wantErr: "missing required field 'private_key_hex'",
		},
		{
			name:    "short key",
			keyFile: KeyFile{PrivateKeyHex: "abc"},
			wantErr: "invalid private_key_hex length",
		},
		{
			name:    "bad address",
			keyFile: KeyFile{PrivateKeyHex: testKeyHex, Address: "nope"},
			wantErr: "is not a hex address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.keyFile.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestKeyFile_ValidateCollectsAllErrors(t *testing.T) {
	keyFile := KeyFile{PrivateKeyHex: "abc", Address: "nope"}

	err := keyFile.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid private_key_hex length")
	require.Contains(t, err.Error(), "is not a hex address")
	require.Equal(t, 2, strings.Count(err.Error(), "\n  - "))
}

func TestRelayerKey_SignTx(t *testing.T) {
	key, err := Load(testLogger(), testKeyHex, "")
	require.NoError(t, err)

	chainID := big.NewInt(31612)
	to := common.HexToAddress("0x1111111111111111111111111111111111111111")
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    7,
		GasPrice: big.NewInt(1000000000),
		Gas:      21000,
		To:       &to,
	})

	signed, err := key.SignTx(chainID, tx)
	require.NoError(t, err)

	// The signature must recover to the relayer address under the
	// same chain's signer.
	sender, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	require.NoError(t, err)
	require.Equal(t, key.Address(), sender)
}
