package wallet

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/digijoe7/mezo-relayer/logging"
)

var (
	testWalletAddr  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testRelayerAddr = common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
)

type mockCaller struct {
	callResult  []byte
	callErr     error
	estimate    uint64
	estimateErr error

	lastCallMsg     ethereum.CallMsg
	lastEstimateMsg ethereum.CallMsg
	callCount       int
	estimateCount   int
}

func (m *mockCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	m.callCount++
	m.lastCallMsg = msg
	return m.callResult, m.callErr
}

func (m *mockCaller) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	m.estimateCount++
	m.lastEstimateMsg = msg
	return m.estimate, m.estimateErr
}

func setupProxyTest(t *testing.T) (*Proxy, *mockCaller) {
	t.Helper()

	logger := logging.NewLoggerFromConfig(logging.DefaultConfig())
	caller := &mockCaller{}
	return NewProxy(logger, caller), caller
}

// packAuthorizedRelayer encodes a return value the way the contract
// would, so the test output goes through the real ABI decoder.
func packAuthorizedRelayer(t *testing.T, addr common.Address) []byte {
	t.Helper()

	out, err := walletABI.Methods["authorizedRelayer"].Outputs.Pack(addr)
	require.NoError(t, err)
	return out
}

func TestRelayMoveCalldata_RoundTrips(t *testing.T) {
	calldata, err := RelayMoveCalldata(7, "hello")
	require.NoError(t, err)

	method := walletABI.Methods["relayMove"]
	// 4-byte selector, then the packed arguments.
	require.Equal(t, method.ID, calldata[:4])

	args, err := method.Inputs.Unpack(calldata[4:])
	require.NoError(t, err)
	require.Len(t, args, 2)
	require.Equal(t, uint8(7), args[0])
	require.Equal(t, "hello", args[1])
}

func TestRelayMoveCalldata_EmptyMemo(t *testing.T) {
	calldata, err := RelayMoveCalldata(0, "")
	require.NoError(t, err)

	args, err := walletABI.Methods["relayMove"].Inputs.Unpack(calldata[4:])
	require.NoError(t, err)
	require.Equal(t, uint8(0), args[0])
	require.Equal(t, "", args[1])
}

func TestRelayMoveCalldata_DiffersByArguments(t *testing.T) {
	a, err := RelayMoveCalldata(1, "x")
	require.NoError(t, err)
	b, err := RelayMoveCalldata(2, "x")
	require.NoError(t, err)
	c, err := RelayMoveCalldata(1, "y")
	require.NoError(t, err)

	require.NotEqual(t, a, b)
	require.NotEqual(t, a, c)
}

func TestAuthorizedRelayer_Supported(t *testing.T) {
	proxy, caller := setupProxyTest(t)
	caller.callResult = packAuthorizedRelayer(t, testRelayerAddr)

	authorized, supported, err := proxy.AuthorizedRelayer(context.Background(), testWalletAddr)
	require.NoError(t, err)
	require.True(t, supported)
	require.Equal(t, testRelayerAddr, authorized)

	// The probe is an eth_call against the wallet with the
	// authorizedRelayer selector.
	require.Equal(t, &testWalletAddr, caller.lastCallMsg.To)
	require.Equal(t, walletABI.Methods["authorizedRelayer"].ID, caller.lastCallMsg.Data[:4])
}

func TestAuthorizedRelayer_RevertMeansUnsupported(t *testing.T) {
	tests := []string{
		"execution reverted",
		"execution reverted: unknown selector",
		"VM Exception while processing transaction: revert",
		"invalid opcode: INVALID",
	}

	for _, msg := range tests {
		t.Run(msg, func(t *testing.T) {
			proxy, caller := setupProxyTest(t)
			caller.callErr = errors.New(msg)

			authorized, supported, err := proxy.AuthorizedRelayer(context.Background(), testWalletAddr)
			require.NoError(t, err)
			require.False(t, supported)
			require.Equal(t, common.Address{}, authorized)
		})
	}
}

func TestAuthorizedRelayer_EmptyDataMeansUnsupported(t *testing.T) {
	proxy, caller := setupProxyTest(t)
	caller.callResult = []byte{}

	_, supported, err := proxy.AuthorizedRelayer(context.Background(), testWalletAddr)
	require.NoError(t, err)
	require.False(t, supported)
}

func TestAuthorizedRelayer_UndecodableDataMeansUnsupported(t *testing.T) {
	proxy, caller := setupProxyTest(t)
	caller.callResult = []byte{0x01, 0x02, 0x03}

	_, supported, err := proxy.AuthorizedRelayer(context.Background(), testWalletAddr)
	require.NoError(t, err)
	require.False(t, supported)
}

func TestAuthorizedRelayer_TransportErrorSurfaces(t *testing.T) {
	proxy, caller := setupProxyTest(t)
	caller.callErr = errors.New("connection refused")

	_, _, err := proxy.AuthorizedRelayer(context.Background(), testWalletAddr)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to call authorizedRelayer")
	require.Contains(t, err.Error(), testWalletAddr.Hex())
}

func TestEstimateRelayMove(t *testing.T) {
	proxy, caller := setupProxyTest(t)
	caller.estimate = 80000

	estimate, err := proxy.EstimateRelayMove(context.Background(), testRelayerAddr, testWalletAddr, 3, "up")
	require.NoError(t, err)
	require.Equal(t, uint64(80000), estimate)

	// The simulation runs from the relayer account against the wallet
	// with the exact relayMove calldata.
	require.Equal(t, testRelayerAddr, caller.lastEstimateMsg.From)
	require.Equal(t, &testWalletAddr, caller.lastEstimateMsg.To)

	expected, err := RelayMoveCalldata(3, "up")
	require.NoError(t, err)
	require.Equal(t, expected, caller.lastEstimateMsg.Data)
}

func TestEstimateRelayMove_ErrorSurfaces(t *testing.T) {
	proxy, caller := setupProxyTest(t)
	caller.estimateErr = errors.New("execution reverted")

	_, err := proxy.EstimateRelayMove(context.Background(), testRelayerAddr, testWalletAddr, 3, "up")
	require.Error(t, err)
}

func TestIsRevertError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "execution reverted", err: errors.New("execution reverted"), want: true},
		{name: "mixed case", err: errors.New("Execution Reverted: nope"), want: true},
		{name: "vm exception", err: errors.New("VM Exception while processing transaction"), want: true},
		{name: "out of gas", err: errors.New("out of gas"), want: true},
		{name: "connection refused", err: errors.New("connection refused"), want: false},
		{name: "timeout", err: errors.New("i/o timeout"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, isRevertError(tt.err))
		})
	}
}
