package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/digijoe7/mezo-relayer/logging"
	"github.com/digijoe7/mezo-relayer/relayer"
	"github.com/digijoe7/mezo-relayer/testutil"
)

const testChainID = int64(31612)

var (
	testRelayerAddr = common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	testTxHash      = common.HexToHash("0x00000000000000000000000000000000000000000000000000000000000000aa")
)

// stubRelayer satisfies the Relayer interface with canned outcomes.
type stubRelayer struct {
	result     *relayer.RelayResult
	err        error
	panicMsg   string
	balance    *big.Int
	balanceErr error

	relayCalls int
	lastReq    *relayer.RelayRequest
}

func (s *stubRelayer) Relay(ctx context.Context, req *relayer.RelayRequest) (*relayer.RelayResult, error) {
	s.relayCalls++
	s.lastReq = req
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubRelayer) RelayerAddress() common.Address {
	return testRelayerAddr
}

func (s *stubRelayer) ChainID() int64 {
	return testChainID
}

func (s *stubRelayer) RelayerBalance(ctx context.Context) (*big.Int, error) {
	return s.balance, s.balanceErr
}

func setupServerTest(t *testing.T) (*Server, *stubRelayer) {
	t.Helper()

	logger := logging.NewLoggerFromConfig(logging.DefaultConfig())
	stub := &stubRelayer{
		result:  &relayer.RelayResult{TxHash: testTxHash},
		balance: big.NewInt(1000000),
	}
	srv := NewServer(logger, Config{
		ListenAddr:        "127.0.0.1:0",
		CORSAllowedOrigin: "*",
	}, stub)
	return srv, stub
}

func postRelay(t *testing.T, srv *Server, body []byte) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/relay", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp["error"]
}

func TestHandleRelay_Success(t *testing.T) {
	srv, stub := setupServerTest(t)

	w := postRelay(t, srv, testutil.NewRelayRequestBuilder().MustJSON())
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		OK   bool   `json:"ok"`
		Hash string `json:"hash"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.OK)
	require.Equal(t, testTxHash.Hex(), resp.Hash)

	require.Equal(t, 1, stub.relayCalls)
	require.Equal(t, testutil.DefaultTestWallet, stub.lastReq.Wallet)
	require.NotNil(t, stub.lastReq.Cmd)
	require.Equal(t, int64(3), *stub.lastReq.Cmd)
	require.Equal(t, "up", stub.lastReq.Memo)
}

func TestHandleRelay_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{
			name:   "client input error",
			err:    &relayer.ClientInputError{Field: "cmd", Detail: "missing cmd"},
			status: http.StatusBadRequest,
		},
		{
			name: "authorization error",
			err: &relayer.AuthorizationError{
				Wallet:     common.HexToAddress("0x1111111111111111111111111111111111111111"),
				Relayer:    testRelayerAddr,
				Authorized: common.HexToAddress("0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"),
			},
			status: http.StatusForbidden,
		},
		{
			name:   "insufficient funds error",
			err:    &relayer.InsufficientFundsError{Have: big.NewInt(1), Need: big.NewInt(2)},
			status: http.StatusPaymentRequired,
		},
		{
			name:   "configuration error",
			err:    &relayer.ConfigurationError{Detail: "node chain id mismatch"},
			status: http.StatusInternalServerError,
		},
		{
			name:   "submission rejected",
			err:    &relayer.SubmissionError{Kind: relayer.SubmissionRejected, Detail: "nonce too low"},
			status: http.StatusBadGateway,
		},
		{
			name:   "submission connectivity",
			err:    &relayer.SubmissionError{Kind: relayer.SubmissionConnectivity, Detail: "connection refused"},
			status: http.StatusBadGateway,
		},
		{
			name:   "submission unknown",
			err:    &relayer.SubmissionError{Kind: relayer.SubmissionUnknown, Detail: "mystery"},
			status: http.StatusBadGateway,
		},
		{
			name:   "unclassified error",
			err:    errors.New("unexpected"),
			status: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, stub := setupServerTest(t)
			stub.err = tt.err

			w := postRelay(t, srv, testutil.NewRelayRequestBuilder().MustJSON())
			require.Equal(t, tt.status, w.Code)
			require.Equal(t, tt.err.Error(), decodeError(t, w))
		})
	}
}

func TestHandleRelay_InvalidJSON(t *testing.T) {
	srv, stub := setupServerTest(t)

	w := postRelay(t, srv, []byte(`{"wallet": `))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, decodeError(t, w), "invalid JSON body")
	require.Zero(t, stub.relayCalls)
}

func TestHandleRelay_EmptyBody(t *testing.T) {
	srv, stub := setupServerTest(t)

	w := postRelay(t, srv, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Zero(t, stub.relayCalls)
}

func TestHandleRelay_UnknownFieldsTolerated(t *testing.T) {
	srv, stub := setupServerTest(t)

	w := postRelay(t, srv, []byte(
		`{"wallet":"0x1111111111111111111111111111111111111111","cmd":3,"memo":"up","extra":"ignored"}`,
	))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, stub.relayCalls)
}

func TestHandleHealth(t *testing.T) {
	srv, stub := setupServerTest(t)
	stub.balance = big.NewInt(12345)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.OK)
	require.Equal(t, testRelayerAddr.Hex(), resp.Relayer)
	require.Equal(t, testChainID, resp.ChainID)
	require.Equal(t, "12345", resp.Balance)
	require.Empty(t, resp.BalanceError)
}

func TestHandleHealth_BalanceReadFailure(t *testing.T) {
	srv, stub := setupServerTest(t)
	stub.balanceErr = errors.New("connection refused")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	// The probe stays 200: identity is still reportable, the balance
	// failure is carried as a field.
	require.Equal(t, http.StatusOK, w.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.OK)
	require.Equal(t, testRelayerAddr.Hex(), resp.Relayer)
	require.Empty(t, resp.Balance)
	require.Contains(t, resp.BalanceError, "connection refused")
}

func TestStatusForError(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, statusForError(&relayer.ClientInputError{}))
	require.Equal(t, http.StatusForbidden, statusForError(&relayer.AuthorizationError{}))
	require.Equal(t, http.StatusPaymentRequired, statusForError(&relayer.InsufficientFundsError{
		Have: big.NewInt(0), Need: big.NewInt(1),
	}))
	require.Equal(t, http.StatusInternalServerError, statusForError(&relayer.ConfigurationError{}))
	require.Equal(t, http.StatusBadGateway, statusForError(&relayer.SubmissionError{}))
	require.Equal(t, http.StatusInternalServerError, statusForError(errors.New("other")))
}
