// Fake EVM JSON-RPC node for local relayer development.
// Serves the subset of eth_* methods the relayer uses, with configurable
// chain id, balance, gas estimate, and fault injection. Raw transactions
// are decoded and acknowledged with their real hash but never executed.
//
// Usage:
//
//	go run scripts/dev-node/main.go                                # defaults, listens on :8545
//	go run scripts/dev-node/main.go -chain-id 31611 -legacy        # pre-London chain without base fees
//	go run scripts/dev-node/main.go -authorized 0xAbc... -delay 50ms
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/big"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	listenAddr = flag.String("addr", ":8545", "Listen address")
	chainID    = flag.Int64("chain-id", 31612, "Chain id reported by eth_chainId")
	balance    = flag.String("balance", "1000000000000000000", "Relayer balance in wei returned by eth_getBalance")
	estimate   = flag.Uint64("estimate", 80000, "Gas returned by eth_estimateGas")
	authorized = flag.String("authorized", "", "Address returned by authorizedRelayer() calls (empty = wallets report no authorized relayer)")
	legacy     = flag.Bool("legacy", false, "Serve pre-London headers without baseFeePerGas")
	errorRate  = flag.Float64("error-rate", 0.0, "Fraction of requests answered with an injected JSON-RPC error (0.0-1.0)")
	delay      = flag.Duration("delay", 0, "Artificial delay applied to every request")
)

const (
	clientVersion = "mezod/v0.2.0-dev/linux-amd64/go1.22.5"

	baseFeeWei  = 1_000_000_000 // 1 gwei
	tipCapWei   = 1_000_000_000
	gasPriceWei = 1_500_000_000
	blockGas    = 30_000_000

	startHeight   = 1_000_000
	blockInterval = 2 * time.Second
)

// authorizedRelayerSelector is the 4-byte selector of authorizedRelayer().
var authorizedRelayerSelector = crypto.Keccak256([]byte("authorizedRelayer()"))[:4]

type node struct {
	chainID    *big.Int
	balance    *big.Int
	authorized *common.Address
	started    time.Time

	txCount atomic.Uint64
}

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

func main() {
	flag.Parse()

	bal, ok := new(big.Int).SetString(*balance, 10)
	if !ok {
		log.Fatalf("invalid -balance %q: expected a decimal wei amount", *balance)
	}

	n := &node{
		chainID: big.NewInt(*chainID),
		balance: bal,
		started: time.Now(),
	}
	if *authorized != "" {
		if !common.IsHexAddress(*authorized) {
			log.Fatalf("invalid -authorized %q: expected a hex address", *authorized)
		}
		addr := common.HexToAddress(*authorized)
		n.authorized = &addr
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", n.handleJSONRPC)
	mux.HandleFunc("/health", handleHealth)

	server := &http.Server{
		Addr:    *listenAddr,
		Handler: mux,
	}

	log.Printf("dev node listening on %s (chain id %d, balance %s wei)", *listenAddr, *chainID, bal)
	if n.authorized != nil {
		log.Printf("wallets report authorized relayer %s", n.authorized.Hex())
	}
	if *legacy {
		log.Printf("legacy mode: headers served without baseFeePerGas")
	}

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("dev node error: %v", err)
		}
	}()

	<-stop
	log.Println("shutting down dev node...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(ctx)
}

func (n *node) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	if *delay > 0 {
		time.Sleep(*delay)
	}

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResponse(w, rpcResponse{Jsonrpc: "2.0", Error: &rpcError{Code: -32700, Message: "parse error"}})
		return
	}

	if *errorRate > 0 && rand.Float64() < *errorRate {
		log.Printf("injecting error for %s", req.Method)
		writeError(w, req.ID, -32000, "injected error: internal failure")
		return
	}

	result, err := n.dispatch(req)
	if err != nil {
		writeError(w, req.ID, err.Code, err.Message)
		return
	}
	writeResponse(w, rpcResponse{Jsonrpc: "2.0", ID: req.ID, Result: result})
}

func (n *node) dispatch(req rpcRequest) (any, *rpcError) {
	switch req.Method {
	case "eth_chainId":
		return (*hexutil.Big)(n.chainID), nil

	case "web3_clientVersion":
		return clientVersion, nil

	case "net_version":
		return n.chainID.String(), nil

	case "eth_getBalance":
		return (*hexutil.Big)(n.balance), nil

	case "eth_blockNumber":
		return hexutil.Uint64(n.height()), nil

	case "eth_getBlockByNumber":
		return n.header(), nil

	case "eth_gasPrice":
		return (*hexutil.Big)(big.NewInt(gasPriceWei)), nil

	case "eth_maxPriorityFeePerGas":
		return (*hexutil.Big)(big.NewInt(tipCapWei)), nil

	case "eth_estimateGas":
		return hexutil.Uint64(*estimate), nil

	case "eth_call":
		return n.handleCall(req.Params)

	case "eth_getTransactionCount":
		return hexutil.Uint64(n.txCount.Load()), nil

	case "eth_sendRawTransaction":
		return n.handleSendRaw(req.Params)

	default:
		return nil, &rpcError{Code: -32601, Message: fmt.Sprintf("the method %s does not exist/is not available", req.Method)}
	}
}

// height advances over time so clients observe a progressing chain.
func (n *node) height() uint64 {
	return startHeight + uint64(time.Since(n.started)/blockInterval)
}

func (n *node) header() *types.Header {
	head := &types.Header{
		Difficulty: big.NewInt(0),
		Number:     new(big.Int).SetUint64(n.height()),
		GasLimit:   blockGas,
		GasUsed:    blockGas / 2,
		Time:       uint64(time.Now().Unix()),
	}
	if !*legacy {
		head.BaseFee = big.NewInt(baseFeeWei)
	}
	return head
}

func (n *node) handleCall(params []json.RawMessage) (any, *rpcError) {
	if len(params) < 1 {
		return nil, &rpcError{Code: -32602, Message: "missing call object"}
	}

	// Older clients send calldata as "data", newer ones as "input".
	var call struct {
		To    *common.Address `json:"to"`
		Data  hexutil.Bytes   `json:"data"`
		Input hexutil.Bytes   `json:"input"`
	}
	if err := json.Unmarshal(params[0], &call); err != nil {
		return nil, &rpcError{Code: -32602, Message: "invalid call object"}
	}
	data := call.Data
	if len(call.Input) > 0 {
		data = call.Input
	}

	if len(data) >= 4 && string(data[:4]) == string(authorizedRelayerSelector) {
		if n.authorized == nil {
			return hexutil.Bytes{}, nil
		}
		return hexutil.Bytes(common.LeftPadBytes(n.authorized.Bytes(), 32)), nil
	}

	// Unknown contract call: empty return data, like a call to an address
	// with no code.
	return hexutil.Bytes{}, nil
}

func (n *node) handleSendRaw(params []json.RawMessage) (any, *rpcError) {
	if len(params) < 1 {
		return nil, &rpcError{Code: -32602, Message: "missing transaction"}
	}

	var raw hexutil.Bytes
	if err := json.Unmarshal(params[0], &raw); err != nil {
		return nil, &rpcError{Code: -32602, Message: "invalid transaction encoding"}
	}

	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return nil, &rpcError{Code: -32000, Message: fmt.Sprintf("transaction decode failed: %v", err)}
	}

	n.txCount.Add(1)
	to := "contract creation"
	if tx.To() != nil {
		to = tx.To().Hex()
	}
	log.Printf("accepted tx %s type=%d nonce=%d gas=%d to=%s", tx.Hash().Hex(), tx.Type(), tx.Nonce(), tx.Gas(), to)

	return tx.Hash(), nil
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "healthy",
		"service": "mezo-dev-node",
	})
}

func writeError(w http.ResponseWriter, id json.RawMessage, code int, msg string) {
	writeResponse(w, rpcResponse{Jsonrpc: "2.0", ID: id, Error: &rpcError{Code: code, Message: msg}})
}

func writeResponse(w http.ResponseWriter, resp rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}
