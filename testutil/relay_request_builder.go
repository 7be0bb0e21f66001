package testutil

import (
	"encoding/json"
	"fmt"

	"github.com/digijoe7/mezo-relayer/relayer"
)

// DefaultTestWallet is a syntactically valid wallet address used as the
// builder default.
const DefaultTestWallet = "0x1111111111111111111111111111111111111111"

// RelayRequestBuilder provides a fluent API for building relay requests
// in tests. Defaults form a valid request (wallet set, cmd 3, memo
// "up") so tests only override the field under test.
//
// Usage:
//
//	req := testutil.NewRelayRequestBuilder().
//	    WithCmd(300).
//	    Build()
type RelayRequestBuilder struct {
	wallet  string
	cmd     *int64
	memo    string
	chainID *int64
}

// NewRelayRequestBuilder creates a builder preloaded with a valid
// request.
func NewRelayRequestBuilder() *RelayRequestBuilder {
	cmd := int64(3)
	return &RelayRequestBuilder{
		wallet: DefaultTestWallet,
		cmd:    &cmd,
		memo:   "up",
	}
}

// WithWallet sets the target wallet address.
func (b *RelayRequestBuilder) WithWallet(wallet string) *RelayRequestBuilder {
	b.wallet = wallet
	return b
}

// WithCmd sets the command value.
func (b *RelayRequestBuilder) WithCmd(cmd int64) *RelayRequestBuilder {
	b.cmd = &cmd
	return b
}

// WithoutCmd clears the command field.
func (b *RelayRequestBuilder) WithoutCmd() *RelayRequestBuilder {
	b.cmd = nil
	return b
}

// WithMemo sets the memo.
func (b *RelayRequestBuilder) WithMemo(memo string) *RelayRequestBuilder {
	b.memo = memo
	return b
}

// WithChainID sets the client-declared chain id.
func (b *RelayRequestBuilder) WithChainID(chainID int64) *RelayRequestBuilder {
	b.chainID = &chainID
	return b
}

// Build creates the relay request.
func (b *RelayRequestBuilder) Build() *relayer.RelayRequest {
	return &relayer.RelayRequest{
		Wallet:  b.wallet,
		Cmd:     b.cmd,
		Memo:    b.memo,
		ChainID: b.chainID,
	}
}

// MustJSON encodes the built request as an HTTP body.
func (b *RelayRequestBuilder) MustJSON() []byte {
	body, err := json.Marshal(b.Build())
	if err != nil {
		panic(fmt.Sprintf("failed to marshal relay request: %v", err))
	}
	return body
}
