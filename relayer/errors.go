package relayer

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ClientInputError reports a malformed or out-of-range request field.
// Expected and Got are set only for chain id mismatches.
type ClientInputError struct {
	Field    string
	Detail   string
	Expected int64
	Got      int64
}

func (e *ClientInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Detail)
}

// AuthorizationError reports that the target contract names a different
// authorized relayer than this service's signing address. Requests
// failing this check are never submitted and never retried.
type AuthorizationError struct {
	Wallet     common.Address
	Relayer    common.Address
	Authorized common.Address
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf(
		"relayer %s is not authorized on wallet %s (contract authorizes %s)",
		e.Relayer.Hex(), e.Wallet.Hex(), e.Authorized.Hex(),
	)
}

// InsufficientFundsError reports that the relayer balance cannot cover
// the worst-case transaction cost. Both amounts are in wei.
type InsufficientFundsError struct {
	Have *big.Int
	Need *big.Int
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf(
		"insufficient relayer funds: have %s wei, need %s wei",
		e.Have.String(), e.Need.String(),
	)
}

// ConfigurationError reports a broken deployment, such as the live node
// disagreeing with the configured chain id. At startup it is fatal; at
// request time it surfaces as a server error.
type ConfigurationError struct {
	Detail string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Detail, e.Err)
	}
	return e.Detail
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// SubmissionKind sub-classifies submission failures for metrics and
// operator diagnosis.
type SubmissionKind string

const (
	// SubmissionRejected marks a transaction the node refused
	// (nonce conflict, revert, underpriced, already known).
	SubmissionRejected SubmissionKind = "rejected"

	// SubmissionConnectivity marks a failure to reach the node at all.
	SubmissionConnectivity SubmissionKind = "connectivity"

	// SubmissionUnknown marks failures matching no known pattern.
	SubmissionUnknown SubmissionKind = "unknown"
)

// SubmissionError reports that the node rejected the transaction or
// could not be reached for submission. Detail carries the most specific
// upstream diagnostic available.
type SubmissionError struct {
	Kind   SubmissionKind
	Detail string
	Err    error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("transaction submission failed: %s", e.Detail)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// IsClientInputError returns true if the error is a client input error.
func IsClientInputError(err error) bool {
	var e *ClientInputError
	return errors.As(err, &e)
}

// IsAuthorizationError returns true if the error is an authorization error.
func IsAuthorizationError(err error) bool {
	var e *AuthorizationError
	return errors.As(err, &e)
}

// IsInsufficientFundsError returns true if the error is an insufficient
// funds error.
func IsInsufficientFundsError(err error) bool {
	var e *InsufficientFundsError
	return errors.As(err, &e)
}

// IsConfigurationError returns true if the error is a configuration error.
func IsConfigurationError(err error) bool {
	var e *ConfigurationError
	return errors.As(err, &e)
}

// IsSubmissionError returns true if the error is a submission error.
func IsSubmissionError(err error) bool {
	var e *SubmissionError
	return errors.As(err, &e)
}
