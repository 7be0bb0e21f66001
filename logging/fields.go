// Package logging provides centralized logging utilities for the relayer.
// It defines standardized field names and helper functions to ensure
// consistent structured logging across all components.
package logging

// Standard field name constants for structured logging.
// Using constants ensures consistency and prevents typos across the codebase.
const (
	// Component identification
	FieldComponent = "component"

	// Relay fields
	FieldWallet = "wallet"
	FieldCmd    = "cmd"
	FieldMemo   = "memo"
	FieldStage  = "stage"

	// Chain fields
	FieldChainID = "chain_id"
	FieldRelayer = "relayer"
	FieldTxHash  = "tx_hash"
	FieldNonce   = "nonce"

	// Fee/gas fields
	FieldGasLimit    = "gas_limit"
	FieldGasEstimate = "gas_estimate"
	FieldFeeStrategy = "fee_strategy"
	FieldGasFeeCap   = "gas_fee_cap"
	FieldGasTipCap   = "gas_tip_cap"
	FieldGasPrice    = "gas_price"
	FieldBalanceWei  = "balance_wei"
	FieldWorstCase   = "worst_case_wei"

	// Network/connection fields
	FieldAddr       = "addr"
	FieldListenAddr = "listen_addr"
	FieldRemoteAddr = "remote_addr"
	FieldEndpoint   = "endpoint"

	// Operation fields
	FieldOperation = "operation"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldResult    = "result"
	FieldReason    = "reason"

	// Query fields
	FieldQueryType = "query_type"

	// Timing fields
	FieldDuration = "duration"

	// Error fields
	FieldErrorType = "error_type"
)

// Component name constants for the "component" field.
// These identify the source of log messages.
const (
	ComponentRelayPipeline  = "relay_pipeline"
	ComponentBalanceMonitor = "balance_monitor"
	ComponentHTTPServer     = "http_server"
	ComponentEthClient      = "eth_client"
	ComponentChainQuery     = "chain_query"
	ComponentWalletProxy    = "wallet_proxy"
	ComponentTxSender       = "tx_sender"
	ComponentKeyProvider    = "key_provider"
	ComponentObservability  = "observability_server"
	ComponentRuntimeMetrics = "runtime_metrics_collector"
)

// Operation result constants for the "result" field.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
)
