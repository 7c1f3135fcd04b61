package apperror

// Code represents a unique error code for the application.
type Code string

// General error codes.
const (
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeInvalidState       Code = "INVALID_STATE"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConfigurationError Code = "CONFIGURATION_ERROR"
	CodeInternalError      Code = "INTERNAL_ERROR"
	CodeUnknownError       Code = "UNKNOWN_ERROR"
)

// Chain and RPC error codes.
const (
	CodeRPCConnectionFailed Code = "RPC_CONNECTION_FAILED"
	CodeRPCCallFailed       Code = "RPC_CALL_FAILED"
	CodeSubscribeFailed     Code = "SUBSCRIBE_FAILED"
	CodeBlockNotFound       Code = "BLOCK_NOT_FOUND"
	CodeGasEstimationFailed Code = "GAS_ESTIMATION_FAILED"
	CodeRateLimitExceeded   Code = "RATE_LIMIT_EXCEEDED"
	CodeCircuitOpen         Code = "CIRCUIT_OPEN"
)

// Pool data error codes.
const (
	CodePoolFetchFailed  Code = "POOL_FETCH_FAILED"
	CodePoolDegenerate   Code = "POOL_DEGENERATE"
	CodeSwapEncodeFailed Code = "SWAP_ENCODE_FAILED"
	CodePriceFetchFailed Code = "PRICE_FETCH_FAILED"
)

// Opportunity lifecycle error codes.
const (
	CodeInvalidTransition Code = "INVALID_TRANSITION"
)

// Sensor error codes.
const (
	CodeSensorReadFailed Code = "SENSOR_READ_FAILED"
)
