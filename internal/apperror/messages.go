package apperror

// messages maps error codes to human-readable messages.
var messages = map[Code]string{
	CodeInvalidInput:       "Invalid input provided",
	CodeInvalidState:       "Invalid state for this operation",
	CodeNotFound:           "Resource not found",
	CodeConfigurationError: "Configuration error",
	CodeInternalError:      "Internal error",
	CodeUnknownError:       "An unknown error occurred",

	CodeRPCConnectionFailed: "Failed to connect to RPC endpoint",
	CodeRPCCallFailed:       "RPC call failed",
	CodeSubscribeFailed:     "Failed to subscribe to chain events",
	CodeBlockNotFound:       "Block not found",
	CodeGasEstimationFailed: "Gas estimation failed",
	CodeRateLimitExceeded:   "Rate limit exceeded",
	CodeCircuitOpen:         "Circuit breaker is open",

	CodePoolFetchFailed:  "Failed to fetch pool state",
	CodePoolDegenerate:   "Pool has zero reserves",
	CodeSwapEncodeFailed: "Failed to encode swap call data",
	CodePriceFetchFailed: "Failed to fetch token price",

	CodeInvalidTransition: "Invalid opportunity status transition",

	CodeSensorReadFailed: "Sensor reading failed",
}
