package ethereum

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/arb-engine/business/pools/app"
	"github.com/fd1az/arb-engine/internal/apperror"
)

var _ app.SwapEncoder = (*SwapEncoder)(nil)

// SwapEncoder packs UniswapV2 router call data for a single swap leg.
type SwapEncoder struct {
	routerABI abi.ABI
	tracer    trace.Tracer
}

// NewSwapEncoder creates a swap call data encoder.
func NewSwapEncoder() (*SwapEncoder, error) {
	routerABI, err := abi.JSON(strings.NewReader(RouterABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %w", err)
	}
	return &SwapEncoder{
		routerABI: routerABI,
		tracer:    otel.Tracer(tracerName),
	}, nil
}

// EncodeSwap packs swapExactTokensForTokens call data.
func (e *SwapEncoder) EncodeSwap(ctx context.Context, params app.SwapParams) ([]byte, error) {
	_, span := e.tracer.Start(ctx, "pools.encode_swap",
		trace.WithAttributes(
			attribute.String("token_in", params.TokenIn.Hex()),
			attribute.String("token_out", params.TokenOut.Hex()),
		),
	)
	defer span.End()

	if params.AmountIn == nil || params.AmountIn.Sign() <= 0 {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "amount in must be positive")
	}
	if params.AmountOutMin == nil {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "amount out min is required")
	}
	if params.Deadline == nil || params.Deadline.Sign() <= 0 {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "deadline is required")
	}

	data, err := e.routerABI.Pack(
		"swapExactTokensForTokens",
		params.AmountIn,
		params.AmountOutMin,
		[]common.Address{params.TokenIn, params.TokenOut},
		params.Recipient,
		params.Deadline,
	)
	if err != nil {
		span.RecordError(err)
		return nil, apperror.Wrap(err, apperror.CodeSwapEncodeFailed, "swapExactTokensForTokens")
	}
	return data, nil
}
