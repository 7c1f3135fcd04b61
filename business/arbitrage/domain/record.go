package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	pooldomain "github.com/fd1az/arb-engine/business/pools/domain"
	"github.com/fd1az/arb-engine/internal/apperror"
)

// Record is the flat serialization form of an opportunity. Field names
// are the stable wire contract used by reporters and downstream tools.
type Record struct {
	OpportunityID string `json:"opportunity_id"`
	ArbType       string `json:"arb_type"`
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp"`

	Path           Path                  `json:"path"`
	TokenAddresses []common.Address      `json:"token_addresses"`
	PoolAddresses  []common.Address      `json:"pool_addresses"`
	Protocols      []pooldomain.Protocol `json:"protocols"`

	InputAmount     float64 `json:"input_amount"`
	ExpectedOutput  float64 `json:"expected_output"`
	GrossProfit     float64 `json:"gross_profit"`
	ProfitBips      int     `json:"profit_bips"`
	NetProfit       float64 `json:"net_profit"`
	NetProfitMargin float64 `json:"net_profit_margin"`

	RequiresFlashLoan bool           `json:"requires_flash_loan"`
	FlashLoanAmount   float64        `json:"flash_loan_amount"`
	FlashLoanToken    common.Address `json:"flash_loan_token"`

	EstimatedGas uint64  `json:"estimated_gas"`
	GasPriceGwei float64 `json:"gas_price_gwei"`
	GasCostUSD   float64 `json:"gas_cost_usd"`

	SlippageRisk float64 `json:"slippage_risk"`
	RiskScore    float64 `json:"risk_score"`

	SimulationProfit *float64 `json:"simulation_profit"`
	ActualProfit     *float64 `json:"actual_profit"`
	GasUsed          *uint64  `json:"gas_used"`
	TxHash           *string  `json:"tx_hash"`
	ExecutionTimeSec *float64 `json:"execution_time"`
	ErrorMessage     *string  `json:"error_message"`

	Metadata map[string]any `json:"metadata"`
}

// Record converts the opportunity to its serialization form. The
// timestamp is rendered as ISO-8601 with nanosecond precision.
func (o *Opportunity) Record() Record {
	return Record{
		OpportunityID:     o.ID,
		ArbType:           string(o.Type),
		Status:            string(o.Status),
		Timestamp:         o.Timestamp.UTC().Format(time.RFC3339Nano),
		Path:              o.Path,
		TokenAddresses:    o.TokenAddresses,
		PoolAddresses:     o.PoolAddresses,
		Protocols:         o.Protocols,
		InputAmount:       o.InputAmount,
		ExpectedOutput:    o.ExpectedOutput,
		GrossProfit:       o.GrossProfit,
		ProfitBips:        o.ProfitBips,
		NetProfit:         o.NetProfit,
		NetProfitMargin:   o.NetProfitMargin,
		RequiresFlashLoan: o.RequiresFlashLoan,
		FlashLoanAmount:   o.FlashLoanAmount,
		FlashLoanToken:    o.FlashLoanToken,
		EstimatedGas:      o.EstimatedGas,
		GasPriceGwei:      o.GasPriceGwei,
		GasCostUSD:        o.GasCostUSD,
		SlippageRisk:      o.SlippageRisk,
		RiskScore:         o.RiskScore,
		SimulationProfit:  o.SimulationProfit,
		ActualProfit:      o.ActualProfit,
		GasUsed:           o.GasUsed,
		TxHash:            o.TxHash,
		ExecutionTimeSec:  o.ExecutionTimeSec,
		ErrorMessage:      o.ErrorMessage,
		Metadata:          o.Metadata,
	}
}

// FromRecord restores an opportunity from its serialization form.
func FromRecord(r Record) (*Opportunity, error) {
	status := Status(r.Status)
	if !status.Valid() {
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithMessage("unknown status in record"),
			apperror.WithContext("status "+r.Status),
		)
	}
	ts, err := time.Parse(time.RFC3339Nano, r.Timestamp)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInvalidInput, "invalid timestamp in record")
	}

	return &Opportunity{
		ID:                r.OpportunityID,
		Type:              Type(r.ArbType),
		Status:            status,
		Timestamp:         ts,
		Path:              r.Path,
		TokenAddresses:    r.TokenAddresses,
		PoolAddresses:     r.PoolAddresses,
		Protocols:         r.Protocols,
		InputAmount:       r.InputAmount,
		ExpectedOutput:    r.ExpectedOutput,
		GrossProfit:       r.GrossProfit,
		ProfitBips:        r.ProfitBips,
		NetProfit:         r.NetProfit,
		NetProfitMargin:   r.NetProfitMargin,
		RequiresFlashLoan: r.RequiresFlashLoan,
		FlashLoanAmount:   r.FlashLoanAmount,
		FlashLoanToken:    r.FlashLoanToken,
		EstimatedGas:      r.EstimatedGas,
		GasPriceGwei:      r.GasPriceGwei,
		GasCostUSD:        r.GasCostUSD,
		SlippageRisk:      r.SlippageRisk,
		RiskScore:         r.RiskScore,
		SimulationProfit:  r.SimulationProfit,
		ActualProfit:      r.ActualProfit,
		GasUsed:           r.GasUsed,
		TxHash:            r.TxHash,
		ExecutionTimeSec:  r.ExecutionTimeSec,
		ErrorMessage:      r.ErrorMessage,
		Metadata:          r.Metadata,
	}, nil
}
