package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	pooldomain "github.com/fd1az/arb-engine/business/pools/domain"
	"github.com/fd1az/arb-engine/internal/apperror"
)

// Type classifies how an opportunity was found.
type Type string

const (
	TypeSpatial    Type = "spatial"
	TypeTriangular Type = "triangular"
	TypeMultiHop   Type = "multi_hop"
	TypeFlashLoan  Type = "flash_loan"
)

// Risk scoring weights. Slippage dominates together with protocol
// maturity, path length and flash loan usage weigh less.
const (
	riskWeightProtocol   = 0.3
	riskWeightComplexity = 0.2
	riskWeightFlashLoan  = 0.2
	riskWeightSlippage   = 0.3

	complexityPerHop    = 0.05
	complexityCeiling   = 0.3
	flashLoanRisk       = 0.1
	defaultSlippageRisk = 0.1
)

// Opportunity is a detected arbitrage with its full lifecycle state.
// Financial amounts are denominated in the input token unless a field
// name says otherwise.
type Opportunity struct {
	ID        string
	Type      Type
	Status    Status
	Timestamp time.Time

	Path           Path
	TokenAddresses []common.Address
	PoolAddresses  []common.Address
	Protocols      []pooldomain.Protocol

	InputAmount     float64
	ExpectedOutput  float64
	GrossProfit     float64
	ProfitBips      int
	NetProfit       float64
	NetProfitMargin float64

	RequiresFlashLoan bool
	FlashLoanAmount   float64
	FlashLoanToken    common.Address

	EstimatedGas uint64
	GasPriceGwei float64
	GasCostUSD   float64

	SlippageRisk float64
	RiskScore    float64

	SimulationProfit *float64
	ActualProfit     *float64
	GasUsed          *uint64
	TxHash           *string
	ExecutionTimeSec *float64
	ErrorMessage     *string

	Metadata map[string]any
}

// New builds an opportunity from a completed path. Profit figures are
// derived from the path, net profit starts equal to gross profit until
// gas costs are applied.
func New(typ Type, path Path, inputAmount float64) *Opportunity {
	o := &Opportunity{
		ID:             uuid.New().String(),
		Type:           typ,
		Status:         StatusIdentified,
		Timestamp:      time.Now().UTC(),
		Path:           path,
		TokenAddresses: path.TokenAddresses(),
		PoolAddresses:  path.PoolAddresses(),
		Protocols:      path.Protocols(),
		InputAmount:    inputAmount,
		Metadata:       make(map[string]any),
	}

	if len(path) > 0 {
		o.ExpectedOutput = path[len(path)-1].ExpectedOutput
	}
	o.GrossProfit = o.ExpectedOutput - inputAmount
	if inputAmount > 0 {
		o.ProfitBips = int((o.GrossProfit / inputAmount) * 10000)
	}
	o.NetProfit = o.GrossProfit
	o.NetProfitMargin = o.CalculateProfitMargin()
	o.ComputeRiskScore()
	return o
}

// ComputeRiskScore recomputes and stores the composite risk score in
// [0, 1]. Higher is riskier.
func (o *Opportunity) ComputeRiskScore() float64 {
	protocolRisk := pooldomain.ProtocolUnknown.BaseRisk()
	if len(o.Protocols) > 0 {
		sum := 0.0
		for _, p := range o.Protocols {
			sum += p.BaseRisk()
		}
		protocolRisk = sum / float64(len(o.Protocols))
	}

	complexity := float64(len(o.Path)) * complexityPerHop
	if complexity > complexityCeiling {
		complexity = complexityCeiling
	}

	flash := 0.0
	if o.RequiresFlashLoan {
		flash = flashLoanRisk
	}

	slippage := o.SlippageRisk
	if slippage == 0 {
		slippage = defaultSlippageRisk
	}

	score := protocolRisk*riskWeightProtocol +
		complexity*riskWeightComplexity +
		flash*riskWeightFlashLoan +
		slippage*riskWeightSlippage

	if score > 1.0 {
		score = 1.0
	}
	if score < 0 {
		score = 0
	}
	o.RiskScore = score
	return score
}

// UpdateStatus transitions the opportunity to next. A transition the
// lifecycle does not allow is rejected and the status stays unchanged.
func (o *Opportunity) UpdateStatus(next Status) error {
	if !next.Valid() {
		return apperror.New(apperror.CodeInvalidInput,
			apperror.WithMessage("unknown status"),
			apperror.WithContext("status "+string(next)),
		)
	}
	if !o.Status.CanTransitionTo(next) {
		return apperror.New(apperror.CodeInvalidTransition,
			apperror.WithMessage("invalid status transition"),
			apperror.WithContext(string(o.Status)+" -> "+string(next)),
		)
	}
	o.Status = next
	return nil
}

// MarkFailed transitions to failed and records the reason.
func (o *Opportunity) MarkFailed(reason string) error {
	if err := o.UpdateStatus(StatusFailed); err != nil {
		return err
	}
	o.ErrorMessage = &reason
	return nil
}

// UpdateSimulationResults records the simulated profit. A positive
// simulation advances the lifecycle, anything else fails it.
func (o *Opportunity) UpdateSimulationResults(simProfit float64) error {
	o.SimulationProfit = &simProfit
	if simProfit > 0 {
		return o.UpdateStatus(StatusSimulated)
	}
	return o.MarkFailed("Simulation showed no profit")
}

// UpdateExecutionResults records the on-chain outcome of an executing
// opportunity.
func (o *Opportunity) UpdateExecutionResults(txHash string, actualProfit float64, gasUsed uint64, execSeconds float64, success bool) error {
	o.TxHash = &txHash
	o.ActualProfit = &actualProfit
	o.GasUsed = &gasUsed
	o.ExecutionTimeSec = &execSeconds

	if success {
		return o.UpdateStatus(StatusExecuted)
	}
	return o.MarkFailed("Execution reverted")
}

// ApplyGasCost charges the estimated gas against gross profit.
func (o *Opportunity) ApplyGasCost(gasPriceGwei, gasCostUSD float64) {
	o.GasPriceGwei = gasPriceGwei
	o.GasCostUSD = gasCostUSD
	o.NetProfit = o.GrossProfit - gasCostUSD
	o.NetProfitMargin = o.CalculateProfitMargin()
}

// CalculateProfitMargin returns net profit relative to input, in percent.
func (o *Opportunity) CalculateProfitMargin() float64 {
	if o.InputAmount == 0 {
		return 0
	}
	return o.NetProfit / o.InputAmount * 100
}

// IsProfitable reports whether the opportunity still nets a profit.
func (o *Opportunity) IsProfitable() bool {
	return o.NetProfit > 0
}
