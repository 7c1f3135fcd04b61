// Package infra contains infrastructure adapters for the arbitrage context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fd1az/arb-engine/business/arbitrage/app"
	"github.com/fd1az/arb-engine/business/arbitrage/domain"
)

var _ app.Reporter = (*ConsoleReporter)(nil)

// ConsoleReporter implements Reporter for CLI output.
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter creates a new ConsoleReporter writing to stdout.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{
		out: os.Stdout,
	}
}

// NewConsoleReporterTo creates a ConsoleReporter with a custom writer.
func NewConsoleReporterTo(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: out}
}

// Start initializes the console reporter.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	fmt.Fprintln(r.out, "Arbitrage Engine Started")
	fmt.Fprintln(r.out, "========================")
	return nil
}

// Report outputs an arbitrage opportunity to the console.
func (r *ConsoleReporter) Report(ctx context.Context, opp *domain.Opportunity) error {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintln(r.out, "ARBITRAGE OPPORTUNITY DETECTED")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "ID:             %s\n", opp.ID)
	fmt.Fprintf(r.out, "Type:           %s\n", opp.Type)
	fmt.Fprintf(r.out, "Status:         %s\n", opp.Status)
	fmt.Fprintf(r.out, "Timestamp:      %s\n", opp.Timestamp.Format(time.RFC3339))
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintln(r.out, "PATH")
	for _, step := range opp.Path {
		fmt.Fprintf(r.out, "  %d. %s  %s -> %s  (%.6f -> %.6f, fee %d bps)\n",
			step.Step, step.Protocol, shortAddr(step.TokenIn.Hex()), shortAddr(step.TokenOut.Hex()),
			step.AmountIn, step.ExpectedOutput, step.FeeBps)
	}
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintln(r.out, "PROFIT")
	fmt.Fprintf(r.out, "  Input:          %.6f\n", opp.InputAmount)
	fmt.Fprintf(r.out, "  Expected Out:   %.6f\n", opp.ExpectedOutput)
	fmt.Fprintf(r.out, "  Gross:          %.6f (%d bps)\n", opp.GrossProfit, opp.ProfitBips)
	fmt.Fprintf(r.out, "  Net:            %.6f (%.2f%%)\n", opp.NetProfit, opp.NetProfitMargin)
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintln(r.out, "EXECUTION")
	fmt.Fprintf(r.out, "  Est. Gas:       %d\n", opp.EstimatedGas)
	if opp.GasCostUSD > 0 {
		fmt.Fprintf(r.out, "  Gas Cost:       $%.4f (%.2f gwei)\n", opp.GasCostUSD, opp.GasPriceGwei)
	}
	if opp.RequiresFlashLoan {
		fmt.Fprintf(r.out, "  Flash Loan:     %.6f of %s\n", opp.FlashLoanAmount, shortAddr(opp.FlashLoanToken.Hex()))
	}
	fmt.Fprintf(r.out, "  Risk Score:     %.3f\n", opp.RiskScore)
	fmt.Fprintln(r.out, "================================================================================")
	return nil
}

// Stop gracefully shuts down the console reporter.
func (r *ConsoleReporter) Stop(ctx context.Context) error {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "Arbitrage Engine Stopped")
	return nil
}

func shortAddr(hex string) string {
	if len(hex) <= 12 {
		return hex
	}
	return hex[:8] + ".." + strings.ToLower(hex[len(hex)-4:])
}
