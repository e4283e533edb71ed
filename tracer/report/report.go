package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/holiman/uint256"

	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/balances"
	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/tracer"
)

// Options controls how amounts are rendered
type Options struct {
	// Human scales amounts down by Exponents, denoms without an exponent stay as is
	Human     bool
	Exponents map[string]int32
}

func (o Options) amount(baseDenom string, amount *uint256.Int) string {
	if o.Human {
		if exponent, ok := o.Exponents[baseDenom]; ok {
			return balances.HumanAmount(amount, exponent)
		}
	}
	return amount.Dec()
}

// FormatRoute renders a route as "[a, b, c]" with the incomplete suffix when channels
// could not be resolved.
func FormatRoute(route, unresolved []string) string {
	out := "[" + strings.Join(route, ", ") + "]"
	if len(unresolved) > 0 {
		out += " (incomplete: unresolved " + strings.Join(unresolved, ", ") + ")"
	}
	return out
}

// Write renders a run result:
//
//	<Chain Name>
//	<denom>, <base denom>, <amount>, [<route>]
//	Total balances:
//	<base denom>, <total>
//
// Chains without allow-listed balances are left out. Failed chains follow the totals.
func Write(w io.Writer, result *tracer.Result, opts Options) error {
	bw := bufio.NewWriter(w)

	for _, chain := range result.Reports {
		if !chain.Printable() {
			continue
		}
		fmt.Fprintln(bw, chain.Chain.Name)
		for _, line := range chain.Lines {
			fmt.Fprintf(bw, "%s, %s, %s, %s\n",
				line.Denom,
				line.BaseDenom,
				opts.amount(line.BaseDenom, line.Amount),
				FormatRoute(line.Route, line.Unresolved),
			)
		}
	}

	fmt.Fprintln(bw, "Total balances:")
	for _, total := range result.Totals {
		fmt.Fprintf(bw, "%s, %s\n", total.BaseDenom, opts.amount(total.BaseDenom, total.Amount))
	}

	if result.Failed() {
		fmt.Fprintln(bw, "Failed chains:")
		for _, failure := range result.Failures {
			fmt.Fprintf(bw, "%s: %v\n", failure.Key, failure.Err)
		}
	}

	return bw.Flush()
}
