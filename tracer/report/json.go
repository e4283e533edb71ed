package report

import (
	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/tracer"
)

// JSONReport is the service representation of a run result
type JSONReport struct {
	Chains   []JSONChain   `json:"chains"`
	Totals   []JSONTotal   `json:"totals"`
	Failures []JSONFailure `json:"failures,omitempty"`
}

type JSONChain struct {
	Key     string     `json:"key"`
	Name    string     `json:"name"`
	ChainID string     `json:"chain_id"`
	Lines   []JSONLine `json:"balances"`
}

type JSONLine struct {
	Denom      string   `json:"denom"`
	BaseDenom  string   `json:"base_denom"`
	Amount     string   `json:"amount"`
	Display    string   `json:"display,omitempty"`
	Route      []string `json:"route"`
	Unresolved []string `json:"unresolved,omitempty"`
}

type JSONTotal struct {
	BaseDenom string `json:"base_denom"`
	Amount    string `json:"amount"`
	Display   string `json:"display,omitempty"`
}

type JSONFailure struct {
	Chain string `json:"chain"`
	Error string `json:"error"`
}

// NewJSONReport converts a run result. Amounts are always exact decimal strings, Display
// carries the human readable amount for denoms with a configured exponent.
func NewJSONReport(result *tracer.Result, exponents map[string]int32) JSONReport {
	human := Options{Human: true, Exponents: exponents}
	display := func(baseDenom string) bool {
		_, ok := exponents[baseDenom]
		return ok
	}

	out := JSONReport{
		Chains: make([]JSONChain, 0, len(result.Reports)),
		Totals: make([]JSONTotal, 0, len(result.Totals)),
	}

	for _, chain := range result.Reports {
		if !chain.Printable() {
			continue
		}
		jc := JSONChain{
			Key:     chain.Chain.Key,
			Name:    chain.Chain.Name,
			ChainID: chain.Chain.ChainID,
			Lines:   make([]JSONLine, 0, len(chain.Lines)),
		}
		for _, line := range chain.Lines {
			jl := JSONLine{
				Denom:      line.Denom,
				BaseDenom:  line.BaseDenom,
				Amount:     line.Amount.Dec(),
				Route:      line.Route,
				Unresolved: line.Unresolved,
			}
			if display(line.BaseDenom) {
				jl.Display = human.amount(line.BaseDenom, line.Amount)
			}
			jc.Lines = append(jc.Lines, jl)
		}
		out.Chains = append(out.Chains, jc)
	}

	for _, total := range result.Totals {
		jt := JSONTotal{BaseDenom: total.BaseDenom, Amount: total.Amount.Dec()}
		if display(total.BaseDenom) {
			jt.Display = human.amount(total.BaseDenom, total.Amount)
		}
		out.Totals = append(out.Totals, jt)
	}

	for _, failure := range result.Failures {
		out.Failures = append(out.Failures, JSONFailure{Chain: failure.Key, Error: failure.Err.Error()})
	}

	return out
}
