package tracer

import "fmt"

// ChainFailure is a chain that could not be processed. Its balances are missing from the
// run totals, every other chain is unaffected.
type ChainFailure struct {
	Key string
	Err error
}

func (f ChainFailure) Error() string {
	return fmt.Sprintf("chain %s: %v", f.Key, f.Err)
}

func (f ChainFailure) Unwrap() error {
	return f.Err
}
