package query

// BalancesResponse is the response of /cosmos/bank/v1beta1/balances/{address}
type BalancesResponse struct {
	Balances   []Coin     `json:"balances"`
	Pagination Pagination `json:"pagination"`
}

// Coin is one denom/amount pair, amount as a decimal string
type Coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// DenomTraceResponse is the response of /ibc/apps/transfer/v1/denom_traces/{hash}
type DenomTraceResponse struct {
	DenomTrace DenomTrace `json:"denom_trace"`
}

// DenomTrace type is part of the DenomTraceResponse, it represents
//
//	the trace of the denom
type DenomTrace struct {
	Path      string `json:"path"`
	BaseDenom string `json:"base_denom"`
}

// Pagination type is part of every response that has an array of items
type Pagination struct {
	NextKey string `json:"next_key"`
	Total   string `json:"total"`
}
