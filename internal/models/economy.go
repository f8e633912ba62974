package models

// DepositRequest reports an on-chain transfer to the backend.
type DepositRequest struct {
	TxHash string  `json:"tx_hash"`
	Amount float64 `json:"amount"`
}

// DepositResult is the credited balance after a deposit.
type DepositResult struct {
	NewBalance int    `json:"new_balance"`
	CoinsAdded int    `json:"coins_added"`
	Message    string `json:"message"`
}
