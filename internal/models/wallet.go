package models

// WalletData is the record supplied by the blockchain data source.
// The orchestrator only reads it.
type WalletData struct {
	Address      string        `json:"address"`
	Balance      string        `json:"balance"`
	Assets       []Asset       `json:"assets,omitempty"`
	Transactions []Transaction `json:"transactions,omitempty"`
}

// Asset is one coin balance held by the wallet
type Asset struct {
	CoinType string `json:"coin_type"`
	Balance  string `json:"balance"`
	Symbol   string `json:"symbol"`
}

// Transaction is a recent wallet transaction
type Transaction struct {
	Digest    string `json:"digest"`
	Timestamp int64  `json:"timestamp"`
	Sender    string `json:"sender"`
	GasUsed   string `json:"gas_used"`
	Success   bool   `json:"success"`
	Kind      string `json:"kind"`
}

// WalletSnapshot is the copy of the wallet context kept with a session
type WalletSnapshot struct {
	Address          string        `json:"address,omitempty"`
	Balance          string        `json:"balance"`
	AssetCount       int           `json:"asset_count"`
	TransactionCount int           `json:"transaction_count"`
	Transactions     []Transaction `json:"transactions,omitempty"`
}

// WalletExport is the reduced wallet projection used in exports
type WalletExport struct {
	Balance          string `json:"balance"`
	AssetCount       int    `json:"asset_count"`
	TransactionCount int    `json:"transaction_count"`
}

// Snapshot copies the wallet into a session snapshot. Nil stays nil.
func (w *WalletData) Snapshot() *WalletSnapshot {
	if w == nil {
		return nil
	}
	txs := make([]Transaction, len(w.Transactions))
	copy(txs, w.Transactions)
	return &WalletSnapshot{
		Address:          w.Address,
		Balance:          w.Balance,
		AssetCount:       len(w.Assets),
		TransactionCount: len(w.Transactions),
		Transactions:     txs,
	}
}

// Export reduces a snapshot to balance and counts
func (s *WalletSnapshot) Export() *WalletExport {
	if s == nil {
		return nil
	}
	return &WalletExport{
		Balance:          s.Balance,
		AssetCount:       s.AssetCount,
		TransactionCount: s.TransactionCount,
	}
}
