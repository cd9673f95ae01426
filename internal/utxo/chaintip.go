package utxo

// ChainTipAdapter satisfies internal/envelope.ChainTip by delegating to a
// Client's GetBlockchainInfo/GetBlockHash (spec.md §4.5).
type ChainTipAdapter struct {
	client *Client
}

// NewChainTipAdapter wraps client as an envelope.ChainTip.
func NewChainTipAdapter(client *Client) *ChainTipAdapter {
	return &ChainTipAdapter{client: client}
}

func (a *ChainTipAdapter) Height() (int64, error) {
	return a.client.GetBlockchainInfo()
}

func (a *ChainTipAdapter) BlockHash(height int64) (string, error) {
	return a.client.GetBlockHash(height)
}
