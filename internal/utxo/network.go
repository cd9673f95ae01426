package utxo

import "github.com/btcsuite/btcd/chaincfg"

// NetworkParams maps the configured UTXO network name to its chain params,
// used to decode/derive addresses against the right network.
func NetworkParams(network string) *chaincfg.Params {
	switch network {
	case "testnet":
		return &chaincfg.TestNet3Params
	case "regtest":
		return &chaincfg.RegressionNetParams
	default:
		return &chaincfg.MainNetParams
	}
}
