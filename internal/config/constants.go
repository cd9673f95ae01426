package config

import "time"

// BIP-44 / BIP-84 Derivation Paths
const (
	BIP44Purpose = 44 // Standard BIP-44 purpose, used for the EVM signing key
	BIP84Purpose = 84 // BIP-84 purpose for Native SegWit (bech32), used for deposit pubkeys
	UTXOCoinType = 0  // m/84'/0'/0'/0/N mainnet
	UTXOTestCoin = 1  // m/84'/1'/0'/0/N testnet
	EVMCoinType  = 60 // m/44'/60'/0'/0/N, same as ETH
)

// Amount arithmetic (spec.md §4.1). Satoshis at 8 decimals.
const (
	FlatFee               = 10 * Satoshi  // minimum amount and per-operation service fee
	PayoutNetworkFeePerTx = 20 * Satoshi  // network-fee contribution per deposit/withdrawal in a batch
	DustThreshold         = 1 * Satoshi   // any vout below this is dropped
	Satoshi               = 100_000_000  // 10^8, one whole unit in satoshis
	TaxRateDenominator    = 100           // 1% integer tax on top of FlatFee
)

// Envelope / chain-tip binding (spec.md §4.5)
const (
	DefaultSyncDelayThreshold = 3 // blocks of tolerated desync
)

// Rate Limiting — requests per window, per endpoint (spec.md §5)
const (
	RateLimitPing                       = 10 // per 10s
	RateLimitPingWindow                 = 10 * time.Second
	RateLimitGenerateDepositAddress     = 1 // per 20s
	RateLimitGenerateDepositAddrWindow  = 20 * time.Second
	RateLimitRegisterMintDepositAddress = 1 // per 20s
	RateLimitRegisterMintDepositWindow  = 20 * time.Second
	RateLimitQueryMintBalance           = 10 // per 10s
	RateLimitQueryMintBalanceWindow     = 10 * time.Second
	RateLimitCreateMintTransaction      = 1 // per 5s
	RateLimitCreateMintTxWindow         = 5 * time.Second
	RateLimitQueryBurnHistory           = 10 // per 10s
	RateLimitQueryBurnHistoryWindow     = 10 * time.Second
	RateLimitSubmitWithdrawal           = 5 // per 1s
	RateLimitSubmitWithdrawalWindow     = 1 * time.Second
	RateLimitStats                      = 1 // per 5s
	RateLimitStatsWindow                = 5 * time.Second
)

// Peer / outbound call timeouts (spec.md §5)
const (
	PeerCallTimeout = 5 * time.Second
)

// Server
const (
	ServerReadTimeout  = 30 * time.Second
	ServerWriteTimeout = 60 * time.Second
	ServerIdleTimeout  = 120 * time.Second
	ShutdownGracePeriod = 10 * time.Second
)

// Logging
const (
	DefaultLogDir     = "./logs"
	LogFilePattern    = "authority-%s-%s.log" // %s = date, %s = level
	LogMaxAgeDays     = 30
)

// Database
const (
	DefaultDBPath = "./data/authority.sqlite"
	DBBusyTimeout = 5000 // milliseconds
)

// Stats snapshot cache (spec.md §4.10)
const (
	StatsCacheTTL = 10 * time.Minute
)
