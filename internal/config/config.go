package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// AuthorityNode is one entry of the fixed, positionally-ordered committee.
// WalletAddress is the authority's EVM personal-message signing address, used to
// verify envelopes it produces (spec.md §4.5, §9 "redeem script / pubkey ordering").
type AuthorityNode struct {
	Hostname      string `json:"hostname"`
	Port          int    `json:"port"`
	WalletAddress string `json:"walletAddress"`
}

// Config holds all application configuration loaded from environment variables,
// plus the peers/ABI side files it references.
type Config struct {
	NodeIndex          int    `envconfig:"WDINGO_NODE_INDEX" required:"true"`
	PeersFile          string `envconfig:"WDINGO_PEERS_FILE" default:"./config/peers.json"`
	AuthorityThreshold int    `envconfig:"WDINGO_AUTHORITY_THRESHOLD" default:"2"`
	PayoutCoordinator  int    `envconfig:"WDINGO_PAYOUT_COORDINATOR" default:"0"`

	DepositConfirmations int `envconfig:"WDINGO_DEPOSIT_CONFIRMATIONS" default:"6"`
	ChangeConfirmations  int `envconfig:"WDINGO_CHANGE_CONFIRMATIONS" default:"6"`
	SyncDelayThreshold   int `envconfig:"WDINGO_SYNC_DELAY_THRESHOLD" default:"3"`

	ChangeAddress         string `envconfig:"WDINGO_CHANGE_ADDRESS" required:"true"`
	TaxPayoutAddressesCSV string `envconfig:"WDINGO_TAX_PAYOUT_ADDRESSES" required:"true"`

	ChainID         int64  `envconfig:"WDINGO_CHAIN_ID" default:"56"`
	ContractABIFile string `envconfig:"WDINGO_CONTRACT_ABI_FILE" required:"true"`
	ContractAddress string `envconfig:"WDINGO_CONTRACT_ADDRESS" required:"true"`
	EVMProviderURL  string `envconfig:"WDINGO_EVM_PROVIDER_URL" required:"true"`

	UTXORPCHost string `envconfig:"WDINGO_UTXO_RPC_HOST" default:"127.0.0.1"`
	UTXORPCPort int    `envconfig:"WDINGO_UTXO_RPC_PORT" default:"8332"`
	UTXORPCUser string `envconfig:"WDINGO_UTXO_RPC_USER"`
	UTXORPCPass string `envconfig:"WDINGO_UTXO_RPC_PASS"`
	UTXONetwork string `envconfig:"WDINGO_UTXO_NETWORK" default:"mainnet"`

	DatabasePath       string `envconfig:"WDINGO_DB_PATH" default:"./data/authority.sqlite"`
	CertPath           string `envconfig:"WDINGO_CERT_PATH" default:"./certs/server.crt"`
	KeyPath            string `envconfig:"WDINGO_KEY_PATH" default:"./certs/server.key"`
	WalletMnemonicFile string `envconfig:"WDINGO_WALLET_MNEMONIC_FILE" required:"true"`
	EVMPrivateKeyFile  string `envconfig:"WDINGO_EVM_PRIVATE_KEY_FILE" required:"true"`

	Port     int    `envconfig:"WDINGO_PORT" default:"8443"`
	LogLevel string `envconfig:"WDINGO_LOG_LEVEL" default:"info"`
	LogDir   string `envconfig:"WDINGO_LOG_DIR" default:"./logs"`

	// Populated by Load() from PeersFile/TaxPayoutAddressesCSV, not from env directly.
	AuthorityNodes     []AuthorityNode `envconfig:"ignored"`
	TaxPayoutAddresses []string        `envconfig:"ignored"`
}

// Load reads configuration from .env file (if present), then environment variables,
// then the peers side-file. Environment variables override .env values.
func Load() (*Config, error) {
	envFiles := []string{".env"}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				slog.Warn("failed to load .env file", "file", f, "error", err)
			} else {
				slog.Info("loaded .env file", "file", f)
			}
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	nodes, err := loadPeers(cfg.PeersFile)
	if err != nil {
		return nil, fmt.Errorf("load peers file %q: %w", cfg.PeersFile, err)
	}
	cfg.AuthorityNodes = nodes

	for _, a := range strings.Split(cfg.TaxPayoutAddressesCSV, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			cfg.TaxPayoutAddresses = append(cfg.TaxPayoutAddresses, a)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadPeers reads the ordered authority committee from a JSON side-file. The file
// holds a list of {hostname, port, walletAddress} — the ordering is the fixed,
// positional authority order referenced throughout spec.md (e.g. §4.6, §9).
func loadPeers(path string) ([]AuthorityNode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var nodes []AuthorityNode
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("parse peers file: %w", err)
	}
	return nodes, nil
}

// Validate checks configuration values for correctness.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port must be 1-65535, got %d", ErrInvalidConfig, c.Port)
	}
	if len(c.AuthorityNodes) == 0 {
		return fmt.Errorf("%w: no authority nodes configured", ErrInvalidConfig)
	}
	if c.NodeIndex < 0 || c.NodeIndex >= len(c.AuthorityNodes) {
		return fmt.Errorf("%w: node index %d out of range for %d authority nodes", ErrInvalidConfig, c.NodeIndex, len(c.AuthorityNodes))
	}
	if c.AuthorityThreshold < 1 || c.AuthorityThreshold > len(c.AuthorityNodes) {
		return fmt.Errorf("%w: authority threshold %d invalid for %d nodes", ErrInvalidConfig, c.AuthorityThreshold, len(c.AuthorityNodes))
	}
	if c.PayoutCoordinator < 0 || c.PayoutCoordinator >= len(c.AuthorityNodes) {
		return fmt.Errorf("%w: payout coordinator index %d out of range", ErrInvalidConfig, c.PayoutCoordinator)
	}
	if len(c.TaxPayoutAddresses) == 0 {
		return fmt.Errorf("%w: no tax payout addresses configured", ErrInvalidConfig)
	}
	if c.UTXONetwork != "mainnet" && c.UTXONetwork != "testnet" {
		return fmt.Errorf("%w: UTXO network must be \"mainnet\" or \"testnet\", got %q", ErrInvalidConfig, c.UTXONetwork)
	}
	return nil
}

// Self returns this node's own entry in the authority committee.
func (c *Config) Self() AuthorityNode {
	return c.AuthorityNodes[c.NodeIndex]
}

// IsCoordinator reports whether this node is the configured payout coordinator.
func (c *Config) IsCoordinator() bool {
	return c.NodeIndex == c.PayoutCoordinator
}
