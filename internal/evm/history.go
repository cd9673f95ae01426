package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/wdingocoin/wdingocoin/internal/config"
	"github.com/wdingocoin/wdingocoin/internal/models"
)

// mintHistoryResult mirrors the contract's mintHistory(address,string) return
// shape: (mintNonce, mintedAmount).
type mintHistoryResult struct {
	MintNonce    *big.Int
	MintedAmount *big.Int
}

// GetMintHistory reads the contract's current mint nonce and cumulative
// minted amount for (mintAddress, depositAddress) (spec.md §4.3, §4.8).
// mintNonce is never advanced locally — only the contract advances it.
func (c *Client) GetMintHistory(ctx context.Context, mintAddress common.Address, depositAddress string) (uint64, *big.Int, error) {
	var out mintHistoryResult
	if err := c.callView(ctx, "mintHistory", &out, mintAddress, depositAddress); err != nil {
		return 0, nil, fmt.Errorf("get mint history: %w", err)
	}
	return out.MintNonce.Uint64(), out.MintedAmount, nil
}

// burnEntryResult mirrors the contract's burnAt(address,uint256) return shape:
// (burnDestination, burnAmount). burnDestination is a UTXO address string,
// not an EVM address — the burn pays out on the Coin chain.
type burnEntryResult struct {
	BurnDestination string
	BurnAmount      *big.Int
}

// GetBurnHistory returns the immutable {burnDestination, burnAmount} fact for
// one (burnAddress, burnIndex), serving from the durable cache when present
// (spec.md §4.3 "Results MUST be cached locally... immutable facts").
func (c *Client) GetBurnHistory(ctx context.Context, burnAddress common.Address, burnIndex int64) (*models.BurnRecord, error) {
	addrStr := burnAddress.Hex()

	cached, err := c.cache.GetCachedBurn(addrStr, burnIndex)
	if err != nil {
		return nil, fmt.Errorf("read burn cache: %w", err)
	}
	if cached != nil {
		return cached, nil
	}

	var out burnEntryResult
	if err := c.callView(ctx, "burnAt", &out, burnAddress, big.NewInt(burnIndex)); err != nil {
		return nil, fmt.Errorf("get burn history (%s, %d): %w", addrStr, burnIndex, err)
	}

	record := models.BurnRecord{
		BurnAddress:     addrStr,
		BurnIndex:       burnIndex,
		BurnDestination: out.BurnDestination,
		BurnAmount:      out.BurnAmount.String(),
	}
	if err := c.cache.PutCachedBurn(record); err != nil {
		return nil, fmt.Errorf("cache burn history (%s, %d): %w", addrStr, burnIndex, err)
	}
	return &record, nil
}

// GetBurnHistoryList returns every recorded burn for burnAddress, read from
// the contract's burnCount and served per-entry through GetBurnHistory's
// cache (spec.md §4.3, §6 "/queryBurnHistory").
func (c *Client) GetBurnHistoryList(ctx context.Context, burnAddress common.Address) ([]models.BurnRecord, error) {
	var count *big.Int
	if err := c.callView(ctx, "burnCount", &count, burnAddress); err != nil {
		return nil, fmt.Errorf("%w: get burn count for %s: %s", config.ErrChainView, burnAddress.Hex(), err)
	}

	records := make([]models.BurnRecord, 0, count.Int64())
	for i := int64(0); i < count.Int64(); i++ {
		r, err := c.GetBurnHistory(ctx, burnAddress, i)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, nil
}
