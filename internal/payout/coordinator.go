package payout

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/wdingocoin/wdingocoin/internal/config"
	"github.com/wdingocoin/wdingocoin/internal/envelope"
	"github.com/wdingocoin/wdingocoin/internal/models"
)

// GatherPendingPayouts is Step B's consensus input (spec.md §4.9 "coordinator
// gathers consensus"): it asks every authority — including itself — for its
// own Step A view, then keeps only the entries every authority agrees on,
// electing the largest batch that is safe under every authority's chain view.
func (e *Engine) GatherPendingPayouts(ctx context.Context, processDeposits, processWithdrawals bool) (*models.PendingPayouts, error) {
	views := make([]*models.PendingPayouts, len(e.authorityNodes))
	for i, node := range e.authorityNodes {
		if i == e.nodeIndex {
			v, err := e.ComputePendingPayouts(ctx, processDeposits, processWithdrawals)
			if err != nil {
				return nil, fmt.Errorf("compute own pending payouts: %w", err)
			}
			views[i] = v
			continue
		}
		v, err := e.fetchPendingPayouts(ctx, node, processDeposits, processWithdrawals)
		if err != nil {
			return nil, fmt.Errorf("fetch pending payouts from authority %d: %w", i, err)
		}
		views[i] = v
	}
	return intersectPendingPayouts(views), nil
}

// GatherUnspent mirrors GatherPendingPayouts for Step B's unspent-set
// intersection (spec.md §4.9 Step B).
func (e *Engine) GatherUnspent(ctx context.Context) ([]models.UnspentOutput, error) {
	views := make([][]models.UnspentOutput, len(e.authorityNodes))
	for i, node := range e.authorityNodes {
		if i == e.nodeIndex {
			v, err := e.ComputeUnspent(ctx)
			if err != nil {
				return nil, fmt.Errorf("compute own unspent: %w", err)
			}
			views[i] = v
			continue
		}
		v, err := e.fetchUnspent(ctx, node)
		if err != nil {
			return nil, fmt.Errorf("fetch unspent from authority %d: %w", i, err)
		}
		views[i] = v
	}
	return intersectUnspent(views), nil
}

func (e *Engine) fetchPendingPayouts(ctx context.Context, node config.AuthorityNode, processDeposits, processWithdrawals bool) (*models.PendingPayouts, error) {
	reply, err := e.peer.PostJSON(ctx, node, "/computePendingPayouts", map[string]interface{}{
		"processDeposits":    processDeposits,
		"processWithdrawals": processWithdrawals,
	})
	if err != nil {
		return nil, err
	}
	if err := envelope.VerifyExpected(reply, common.HexToAddress(node.WalletAddress), e.chainTip, e.syncDelayThreshold); err != nil {
		return nil, err
	}
	var pending models.PendingPayouts
	if err := json.Unmarshal(reply.Data, &pending); err != nil {
		return nil, fmt.Errorf("%w: decode pending payouts reply: %s", config.ErrConsensus, err)
	}
	return &pending, nil
}

func (e *Engine) fetchUnspent(ctx context.Context, node config.AuthorityNode) ([]models.UnspentOutput, error) {
	reply, err := e.peer.PostJSON(ctx, node, "/computeUnspent", map[string]interface{}{})
	if err != nil {
		return nil, err
	}
	if err := envelope.VerifyExpected(reply, common.HexToAddress(node.WalletAddress), e.chainTip, e.syncDelayThreshold); err != nil {
		return nil, err
	}
	var body struct {
		Unspent []models.UnspentOutput `json:"unspent"`
	}
	if err := json.Unmarshal(reply.Data, &body); err != nil {
		return nil, fmt.Errorf("%w: decode unspent reply: %s", config.ErrConsensus, err)
	}
	return body.Unspent, nil
}

func intersectPendingPayouts(views []*models.PendingPayouts) *models.PendingPayouts {
	out := &models.PendingPayouts{}

	dtpKey := func(d models.DepositTaxPayout) string { return d.DepositAddress }
	dtpCounts := make(map[string]int)
	dtpValue := make(map[string]models.DepositTaxPayout)
	for _, v := range views {
		seen := make(map[string]bool)
		for _, d := range v.DepositTaxPayouts {
			k := dtpKey(d)
			if seen[k] {
				continue
			}
			seen[k] = true
			if existing, ok := dtpValue[k]; ok && existing != d {
				continue // disagreement on amount; never counted as agreeing
			}
			dtpValue[k] = d
			dtpCounts[k]++
		}
	}
	for k, count := range dtpCounts {
		if count == len(views) {
			out.DepositTaxPayouts = append(out.DepositTaxPayouts, dtpValue[k])
		}
	}

	wpKey := func(burnAddress string, burnIndex int64) string { return fmt.Sprintf("%s:%d", burnAddress, burnIndex) }
	wpCounts := make(map[string]int)
	wpValue := make(map[string]models.WithdrawalPayout)
	wtpValue := make(map[string]models.WithdrawalTaxPayout)
	for _, v := range views {
		seen := make(map[string]bool)
		for i, wp := range v.WithdrawalPayouts {
			k := wpKey(wp.BurnAddress, wp.BurnIndex)
			if seen[k] {
				continue
			}
			seen[k] = true
			if existing, ok := wpValue[k]; ok && existing != wp {
				continue
			}
			wpValue[k] = wp
			wtpValue[k] = v.WithdrawalTaxPayouts[i]
			wpCounts[k]++
		}
	}
	for k, count := range wpCounts {
		if count == len(views) {
			out.WithdrawalPayouts = append(out.WithdrawalPayouts, wpValue[k])
			out.WithdrawalTaxPayouts = append(out.WithdrawalTaxPayouts, wtpValue[k])
		}
	}

	return out
}

func intersectUnspent(views [][]models.UnspentOutput) []models.UnspentOutput {
	key := func(u models.UnspentOutput) string { return fmt.Sprintf("%s:%d", u.TxID, u.Vout) }
	counts := make(map[string]int)
	value := make(map[string]models.UnspentOutput)
	for _, v := range views {
		seen := make(map[string]bool)
		for _, u := range v {
			k := key(u)
			if seen[k] {
				continue
			}
			seen[k] = true
			if existing, ok := value[k]; ok && existing.Amount != u.Amount {
				continue
			}
			value[k] = u
			counts[k]++
		}
	}
	var out []models.UnspentOutput
	for k, count := range counts {
		if count == len(views) {
			out = append(out, value[k])
		}
	}
	return out
}

// ExecutePayouts runs the full payout protocol end to end (spec.md §4.9 Steps
// B-E): must only be called on the configured coordinator. testMode walks the
// same co-signing chain through /approvePayoutsTest but never broadcasts.
func (e *Engine) ExecutePayouts(ctx context.Context, processDeposits, processWithdrawals, testMode bool) (string, error) {
	if !e.IsCoordinator() {
		return "", fmt.Errorf("%w: only the configured coordinator may execute payouts", config.ErrUnauthorized)
	}

	pending, err := e.GatherPendingPayouts(ctx, processDeposits, processWithdrawals)
	if err != nil {
		return "", err
	}
	if len(pending.DepositTaxPayouts) == 0 && len(pending.WithdrawalPayouts) == 0 {
		return "", fmt.Errorf("%w: no payouts survived cross-authority agreement", config.ErrInsufficientFunds)
	}

	unspent, err := e.GatherUnspent(ctx)
	if err != nil {
		return "", err
	}

	totalTax, networkFee, err := e.validatePayouts(ctx, pending)
	if err != nil {
		return "", err
	}

	vouts, err := e.buildVouts(pending, totalTax, networkFee, unspent)
	if err != nil {
		return "", err
	}

	hex, err := e.daemon.CreateRawTransaction(toTxInputs(unspent), vouts)
	if err != nil {
		return "", fmt.Errorf("create raw payout transaction: %w", err)
	}

	approvePath := "/approvePayouts"
	if testMode {
		approvePath = "/approvePayoutsTest"
	}

	for i, node := range e.authorityNodes {
		if i == e.nodeIndex {
			next, err := e.ApprovePayouts(ctx, ApproveRequest{Pending: pending, Unspent: unspent, Hex: hex}, testMode)
			if err != nil {
				return "", fmt.Errorf("co-sign locally (authority %d): %w", i, err)
			}
			hex = next
			continue
		}
		next, err := e.approveRemote(ctx, node, approvePath, pending, unspent, hex)
		if err != nil {
			return "", fmt.Errorf("co-sign via authority %d: %w", i, err)
		}
		hex = next
	}

	if testMode {
		return hex, nil
	}

	txid, err := e.daemon.SendRawTransaction(hex)
	if err != nil {
		return "", fmt.Errorf("broadcast final payout transaction: %w", err)
	}
	return txid, nil
}

func (e *Engine) approveRemote(ctx context.Context, node config.AuthorityNode, path string, pending *models.PendingPayouts, unspent []models.UnspentOutput, hex string) (string, error) {
	body, err := json.Marshal(ApproveRequest{Pending: pending, Unspent: unspent, Hex: hex})
	if err != nil {
		return "", fmt.Errorf("marshal approve request: %w", err)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("normalize approve request: %w", err)
	}

	req, err := envelope.Sign(e.signingKey, e.chainTip, e.syncDelayThreshold, payload)
	if err != nil {
		return "", fmt.Errorf("sign approve request: %w", err)
	}

	reply, err := e.peer.Post(ctx, node, path, req)
	if err != nil {
		return "", err
	}
	if err := envelope.VerifyExpected(reply, common.HexToAddress(node.WalletAddress), e.chainTip, e.syncDelayThreshold); err != nil {
		return "", err
	}

	var out struct {
		Hex string `json:"hex"`
	}
	if err := json.Unmarshal(reply.Data, &out); err != nil {
		return "", fmt.Errorf("%w: decode approve reply: %s", config.ErrConsensus, err)
	}
	if out.Hex == "" {
		return "", fmt.Errorf("%w: authority reply carried no hex", config.ErrConsensus)
	}
	return out.Hex, nil
}
