package risk

import "fmt"

// Score evaluates a transaction against the rule table and returns the
// capped score, its level, and one reason per fired rule in evaluation
// order. hist is the source wallet's statistics as they were before this
// transaction; pass nil when the source wallet has never been seen.
//
// Score never fails: any combination of inputs produces a valid assessment.
func Score(tx Transaction, hist *History) Assessment {
	total := 0
	var reasons []string
	fire := func(weight int, reason string) {
		total += weight
		reasons = append(reasons, reason)
	}

	// Amount band: highest matching band only.
	for _, band := range amountBands {
		if tx.Amount >= band.Min {
			fire(band.Weight, band.Reason)
			break
		}
	}

	// Procedure lookup. An empty procedure contributes nothing.
	if tx.Procedure != "" {
		if w, ok := procedureWeights[tx.Procedure]; ok {
			fire(w, fmt.Sprintf("high-risk procedure: %s", tx.Procedure))
		} else {
			fire(unknownProcedureWeight, fmt.Sprintf("unrecognized procedure: %s", tx.Procedure))
		}
	}

	// Wallet-history rules. Independent conditions; more than one may fire.
	if hist != nil {
		if hist.TxCount <= newWalletTxCountMax && tx.Amount >= newWalletAmountMin {
			fire(newWalletWeight, "new wallet, large transaction")
		}
		if hist.TxCount >= abnormalTxCountMin && tx.Amount >= abnormalAmountMin {
			fire(abnormalVolumeWeight, "established wallet, abnormal volume")
		}
		if hist.LastTick != nil && absInt64(tx.Tick-*hist.LastTick) <= burstTickDeltaMax {
			fire(burstWeight, "burst activity")
		}
		if hist.AvgRisk >= riskyHistoryAvgMin {
			fire(riskyHistoryWeight, "wallet has risky history")
		}
	} else if tx.Amount >= unseenWalletAmountMin {
		// Replaces the history rules for never-seen source wallets.
		fire(unseenWalletWeight, "new wallet, significant amount")
	}

	if tx.Source != "" && tx.Source == tx.Dest {
		fire(selfTransferWeight, "source equals destination")
	}

	if total > 100 {
		total = 100
	}

	return Assessment{
		Score:   total,
		Level:   LevelFromScore(total),
		Reasons: reasons,
	}
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
