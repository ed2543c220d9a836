package risk

import (
	"reflect"
	"testing"
)

func tick(v int64) *int64 { return &v }

func TestLevelThresholds(t *testing.T) {
	cases := []struct {
		score int
		want  Level
	}{
		{0, LevelLow},
		{39, LevelLow},
		{40, LevelMedium},
		{64, LevelMedium},
		{65, LevelHigh},
		{84, LevelHigh},
		{85, LevelCritical},
		{100, LevelCritical},
	}
	for _, c := range cases {
		if got := LevelFromScore(c.score); got != c.want {
			t.Errorf("LevelFromScore(%d) = %s, want %s", c.score, got, c.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"low", "LOW", "Low", "cRiTiCaL"} {
		if _, ok := ParseLevel(s); !ok {
			t.Errorf("ParseLevel(%q) should match", s)
		}
	}
	if _, ok := ParseLevel("SEVERE"); ok {
		t.Error("ParseLevel should reject unknown levels")
	}
	if l, _ := ParseLevel("medium"); l != LevelMedium {
		t.Errorf("ParseLevel(medium) = %s", l)
	}
}

func TestAmountBandsMutuallyExclusive(t *testing.T) {
	cases := []struct {
		amount float64
		score  int
		reason string
	}{
		{2_000_000, 45, "very large amount"},
		{1_000_000, 45, "very large amount"},
		{999_999, 30, "large amount"},
		{100_000, 30, "large amount"},
		{50_000, 15, "moderate amount"},
		{10_000, 15, "moderate amount"},
		{9_999, 0, ""},
		{0, 0, ""},
	}
	for _, c := range cases {
		// History with enough transactions to keep the wallet rules quiet.
		a := Score(Transaction{Amount: c.amount, Source: "a", Dest: "b"}, &History{TxCount: 3})
		if a.Score != c.score {
			t.Errorf("amount %.0f: score = %d, want %d", c.amount, a.Score, c.score)
		}
		if c.reason == "" {
			if len(a.Reasons) != 0 {
				t.Errorf("amount %.0f: unexpected reasons %v", c.amount, a.Reasons)
			}
		} else if len(a.Reasons) != 1 || a.Reasons[0] != c.reason {
			t.Errorf("amount %.0f: reasons = %v, want [%s]", c.amount, a.Reasons, c.reason)
		}
	}
}

func TestProcedureWeights(t *testing.T) {
	base := Transaction{Source: "a", Dest: "b"}
	hist := &History{TxCount: 3}

	known := base
	known.Procedure = "QxAddToBidOrder"
	if a := Score(known, hist); a.Score != 20 {
		t.Errorf("known procedure score = %d, want 20", a.Score)
	}

	fanout := base
	fanout.Procedure = "SendToManyV1"
	if a := Score(fanout, hist); a.Score != 35 {
		t.Errorf("SendToManyV1 score = %d, want 35", a.Score)
	}

	unknown := base
	unknown.Procedure = "SomethingElse"
	a := Score(unknown, hist)
	if a.Score != 5 {
		t.Errorf("unknown procedure score = %d, want 5", a.Score)
	}
	if len(a.Reasons) != 1 {
		t.Fatalf("unknown procedure reasons = %v", a.Reasons)
	}

	empty := base
	if a := Score(empty, hist); a.Score != 0 || len(a.Reasons) != 0 {
		t.Errorf("empty procedure should contribute nothing, got %+v", a)
	}
}

func TestUnseenWalletRule(t *testing.T) {
	// No history, significant amount: the single +10 replacement rule fires.
	a := Score(Transaction{Amount: 10_000, Source: "a", Dest: "b"}, nil)
	if a.Score != 15+10 {
		t.Errorf("score = %d, want 25 (moderate amount + unseen wallet)", a.Score)
	}
	want := []string{"moderate amount", "new wallet, significant amount"}
	if !reflect.DeepEqual(a.Reasons, want) {
		t.Errorf("reasons = %v, want %v", a.Reasons, want)
	}

	// No history, small amount: nothing fires at all.
	if a := Score(Transaction{Amount: 5, Source: "a", Dest: "b"}, nil); a.Score != 0 {
		t.Errorf("small unseen score = %d, want 0", a.Score)
	}
}

func TestHistoryRulesIndependent(t *testing.T) {
	// txCount 2 satisfies the new-wallet rule, amount 60k satisfies neither
	// upper band nor the abnormal-volume rule (needs txCount >= 5).
	a := Score(
		Transaction{Amount: 60_000, Source: "a", Dest: "b", Tick: 101},
		&History{TxCount: 2, LastTick: tick(100)},
	)
	// 15 (moderate) + 20 (new wallet) + 20 (burst) = 55
	if a.Score != 55 {
		t.Errorf("score = %d, want 55", a.Score)
	}
	want := []string{"moderate amount", "new wallet, large transaction", "burst activity"}
	if !reflect.DeepEqual(a.Reasons, want) {
		t.Errorf("reasons = %v, want %v", a.Reasons, want)
	}
}

func TestNewAndAbnormalCanBothFire(t *testing.T) {
	// txCount boundary conditions are independent, not mutually exclusive:
	// with txCount in neither range only one fires, but a wallet cannot have
	// txCount <= 2 and >= 5 at once, so verify each edge separately.
	low := Score(Transaction{Amount: 60_000, Source: "a", Dest: "b"}, &History{TxCount: 2})
	if low.Score != 15+20 {
		t.Errorf("txCount=2 score = %d, want 35", low.Score)
	}
	high := Score(Transaction{Amount: 60_000, Source: "a", Dest: "b"}, &History{TxCount: 5})
	if high.Score != 15+15 {
		t.Errorf("txCount=5 score = %d, want 30", high.Score)
	}
}

func TestBurstActivityUsesTickDelta(t *testing.T) {
	hist := func(last int64) *History { return &History{TxCount: 3, LastTick: tick(last)} }

	if a := Score(Transaction{Source: "a", Dest: "b", Tick: 103}, hist(100)); a.Score != 20 {
		t.Errorf("delta 3 score = %d, want 20", a.Score)
	}
	if a := Score(Transaction{Source: "a", Dest: "b", Tick: 104}, hist(100)); a.Score != 0 {
		t.Errorf("delta 4 score = %d, want 0", a.Score)
	}
	// Delta is absolute: ticks can arrive out of order.
	if a := Score(Transaction{Source: "a", Dest: "b", Tick: 97}, hist(100)); a.Score != 20 {
		t.Errorf("delta -3 score = %d, want 20", a.Score)
	}
	// No last tick recorded: rule stays quiet.
	if a := Score(Transaction{Source: "a", Dest: "b", Tick: 100}, &History{TxCount: 3}); a.Score != 0 {
		t.Errorf("nil lastTick score = %d, want 0", a.Score)
	}
}

func TestRiskyHistoryRule(t *testing.T) {
	if a := Score(Transaction{Source: "a", Dest: "b"}, &History{TxCount: 3, AvgRisk: 60}); a.Score != 10 {
		t.Errorf("avgRisk 60 score = %d, want 10", a.Score)
	}
	if a := Score(Transaction{Source: "a", Dest: "b"}, &History{TxCount: 3, AvgRisk: 59.9}); a.Score != 0 {
		t.Errorf("avgRisk 59.9 score = %d, want 0", a.Score)
	}
}

func TestSelfTransfer(t *testing.T) {
	if a := Score(Transaction{Source: "a", Dest: "a"}, &History{TxCount: 3}); a.Score != 10 {
		t.Errorf("self transfer score = %d, want 10", a.Score)
	}
	// Two empty identifiers are not a self transfer.
	if a := Score(Transaction{}, &History{TxCount: 3}); a.Score != 0 {
		t.Errorf("empty source/dest score = %d, want 0", a.Score)
	}
}

func TestScoreCappedAt100(t *testing.T) {
	// 45 + 35 + 20 + 20 + 10 + 10 = 140 before the cap.
	a := Score(
		Transaction{Amount: 2_000_000, Source: "a", Dest: "a", Tick: 101, Procedure: "SendToManyV1"},
		&History{TxCount: 1, AvgRisk: 70, LastTick: tick(100)},
	)
	if a.Score != 100 {
		t.Errorf("score = %d, want 100", a.Score)
	}
	if a.Level != LevelCritical {
		t.Errorf("level = %s, want CRITICAL", a.Level)
	}
	if len(a.Reasons) != 5 {
		t.Errorf("reasons = %v, want 5 entries", a.Reasons)
	}
}

func TestScoreDeterministic(t *testing.T) {
	tx := Transaction{Amount: 250_000, Source: "0xA1B2", Dest: "0xC3D4", Tick: 12045, Procedure: "QxAddToBidOrder"}
	hist := &History{TxCount: 4, AvgRisk: 61, LastTick: tick(12040)}

	first := Score(tx, hist)
	second := Score(tx, hist)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical inputs gave different assessments: %+v vs %+v", first, second)
	}
}

func TestFirstTransactionScenario(t *testing.T) {
	a := Score(Transaction{
		Amount:    250_000,
		Source:    "0xA1B2",
		Dest:      "0xC3D4",
		Tick:      12045,
		Procedure: "QxAddToBidOrder",
	}, nil)

	// 30 (large amount) + 20 (procedure) + 10 (unseen wallet).
	if a.Score != 60 {
		t.Errorf("score = %d, want 60", a.Score)
	}
	if a.Level != LevelMedium {
		t.Errorf("level = %s, want MEDIUM", a.Level)
	}
	if len(a.Reasons) != 3 {
		t.Errorf("reasons = %v, want 3 entries", a.Reasons)
	}
}

func TestFollowupTransactionScenario(t *testing.T) {
	// Second transaction from the same source a tick later.
	a := Score(Transaction{
		Amount: 60_000,
		Source: "0xA1B2",
		Dest:   "0xC3D4",
		Tick:   12046,
	}, &History{TxCount: 1, AvgRisk: 60, LastTick: tick(12045)})

	// 15 (moderate) + 20 (new wallet) + 20 (burst) + 10 (risky history) = 65.
	if a.Score != 65 {
		t.Errorf("score = %d, want 65", a.Score)
	}
	if a.Level != LevelHigh {
		t.Errorf("level = %s, want HIGH", a.Level)
	}
}

func TestScoreBounds(t *testing.T) {
	txs := []Transaction{
		{},
		{Amount: -5},
		{Amount: 1e12, Source: "x", Dest: "x", Procedure: "SendToManyV1"},
	}
	for _, tx := range txs {
		for _, hist := range []*History{nil, {TxCount: 1}, {TxCount: 10, AvgRisk: 100, LastTick: tick(0)}} {
			a := Score(tx, hist)
			if a.Score < 0 || a.Score > 100 {
				t.Errorf("score out of bounds: %d for %+v", a.Score, tx)
			}
			if a.Level != LevelFromScore(a.Score) {
				t.Errorf("level %s inconsistent with score %d", a.Level, a.Score)
			}
		}
	}
}
