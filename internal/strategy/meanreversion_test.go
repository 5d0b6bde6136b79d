package strategy

import (
	"testing"

	"github.com/ssystems27/demo-crypto-trading/internal/indicator"
)

func sample(z float64) indicator.Sample {
	return indicator.Sample{ZScore: z, Valid: true}
}

func TestEvaluateBuyOnDownwardCross(t *testing.T) {
	det := NewMeanReversion(-1.1, 0.7)
	action := det.Evaluate(sample(-1.05), sample(-1.15), false)
	if action != ActionBuy {
		t.Fatalf("expected buy on downward cross, got %s", action)
	}
}

func TestEvaluateBuyOnExactThreshold(t *testing.T) {
	det := NewMeanReversion(-1.1, 0.7)
	action := det.Evaluate(sample(-1.05), sample(-1.1), false)
	if action != ActionBuy {
		t.Fatalf("expected buy when landing exactly on threshold, got %s", action)
	}
}

func TestEvaluateNoBuyOnSustainedLevel(t *testing.T) {
	det := NewMeanReversion(-1.1, 0.7)
	// Already below the threshold: no crossing, no signal.
	action := det.Evaluate(sample(-1.3), sample(-1.2), false)
	if action != ActionNone {
		t.Fatalf("expected none for sustained level, got %s", action)
	}
}

func TestEvaluateSellOnUpwardCross(t *testing.T) {
	det := NewMeanReversion(-1.1, 0.7)
	action := det.Evaluate(sample(0.65), sample(0.75), true)
	if action != ActionSell {
		t.Fatalf("expected sell on upward cross, got %s", action)
	}
}

func TestEvaluateNoSellOnSustainedLevel(t *testing.T) {
	det := NewMeanReversion(-1.1, 0.7)
	action := det.Evaluate(sample(0.9), sample(0.8), true)
	if action != ActionNone {
		t.Fatalf("expected none for sustained level, got %s", action)
	}
}

func TestEvaluateNeverBuysWhileLong(t *testing.T) {
	det := NewMeanReversion(-1.1, 0.7)
	action := det.Evaluate(sample(-1.05), sample(-1.15), true)
	if action == ActionBuy {
		t.Fatalf("buy must not fire while a position is open")
	}
}

func TestEvaluateNeverSellsWhileFlat(t *testing.T) {
	det := NewMeanReversion(-1.1, 0.7)
	action := det.Evaluate(sample(0.65), sample(0.75), false)
	if action == ActionSell {
		t.Fatalf("sell must not fire while flat")
	}
}

func TestLatestRequiresTwoSamples(t *testing.T) {
	if _, _, err := Latest([]indicator.Sample{sample(-1)}); err != ErrInsufficientSamples {
		t.Fatalf("expected ErrInsufficientSamples, got %v", err)
	}

	prev, cur, err := Latest([]indicator.Sample{sample(1), sample(2), sample(3)})
	if err != nil {
		t.Fatalf("Latest returned error: %v", err)
	}
	if prev.ZScore != 2 || cur.ZScore != 3 {
		t.Fatalf("Latest picked wrong samples: %.1f %.1f", prev.ZScore, cur.ZScore)
	}
}

func TestBuildDefaultsToMeanReversion(t *testing.T) {
	det := Build("", Params{})
	if det.Name() != "VWAPZScoreReversion(-1.10/0.70)" {
		t.Fatalf("unexpected default detector: %s", det.Name())
	}

	det = Build("vwap_zscore", Params{BuyThreshold: -2, SellThreshold: 1})
	if det.Name() != "VWAPZScoreReversion(-2.00/1.00)" {
		t.Fatalf("unexpected configured detector: %s", det.Name())
	}
}
