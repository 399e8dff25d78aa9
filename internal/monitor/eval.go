package monitor

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/cegateway/ticker-monitor/internal/marketdata"
	"github.com/cegateway/ticker-monitor/internal/models"
)

// Result is the tri-state outcome of evaluating a condition or an entry.
// Indeterminate means "cannot currently determine true/false" and is never
// conflated with False.
type Result int

const (
	ResultFalse Result = iota
	ResultTrue
	ResultIndeterminate
)

// Outcome carries a Result plus, for indeterminate results, whether the
// cause is permanent (pair delisted, unusable config) or transient (source
// temporarily unavailable).
type Outcome struct {
	Result    Result
	Permanent bool
}

func outcomeBool(b bool) Outcome {
	if b {
		return Outcome{Result: ResultTrue}
	}
	return Outcome{Result: ResultFalse}
}

// evalCondition fetches the condition's metric and compares it against the
// threshold with exact decimal semantics.
func evalCondition(ctx context.Context, src marketdata.PriceSource, c models.Condition) Outcome {
	if c.Metric != models.MetricLastPrice {
		// unknown metrics are rejected at validation time, so a spec
		// carrying one is unusable
		return Outcome{Result: ResultIndeterminate, Permanent: true}
	}

	value, err := src.LastPrice(ctx, c.Exchange, c.Pair)
	if err != nil {
		if errors.Is(err, marketdata.ErrPairDelisted) {
			return Outcome{Result: ResultIndeterminate, Permanent: true}
		}
		return Outcome{Result: ResultIndeterminate}
	}
	return compare(value, c.Operator, c.Threshold)
}

func compare(value decimal.Decimal, operator string, threshold decimal.Decimal) Outcome {
	cmp := value.Cmp(threshold)
	switch operator {
	case models.OperatorLT:
		return outcomeBool(cmp < 0)
	case models.OperatorLTE:
		return outcomeBool(cmp <= 0)
	case models.OperatorGT:
		return outcomeBool(cmp > 0)
	case models.OperatorGTE:
		return outcomeBool(cmp >= 0)
	case models.OperatorEQ:
		return outcomeBool(cmp == 0)
	default:
		return Outcome{Result: ResultIndeterminate, Permanent: true}
	}
}

// aggregate folds per-condition outcomes into the entry-level outcome.
//
// A permanent indeterminate anywhere makes the aggregate permanently
// indeterminate: the spec references a dead pair and needs an edit, whatever
// the mode. Otherwise mode "any" lets a determinate true short-circuit past
// transient indeterminates, and mode "all" refuses to apply the AND until
// every sub-result is determinate.
func aggregate(mode string, outcomes []Outcome) Outcome {
	anyTrue := false
	allTrue := true
	indeterminate := false
	for _, o := range outcomes {
		if o.Result == ResultIndeterminate {
			if o.Permanent {
				return Outcome{Result: ResultIndeterminate, Permanent: true}
			}
			indeterminate = true
			allTrue = false
			continue
		}
		if o.Result == ResultTrue {
			anyTrue = true
		} else {
			allTrue = false
		}
	}

	if mode == models.ModeAny {
		if anyTrue {
			return Outcome{Result: ResultTrue}
		}
		if indeterminate {
			return Outcome{Result: ResultIndeterminate}
		}
		return Outcome{Result: ResultFalse}
	}

	if indeterminate {
		return Outcome{Result: ResultIndeterminate}
	}
	return outcomeBool(allTrue)
}
