// Package vitality tracks burn rate and scores a persona's financial health.
package vitality

import (
	"time"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/model"
)

// Trend is the short-term direction of the daily burn rate.
type Trend string

// Burn-rate trends.
const (
	Improving Trend = "improving"
	Stable    Trend = "stable"
	Worsening Trend = "worsening"
)

const (
	trendWindow    = 3
	trendMinSample = trendWindow + 1
	trendBand      = 0.10
)

// Score maps the trend onto its [0,1] sub-score.
func (t Trend) Score() float64 {
	switch t {
	case Improving:
		return 1.0
	case Worsening:
		return 0.0
	default:
		return 0.5
	}
}

// DaysElapsed returns the fractional days since periodStart, never less
// than one.
func DaysElapsed(periodStart, now time.Time) float64 {
	days := now.Sub(periodStart).Hours() / 24
	if days < 1 {
		return 1
	}
	return days
}

// DailyBurnRate is the period expense total spread over elapsed days.
func DailyBurnRate(periodExpenses float64, periodStart, now time.Time) float64 {
	return periodExpenses / DaysElapsed(periodStart, now)
}

// AppendSample appends s and drops the oldest samples beyond the cap.
func AppendSample(history []model.BurnRateSample, s model.BurnRateSample) []model.BurnRateSample {
	history = append(history, s)
	if len(history) > model.MaxBurnRateSamples {
		history = history[len(history)-model.MaxBurnRateSamples:]
	}
	return history
}

// Track records the current daily burn rate into st's history. Callers
// invoke it after every recorded cost.
func Track(st *model.EconomicState, now time.Time) model.BurnRateSample {
	period := st.IncomeStatement.CurrentPeriod
	s := model.BurnRateSample{
		Timestamp:     now.UTC(),
		DailyBurnRate: model.RoundAmount(DailyBurnRate(period.Expenses.Total, period.PeriodStart, now)),
	}
	st.BurnRateHistory = AppendSample(st.BurnRateHistory, s)
	return s
}

// ClassifyTrend compares the mean of the three most recent samples with
// the mean of the samples immediately before them. Fewer than four
// samples classify as stable.
func ClassifyTrend(history []model.BurnRateSample) Trend {
	n := len(history)
	if n < trendMinSample {
		return Stable
	}

	recent := mean(history[n-trendWindow:])
	start := n - 2*trendWindow
	if start < 0 {
		start = 0
	}
	prior := mean(history[start : n-trendWindow])

	if prior == 0 {
		if recent > 0 {
			return Worsening
		}
		return Stable
	}

	change := (recent - prior) / prior
	switch {
	case change < -trendBand:
		return Improving
	case change > trendBand:
		return Worsening
	default:
		return Stable
	}
}

func mean(samples []model.BurnRateSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s.DailyBurnRate
	}
	return sum / float64(len(samples))
}
