package vitality

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/model"
)

var now = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func TestWeightsSumToOne(t *testing.T) {
	sum := WeightLiquidity + WeightProfitability + WeightEfficiency + WeightTrend
	if math.Abs(sum-1) > 1e-12 {
		t.Fatalf("weights sum = %v, want 1", sum)
	}
}

func TestClassifyTierPriority(t *testing.T) {
	tests := []struct {
		balance, fhs, days float64
		want               Tier
	}{
		{0, 0.99, 9999, TierSuspended},
		{-5, 0.99, 9999, TierSuspended},
		{10, 0.1, 100, TierCritical},
		{10, 0.9, 2.9, TierCritical},
		{10, 0.4, 100, TierOptimizing},
		{10, 0.9, 13, TierOptimizing},
		{10, 0.5, 14, TierNormal},
	}
	for _, tt := range tests {
		if got := ClassifyTier(tt.balance, tt.fhs, tt.days); got != tt.want {
			t.Errorf("ClassifyTier(%v, %v, %v) = %s, want %s", tt.balance, tt.fhs, tt.days, got, tt.want)
		}
	}
}

func TestDaysToDepletion(t *testing.T) {
	if got := DaysToDepletion(0, 1); got != 0 {
		t.Fatalf("DaysToDepletion(0, 1) = %v, want 0", got)
	}
	if got := DaysToDepletion(5, 0); got != MaxDaysToDepletion {
		t.Fatalf("DaysToDepletion(5, 0) = %v, want %v", got, MaxDaysToDepletion)
	}
	if got := DaysToDepletion(10, 2); got != 5 {
		t.Fatalf("DaysToDepletion(10, 2) = %v, want 5", got)
	}
}

func TestSubScoreDefaults(t *testing.T) {
	if got := Profitability(0, 0); got != 0.5 {
		t.Fatalf("Profitability cold start = %v, want 0.5", got)
	}
	if got := Efficiency(0, 3); got != 0.5 {
		t.Fatalf("Efficiency without revenue = %v, want 0.5", got)
	}
	if got := Efficiency(9, 3); got != 1 {
		t.Fatalf("Efficiency capped = %v, want 1", got)
	}
	if got := Liquidity(60); got != 1 {
		t.Fatalf("Liquidity(60) = %v, want 1", got)
	}
}

func TestScenarioColdStart(t *testing.T) {
	st := model.NewEconomicState("cold", now)
	r := Compute(InputFrom(st, nil, now))
	if r.Tier != TierSuspended {
		t.Fatalf("Tier = %s, want suspended", r.Tier)
	}
	if r.Diagnosis != DiagUnfunded {
		t.Fatalf("Diagnosis = %s, want unfunded", r.Diagnosis)
	}
	if !reflect.DeepEqual(r.Prescriptions, []string{"deposit_required"}) {
		t.Fatalf("Prescriptions = %v, want [deposit_required]", r.Prescriptions)
	}
	if r.DominantCost != "none" {
		t.Fatalf("DominantCost = %s, want none", r.DominantCost)
	}
}

func TestScenarioExternalProviderIsNotUnfunded(t *testing.T) {
	st := model.NewEconomicState("ext", now)
	id := &model.Identity{Providers: map[string]model.ProviderSettings{
		"acn": {Enabled: true},
	}}
	r := Compute(InputFrom(st, id, now))
	if r.Tier != TierSuspended {
		t.Fatalf("Tier = %s, want suspended", r.Tier)
	}
	if r.Diagnosis == DiagUnfunded {
		t.Fatal("Diagnosis = unfunded with an enabled external provider")
	}
}

func TestScenarioNormal(t *testing.T) {
	st := stateWith(100, 3, map[string]float64{"skill": 2})
	r := Compute(InputFrom(st, nil, now))
	if r.Tier != TierNormal {
		t.Fatalf("Tier = %s (fhs %.3f, days %.1f), want normal", r.Tier, r.FHS, r.DaysToDepletion)
	}
}

func TestScenarioCriticalRunway(t *testing.T) {
	st := stateWith(0.001, 0, map[string]float64{"skill": 0.002})
	r := Compute(InputFrom(st, nil, now))
	if math.Abs(r.DaysToDepletion-0.5) > 1e-9 {
		t.Fatalf("DaysToDepletion = %v, want 0.5", r.DaysToDepletion)
	}
	if r.Tier != TierCritical {
		t.Fatalf("Tier = %s, want critical", r.Tier)
	}
	if r.Diagnosis != DiagCriticalRunway {
		t.Fatalf("Diagnosis = %s, want critical_runway", r.Diagnosis)
	}
}

func TestScenarioWorseningTrend(t *testing.T) {
	st := stateWith(1000, 0, map[string]float64{"skill": 1})
	st.BurnRateHistory = samples(1, 1, 1, 1.2, 1.2, 1.2)
	r := Compute(InputFrom(st, nil, now))
	if r.TrendDirection != Worsening || r.TrendScore != 0 {
		t.Fatalf("trend = %s/%v, want worsening/0", r.TrendDirection, r.TrendScore)
	}
	if r.Diagnosis != DiagWorseningTrend {
		t.Fatalf("Diagnosis = %s, want worsening_trend", r.Diagnosis)
	}

	// A higher-priority diagnosis still wins.
	st.BalanceSheet.OperationalBalance = 0.5
	if got := Compute(InputFrom(st, nil, now)).Diagnosis; got != DiagCriticalRunway {
		t.Fatalf("Diagnosis = %s, want critical_runway", got)
	}
}

func TestDiagnosisCostShares(t *testing.T) {
	st := stateWith(1000, 1, map[string]float64{"inference": 6, "skill": 4})
	if got := Compute(InputFrom(st, nil, now)).Diagnosis; got != DiagHighInferenceCost {
		t.Fatalf("Diagnosis = %s, want high_inference_cost", got)
	}

	st = stateWith(1000, 1, map[string]float64{"faculty": 5, "skill": 5})
	if got := Compute(InputFrom(st, nil, now)).Diagnosis; got != DiagHighFacultyCost {
		t.Fatalf("Diagnosis = %s, want high_faculty_cost", got)
	}

	st = stateWith(1000, 0, map[string]float64{"skill": 1, "runtime": 1})
	if got := Compute(InputFrom(st, nil, now)).Diagnosis; got != DiagZeroRevenue {
		t.Fatalf("Diagnosis = %s, want zero_revenue", got)
	}

	st = stateWith(1000, 2, map[string]float64{"skill": 1, "runtime": 1})
	if got := Compute(InputFrom(st, nil, now)).Diagnosis; got != DiagHealthy {
		t.Fatalf("Diagnosis = %s, want healthy", got)
	}
}

func TestClassifyTrend(t *testing.T) {
	tests := []struct {
		name  string
		rates []float64
		want  Trend
	}{
		{"too few", []float64{1, 5, 9}, Stable},
		{"improving", []float64{2, 2, 2, 1, 1, 1}, Improving},
		{"worsening", []float64{1, 1, 1, 2, 2, 2}, Worsening},
		{"within band", []float64{1, 1, 1, 1.05, 1.05, 1.05}, Stable},
		{"four samples", []float64{1, 2, 2, 2}, Worsening},
		{"from zero", []float64{0, 0, 0, 1, 1, 1}, Worsening},
		{"all zero", []float64{0, 0, 0, 0}, Stable},
	}
	for _, tt := range tests {
		if got := ClassifyTrend(samples(tt.rates...)); got != tt.want {
			t.Errorf("%s: ClassifyTrend = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestAppendSampleCapsHistory(t *testing.T) {
	var h []model.BurnRateSample
	for i := 0; i < model.MaxBurnRateSamples+4; i++ {
		h = AppendSample(h, model.BurnRateSample{DailyBurnRate: float64(i)})
	}
	if len(h) != model.MaxBurnRateSamples {
		t.Fatalf("len = %d, want %d", len(h), model.MaxBurnRateSamples)
	}
	if h[0].DailyBurnRate != 4 {
		t.Fatalf("oldest retained = %v, want 4", h[0].DailyBurnRate)
	}
}

func TestTrackUsesElapsedDays(t *testing.T) {
	st := stateWith(10, 0, map[string]float64{"skill": 6})
	st.IncomeStatement.CurrentPeriod.PeriodStart = now.Add(-72 * time.Hour)
	s := Track(st, now)
	if s.DailyBurnRate != 2 {
		t.Fatalf("DailyBurnRate = %v, want 2", s.DailyBurnRate)
	}
	if len(st.BurnRateHistory) != 1 {
		t.Fatalf("len(BurnRateHistory) = %d, want 1", len(st.BurnRateHistory))
	}
}

func TestSnapshot(t *testing.T) {
	st := stateWith(100, 3, map[string]float64{"skill": 2})
	r := Compute(InputFrom(st, nil, now))
	v := r.Snapshot(now)
	if v.Tier != string(r.Tier) || v.Diagnosis != r.Diagnosis || v.Trend != string(Stable) {
		t.Fatalf("Snapshot = %+v, result %+v", v, r)
	}
	if v.DominantCost != "skill" || !v.ComputedAt.Equal(now) {
		t.Fatalf("Snapshot = %+v, want dominant skill at %v", v, now)
	}
}

func stateWith(balance, revenue float64, costs map[string]float64) *model.EconomicState {
	st := model.NewEconomicState("test", now)
	st.BalanceSheet.OperationalBalance = balance
	st.BalanceSheet.Assets.Providers.Local.Budget = balance
	st.BalanceSheet.Assets.Providers.Local.TotalDeposits = balance
	p := &st.IncomeStatement.CurrentPeriod
	p.Revenue = revenue
	for cat, amt := range costs {
		p.Expenses.Categories[cat] = model.Leaf(amt)
	}
	p.Expenses.Total = model.RoundAmount(p.Expenses.Sum())
	return st
}

func samples(rates ...float64) []model.BurnRateSample {
	out := make([]model.BurnRateSample, len(rates))
	for i, r := range rates {
		out[i] = model.BurnRateSample{Timestamp: now.Add(time.Duration(i) * time.Hour), DailyBurnRate: r}
	}
	return out
}
