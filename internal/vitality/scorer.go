package vitality

import (
	"math"
	"time"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/model"
)

// Sub-score weights of the financial health score. They sum to 1.
const (
	WeightLiquidity     = 0.40
	WeightProfitability = 0.30
	WeightEfficiency    = 0.15
	WeightTrend         = 0.15
)

const (
	// MaxDaysToDepletion stands in for an unbounded runway.
	MaxDaysToDepletion = 9999
	liquidityHorizon   = 30.0
	burnEpsilon        = 1e-9

	inferenceShareLimit = 0.50
	facultyShareLimit   = 0.40
)

// Tier is the discrete health classification.
type Tier string

// Tiers, from worst to best.
const (
	TierSuspended  Tier = "suspended"
	TierCritical   Tier = "critical"
	TierOptimizing Tier = "optimizing"
	TierNormal     Tier = "normal"
)

// Diagnosis labels, in priority order.
const (
	DiagUnfunded          = "unfunded"
	DiagCriticalRunway    = "critical_runway"
	DiagWorseningTrend    = "worsening_trend"
	DiagHighInferenceCost = "high_inference_cost"
	DiagHighFacultyCost   = "high_faculty_cost"
	DiagZeroRevenue       = "zero_revenue"
	DiagHealthy           = "healthy"
)

var prescriptions = map[string][]string{
	DiagUnfunded:          {"deposit_required"},
	DiagCriticalRunway:    {"replenish_balance", "emit_resource_limit_signal"},
	DiagWorseningTrend:    {"review_cost_structure", "reduce_chain_of_thought"},
	DiagHighInferenceCost: {"reduce_chain_of_thought", "minimize_tool_calls"},
	DiagHighFacultyCost:   {"reduce_faculty_usage", "prefer_text_responses"},
	DiagZeroRevenue:       {"prioritize_value_creation", "seek_income_confirmation"},
	DiagHealthy:           {"operate_normally"},
}

// Prescriptions returns the corrective actions for diagnosis.
func Prescriptions(diagnosis string) []string {
	p, ok := prescriptions[diagnosis]
	if !ok {
		p = prescriptions[DiagHealthy]
	}
	return append([]string(nil), p...)
}

// Input is everything the scorer reads. Identity is optional and only
// consulted for enabled external providers.
type Input struct {
	BalanceSheet    model.BalanceSheet
	IncomeStatement model.IncomeStatement
	History         []model.BurnRateSample
	Identity        *model.Identity
	Now             time.Time
}

// InputFrom builds scorer input from a loaded state.
func InputFrom(st *model.EconomicState, id *model.Identity, now time.Time) Input {
	return Input{
		BalanceSheet:    st.BalanceSheet,
		IncomeStatement: st.IncomeStatement,
		History:         st.BurnRateHistory,
		Identity:        id,
		Now:             now,
	}
}

// Result is a full scoring pass.
type Result struct {
	FHS             float64  `json:"fhs"`
	Tier            Tier     `json:"tier"`
	Diagnosis       string   `json:"diagnosis"`
	Prescriptions   []string `json:"prescriptions"`
	Liquidity       float64  `json:"liquidity"`
	Profitability   float64  `json:"profitability"`
	Efficiency      float64  `json:"efficiency"`
	TrendScore      float64  `json:"trend"`
	TrendDirection  Trend    `json:"trendDirection"`
	Balance         float64  `json:"balance"`
	DailyBurnRate   float64  `json:"dailyBurnRate"`
	DaysToDepletion float64  `json:"daysToDepletion"`
	DominantCost    string   `json:"dominantCost"`
}

// Snapshot trims r into the form persisted on the state document.
func (r Result) Snapshot(now time.Time) *model.Vitality {
	return &model.Vitality{
		Score:           round4(r.FHS),
		Tier:            string(r.Tier),
		Diagnosis:       r.Diagnosis,
		Prescriptions:   append([]string(nil), r.Prescriptions...),
		DaysToDepletion: math.Round(r.DaysToDepletion*100) / 100,
		DominantCost:    r.DominantCost,
		Trend:           string(r.TrendDirection),
		ComputedAt:      now.UTC(),
	}
}

// Compute scores in.
func Compute(in Input) Result {
	period := in.IncomeStatement.CurrentPeriod
	balance := in.BalanceSheet.OperationalBalance
	expenses := period.Expenses.Total
	revenue := period.Revenue

	burn := DailyBurnRate(expenses, period.PeriodStart, in.Now)
	days := DaysToDepletion(balance, burn)
	trend := ClassifyTrend(in.History)

	r := Result{
		Liquidity:       Liquidity(days),
		Profitability:   Profitability(revenue, expenses),
		Efficiency:      Efficiency(revenue, expenses),
		TrendScore:      trend.Score(),
		TrendDirection:  trend,
		Balance:         balance,
		DailyBurnRate:   model.RoundAmount(burn),
		DaysToDepletion: days,
		DominantCost:    DominantCost(period.Expenses),
	}
	r.FHS = WeightLiquidity*r.Liquidity +
		WeightProfitability*r.Profitability +
		WeightEfficiency*r.Efficiency +
		WeightTrend*r.TrendScore
	r.Tier = ClassifyTier(balance, r.FHS, days)

	funded := in.BalanceSheet.Assets.Providers.Local.TotalDeposits > 0 || in.Identity.HasExternalProvider()
	r.Diagnosis = diagnose(diagnosisInput{
		balance:  balance,
		days:     days,
		trend:    trend,
		funded:   funded,
		revenue:  revenue,
		expenses: period.Expenses,
	})
	r.Prescriptions = Prescriptions(r.Diagnosis)
	return r
}

// DaysToDepletion is the runway at the given daily burn rate.
func DaysToDepletion(balance, dailyBurn float64) float64 {
	switch {
	case balance <= 0:
		return 0
	case dailyBurn < burnEpsilon:
		return MaxDaysToDepletion
	}
	return math.Min(balance/dailyBurn, MaxDaysToDepletion)
}

// Liquidity scores runway against a 30 day horizon.
func Liquidity(days float64) float64 {
	return math.Min(days/liquidityHorizon, 1)
}

// Profitability is the logistic of the net income rate, or 0.5 before
// any expenses exist.
func Profitability(revenue, expenses float64) float64 {
	if expenses <= 0 {
		return 0.5
	}
	rate := (revenue - expenses) / math.Max(expenses, 1)
	return 1 / (1 + math.Exp(-rate))
}

// Efficiency is revenue coverage of expenses, capped at 1.
func Efficiency(revenue, expenses float64) float64 {
	if revenue <= 0 || expenses <= 0 {
		return 0.5
	}
	return math.Min(revenue/expenses, 1)
}

// ClassifyTier applies the tier rules in priority order.
func ClassifyTier(balance, fhs, days float64) Tier {
	switch {
	case balance <= 0:
		return TierSuspended
	case fhs < 0.2 || days < 3:
		return TierCritical
	case fhs < 0.5 || days < 14:
		return TierOptimizing
	default:
		return TierNormal
	}
}

type diagnosisInput struct {
	balance  float64
	days     float64
	trend    Trend
	funded   bool
	revenue  float64
	expenses model.Expenses
}

// diagnose returns the highest-priority matching diagnosis.
func diagnose(in diagnosisInput) string {
	total := in.expenses.Total
	share := func(category string) float64 {
		if total <= 0 {
			return 0
		}
		return in.expenses.Category(category).Sum() / total
	}

	switch {
	case in.balance <= 0 && !in.funded:
		return DiagUnfunded
	case in.days < 7 && in.balance > 0:
		return DiagCriticalRunway
	case in.trend == Worsening:
		return DiagWorseningTrend
	case share("inference") > inferenceShareLimit:
		return DiagHighInferenceCost
	case share("faculty") > facultyShareLimit:
		return DiagHighFacultyCost
	case in.revenue == 0 && in.balance > 0:
		return DiagZeroRevenue
	default:
		return DiagHealthy
	}
}

// DominantCost names the top-level category with the largest spend, or
// "none" when nothing has been spent.
func DominantCost(exp model.Expenses) string {
	best, bestAmt := "none", 0.0
	for _, name := range model.Categories {
		if amt := exp.Category(name).Sum(); amt > bestAmt {
			best, bestAmt = name, amt
		}
	}
	return best
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
