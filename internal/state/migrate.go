package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/model"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/vitality"

	"github.com/Masterminds/semver/v3"
)

// docVersion is the set of schema versions this package knows how to read.
type docVersion int

const (
	versionUnknown docVersion = iota
	versionLegacy
	version200
	versionCurrent
)

var (
	legacyRange  = mustConstraint("< 2.0.0")
	v200Range    = mustConstraint("~2.0.0")
	currentRange = mustConstraint("~2.1.0")
)

func mustConstraint(c string) *semver.Constraints {
	cs, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return cs
}

// classify maps a version string onto a known schema version. Documents
// without a version predate versioning and are treated as legacy.
func classify(version string) docVersion {
	version = strings.TrimPrefix(strings.TrimSpace(version), "v")
	if version == "" {
		return versionLegacy
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return versionUnknown
	}
	switch {
	case legacyRange.Check(v):
		return versionLegacy
	case v200Range.Check(v):
		return version200
	case currentRange.Check(v):
		return versionCurrent
	default:
		return versionUnknown
	}
}

// migrate upgrades st in place one version at a time and reports whether
// anything changed. Unknown versions are left as they are.
func migrate(st *model.EconomicState, now time.Time) bool {
	changed := false
	for {
		switch classify(st.Version) {
		case version200:
			upgradeFrom200(st, now)
			changed = true
		default:
			return changed
		}
	}
}

// upgradeFrom200 adds the burn-rate history and vitality snapshot.
func upgradeFrom200(st *model.EconomicState, now time.Time) {
	if st.BurnRateHistory == nil {
		st.BurnRateHistory = []model.BurnRateSample{}
	}
	if st.Vitality == nil {
		normalize(st)
		st.Vitality = vitality.Compute(vitality.InputFrom(st, nil, now)).Snapshot(now)
	}
	st.Version = model.CurrentVersion
}

// legacyState is the flat single-balance document written by 1.x. Fields
// whose encoding varied across 1.x releases are decoded leniently so one odd
// value never discards the rest of the document.
type legacyState struct {
	Version              string            `json:"version"`
	PersonaSlug          string            `json:"personaSlug"`
	Provider             string            `json:"provider"`
	WalletAddress        string            `json:"walletAddress"`
	Balance              legacyAmount      `json:"balance"`
	Currency             string            `json:"currency"`
	TotalDeposits        legacyAmount      `json:"totalDeposits"`
	PeriodStart          legacyTime        `json:"periodStart"`
	Revenue              legacyAmount      `json:"revenue"`
	Expenses             json.RawMessage   `json:"expenses"`
	TotalRevenue         legacyAmount      `json:"totalRevenue"`
	TotalExpenses        legacyAmount      `json:"totalExpenses"`
	AccumulatedNetIncome *legacyAmount     `json:"accumulatedNetIncome"`
	Ledger               []json.RawMessage `json:"ledger"`
	CreatedAt            legacyTime        `json:"createdAt"`
}

type legacyEntry struct {
	ID        string        `json:"id"`
	Type      string        `json:"type"`
	Amount    legacyAmount  `json:"amount"`
	Currency  string        `json:"currency"`
	Channel   string        `json:"channel"`
	Quality   *legacyAmount `json:"quality"`
	Source    string        `json:"source"`
	TaskID    string        `json:"taskId"`
	Note      string        `json:"note"`
	Timestamp legacyTime    `json:"timestamp"`
}

// legacyAmount accepts a JSON number or a numeric string. Anything else
// reads as zero.
type legacyAmount float64

func (a *legacyAmount) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*a = legacyAmount(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*a = legacyAmount(f)
			return nil
		}
	}
	*a = 0
	return nil
}

// legacyTime accepts RFC 3339 strings and Unix epoch numbers. Numbers at or
// above 1e11 are milliseconds, smaller ones seconds. Unreadable values are
// left zero.
type legacyTime struct {
	time.Time
}

func (t *legacyTime) UnmarshalJSON(data []byte) error {
	t.Time = time.Time{}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		t.Time = epochTime(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		t.Time = epochTime(n)
	}
	return nil
}

func epochTime(n float64) time.Time {
	if n <= 0 {
		return time.Time{}
	}
	if n >= 1e11 {
		return time.UnixMilli(int64(n)).UTC()
	}
	return time.Unix(int64(n), 0).UTC()
}

// decodeLegacyExpenses reads the 1.x expense field. A bare number becomes
// custom.legacy; an object is read as a tree with unknown top-level keys
// moved under custom.
func decodeLegacyExpenses(raw json.RawMessage) model.Expenses {
	exp := model.DefaultExpenses()
	raw = json.RawMessage(bytes.TrimSpace(raw))
	if len(raw) == 0 || string(raw) == "null" {
		return exp
	}

	if raw[0] != '{' {
		var total legacyAmount
		_ = total.UnmarshalJSON(raw)
		if total != 0 {
			addLegacyCustom(&exp, "legacy", model.Leaf(model.RoundAmount(float64(total))))
		}
		return exp
	}

	var tree model.Expenses
	if err := json.Unmarshal(raw, &tree); err != nil {
		return exp
	}
	for name, node := range tree.Categories {
		if node == nil {
			continue
		}
		if model.IsCategory(name) {
			exp.Categories[name] = node
			continue
		}
		addLegacyCustom(&exp, name, node)
	}
	return exp
}

func addLegacyCustom(exp *model.Expenses, key string, node *model.ExpenseNode) {
	custom := exp.Categories["custom"]
	if custom.IsLeaf() {
		prev := custom.Amount
		custom = &model.ExpenseNode{Children: map[string]*model.ExpenseNode{}}
		if prev != 0 {
			custom.Children["other"] = model.Leaf(prev)
		}
		exp.Categories["custom"] = custom
	}
	if existing, ok := custom.Children[key]; ok && existing.IsLeaf() && node.IsLeaf() {
		existing.Amount = model.RoundAmount(existing.Amount + node.Amount)
		return
	}
	custom.Children[key] = node
}

// decodeLegacyLedger decodes entries one at a time. Entries that are not
// JSON objects are skipped; missing ids and timestamps are filled in.
func decodeLegacyLedger(raw []json.RawMessage, fallback time.Time) []model.LedgerEntry {
	out := make([]model.LedgerEntry, 0, len(raw))
	for i, r := range raw {
		var e legacyEntry
		if err := json.Unmarshal(r, &e); err != nil {
			continue
		}
		ts := e.Timestamp.Time
		if ts.IsZero() {
			ts = fallback
		}
		var quality *float64
		if e.Quality != nil {
			q := float64(*e.Quality)
			quality = &q
		}
		id := e.ID
		if id == "" {
			id = fmt.Sprintf("tx_legacy_%d", i+1)
		}
		out = append(out, model.LedgerEntry{
			ID:        id,
			Type:      e.Type,
			Amount:    model.RoundAmount(float64(e.Amount)),
			Currency:  e.Currency,
			Channel:   e.Channel,
			Quality:   quality,
			Source:    e.Source,
			TaskID:    e.TaskID,
			Note:      e.Note,
			Timestamp: ts,
		})
	}
	if len(out) > model.MaxLedgerEntries {
		out = out[len(out)-model.MaxLedgerEntries:]
	}
	return out
}

// decodeLegacy rebuilds the multi-provider shape from a 1.x document. The
// ledger and accumulated equity carry over; the result is a 2.0.0 document
// that migrate then upgrades.
func decodeLegacy(data []byte, from string, now time.Time) (*model.EconomicState, error) {
	var old legacyState
	if err := json.Unmarshal(data, &old); err != nil {
		return nil, err
	}

	created := old.CreatedAt.Time
	if created.IsZero() {
		created = now
	}
	st := model.NewEconomicState(old.PersonaSlug, created)
	st.Version = "2.0.0"
	st.BurnRateHistory = nil
	if from == "" {
		from = "1.0.0"
	}
	st.MigratedFrom = from

	balance := model.RoundAmount(float64(old.Balance))
	ps := &st.BalanceSheet.Assets.Providers
	switch strings.ToLower(old.Provider) {
	case "coinbase-cdp":
		ps.CoinbaseCDP.Connected = true
		ps.CoinbaseCDP.Address = old.WalletAddress
		ps.CoinbaseCDP.USDC = balance
		st.BalanceSheet.PrimaryProvider = "coinbase-cdp"
	case "acn":
		ps.ACN.Connected = true
		ps.ACN.Credits = balance
		st.BalanceSheet.PrimaryProvider = "acn"
	case "onchain":
		ps.Onchain.Connected = true
		ps.Onchain.Address = old.WalletAddress
		ps.Onchain.USDC = balance
		st.BalanceSheet.PrimaryProvider = "onchain"
	default:
		ps.Local.Budget = balance
	}
	if old.Currency != "" {
		ps.Local.Currency = strings.ToUpper(old.Currency)
	}
	ps.Local.TotalDeposits = model.RoundAmount(float64(old.TotalDeposits))

	period := &st.IncomeStatement.CurrentPeriod
	if !old.PeriodStart.IsZero() {
		period.PeriodStart = old.PeriodStart.UTC()
	}
	period.Revenue = model.RoundAmount(float64(old.Revenue))
	period.Expenses = decodeLegacyExpenses(old.Expenses)

	// Lifetime totals are kept as recorded. Equity that they do not explain
	// is carried as opening equity so it survives recomputation.
	allTime := &st.IncomeStatement.AllTime
	allTime.TotalRevenue = model.RoundAmount(float64(old.TotalRevenue))
	allTime.TotalExpenses = model.RoundAmount(float64(old.TotalExpenses))
	if old.AccumulatedNetIncome != nil {
		acc := model.RoundAmount(float64(*old.AccumulatedNetIncome))
		st.BalanceSheet.Equity.OpeningEquity = model.RoundAmount(acc - (allTime.TotalRevenue - allTime.TotalExpenses))
		st.BalanceSheet.Equity.AccumulatedNetIncome = acc
	}

	st.Ledger = decodeLegacyLedger(old.Ledger, created)
	return st, nil
}
