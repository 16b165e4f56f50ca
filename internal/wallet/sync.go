package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/model"
)

// Source says where a synced balance came from.
type Source string

// Sync sources.
const (
	Fresh  Source = "fresh"
	Cached Source = "cached"
)

// SyncResult is the outcome of one provider sync. Sync never fails; a
// Cached result carries the reason the fresh fetch was not used.
type SyncResult struct {
	Provider Provider  `json:"provider"`
	Balance  float64   `json:"balance"`
	Currency string    `json:"currency"`
	Source   Source    `json:"source"`
	Reason   string    `json:"reason,omitempty"`
	At       time.Time `json:"at"`
}

// IsFresh reports whether the balance was fetched during this sync.
func (r SyncResult) IsFresh() bool {
	return r.Source == Fresh
}

// FetchExternal queries f for p's balances. A nil fetcher always fails.
func FetchExternal(ctx context.Context, p Provider, f Fetcher) (Balances, error) {
	if f == nil {
		if p == Onchain {
			return nil, errNoLiveFetch
		}
		return nil, ErrMissingCredentials
	}
	return f.FetchBalance(ctx)
}

var errNoLiveFetch = errors.New("wallet: no live fetch for provider")

// Sync fetches p's balance and caches it on success. On any failure the
// cached balance is returned unchanged.
func Sync(ctx context.Context, bs *model.BalanceSheet, p Provider, f Fetcher, now time.Time) SyncResult {
	res := SyncResult{Provider: p, Currency: Currency(bs, p), At: now.UTC()}

	if !p.Syncable() {
		res.Balance = Balance(bs, p)
		res.Source = Cached
		res.Reason = ErrNotSyncable.Error()
		return res
	}

	balances, err := FetchExternal(ctx, p, f)
	if err != nil {
		res.Balance = Balance(bs, p)
		res.Source = Cached
		res.Reason = err.Error()
		return res
	}

	applyBalances(bs, p, balances, res.At)
	res.Balance = Balance(bs, p)
	res.Source = Fresh
	return res
}

func applyBalances(bs *model.BalanceSheet, p Provider, b Balances, at time.Time) {
	ps := &bs.Assets.Providers
	switch p {
	case CoinbaseCDP:
		ps.CoinbaseCDP.USDC = model.RoundAmount(b["USDC"])
		ps.CoinbaseCDP.ETH = model.RoundAmount(b["ETH"])
		ps.CoinbaseCDP.LastSyncAt = &at
	case ACN:
		ps.ACN.Credits = model.RoundAmount(b["credits"])
		ps.ACN.LastSyncAt = &at
	case Onchain:
		ps.Onchain.USDC = model.RoundAmount(b["USDC"])
		ps.Onchain.ETH = model.RoundAmount(b["ETH"])
		ps.Onchain.LastSyncAt = &at
	}
	Mirror(bs)
}

// LastSync returns the provider's last successful sync time, if any.
func LastSync(bs *model.BalanceSheet, p Provider) *time.Time {
	ps := &bs.Assets.Providers
	switch p {
	case CoinbaseCDP:
		return ps.CoinbaseCDP.LastSyncAt
	case ACN:
		return ps.ACN.LastSyncAt
	case Onchain:
		return ps.Onchain.LastSyncAt
	case Local:
		return ps.Local.LastDepositAt
	}
	return nil
}
