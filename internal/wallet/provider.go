// Package wallet tracks per-provider balances and reconciles cached
// balances against freshly fetched ones.
package wallet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/model"
)

// Provider names one of the fixed balance sources.
type Provider string

// Supported providers.
const (
	Local       Provider = "local"
	CoinbaseCDP Provider = "coinbase-cdp"
	ACN         Provider = "acn"
	Onchain     Provider = "onchain"
)

// All lists the providers in display order.
var All = []Provider{Local, CoinbaseCDP, ACN, Onchain}

var (
	// ErrUnknownProvider is returned for names outside the fixed provider set.
	ErrUnknownProvider = errors.New("wallet: unsupported provider")
	// ErrNotSyncable is returned when syncing a provider with no external source.
	ErrNotSyncable = errors.New("wallet: provider has no external balance source")
)

// ParseProvider validates a provider name.
func ParseProvider(name string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range All {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q (expected one of local, coinbase-cdp, acn, onchain)", ErrUnknownProvider, name)
}

// Syncable reports whether p has an external source to sync from.
func (p Provider) Syncable() bool {
	return p != Local
}

// Balance reads the provider's own balance field under its own unit.
func Balance(bs *model.BalanceSheet, p Provider) float64 {
	ps := &bs.Assets.Providers
	switch p {
	case Local:
		return ps.Local.Budget
	case CoinbaseCDP:
		return ps.CoinbaseCDP.USDC
	case ACN:
		return ps.ACN.Credits
	case Onchain:
		return ps.Onchain.USDC
	}
	return 0
}

// Currency returns the unit of the provider's balance field.
func Currency(bs *model.BalanceSheet, p Provider) string {
	switch p {
	case Local:
		if c := bs.Assets.Providers.Local.Currency; c != "" {
			return c
		}
		return "USD"
	case ACN:
		return "credits"
	default:
		return "USDC"
	}
}

// Credit adds amount to the provider's balance field.
func Credit(bs *model.BalanceSheet, p Provider, amount float64) {
	set(bs, p, Balance(bs, p)+amount)
}

// Debit subtracts amount from the provider's balance field. There is no
// floor: balances may go negative.
func Debit(bs *model.BalanceSheet, p Provider, amount float64) {
	set(bs, p, Balance(bs, p)-amount)
}

func set(bs *model.BalanceSheet, p Provider, v float64) {
	v = model.RoundAmount(v)
	ps := &bs.Assets.Providers
	switch p {
	case Local:
		ps.Local.Budget = v
	case CoinbaseCDP:
		ps.CoinbaseCDP.USDC = v
	case ACN:
		ps.ACN.Credits = v
	case Onchain:
		ps.Onchain.USDC = v
	}
	Mirror(bs)
}

// Primary returns the primary provider, falling back to local for
// unrecognized values.
func Primary(bs *model.BalanceSheet) Provider {
	p, err := ParseProvider(bs.PrimaryProvider)
	if err != nil {
		return Local
	}
	return p
}

// Mirror re-derives the operational balance and currency from the primary
// provider.
func Mirror(bs *model.BalanceSheet) {
	p := Primary(bs)
	bs.PrimaryProvider = string(p)
	bs.OperationalBalance = model.RoundAmount(Balance(bs, p))
	bs.OperationalCurrency = Currency(bs, p)
}

// SetPrimary makes p the single primary provider.
func SetPrimary(bs *model.BalanceSheet, p Provider) {
	bs.PrimaryProvider = string(p)
	Mirror(bs)
}

// MarkConnected flags an external provider as connected.
func MarkConnected(bs *model.BalanceSheet, p Provider, address string) {
	ps := &bs.Assets.Providers
	switch p {
	case CoinbaseCDP:
		ps.CoinbaseCDP.Connected = true
		if address != "" {
			ps.CoinbaseCDP.Address = address
		}
	case ACN:
		ps.ACN.Connected = true
	case Onchain:
		ps.Onchain.Connected = true
		if address != "" {
			ps.Onchain.Address = address
		}
	}
}
