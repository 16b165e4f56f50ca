package wallet

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/model"
)

type stubFetcher struct {
	balances Balances
	err      error
}

func (s stubFetcher) FetchBalance(context.Context) (Balances, error) {
	return s.balances, s.err
}

func TestSyncFreshOverwritesCache(t *testing.T) {
	bs := newSheet()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	res := Sync(context.Background(), bs, ACN, stubFetcher{balances: Balances{"credits": 42.1234567}}, now)
	if !res.IsFresh() {
		t.Fatalf("Source = %s, want fresh (reason %q)", res.Source, res.Reason)
	}
	if res.Balance != 42.123457 {
		t.Fatalf("Balance = %v, want 42.123457", res.Balance)
	}
	last := bs.Assets.Providers.ACN.LastSyncAt
	if last == nil || !last.Equal(now) {
		t.Fatalf("LastSyncAt = %v, want %v", last, now)
	}
}

func TestSyncFailureReturnsCached(t *testing.T) {
	bs := newSheet()
	bs.Assets.Providers.CoinbaseCDP.USDC = 7.5

	res := Sync(context.Background(), bs, CoinbaseCDP, stubFetcher{err: errors.New("boom")}, time.Now())
	if res.Source != Cached {
		t.Fatalf("Source = %s, want cached", res.Source)
	}
	if res.Balance != 7.5 {
		t.Fatalf("Balance = %v, want cached 7.5", res.Balance)
	}
	if res.Reason != "boom" {
		t.Fatalf("Reason = %q, want boom", res.Reason)
	}
	if bs.Assets.Providers.CoinbaseCDP.LastSyncAt != nil {
		t.Fatal("LastSyncAt set on failed sync")
	}
}

func TestSyncOnchainAlwaysCached(t *testing.T) {
	bs := newSheet()
	bs.Assets.Providers.Onchain.USDC = 3
	res := Sync(context.Background(), bs, Onchain, nil, time.Now())
	if res.Source != Cached || res.Balance != 3 {
		t.Fatalf("onchain sync = %+v, want cached 3", res)
	}
}

func TestSyncLocalNotSyncable(t *testing.T) {
	bs := newSheet()
	res := Sync(context.Background(), bs, Local, stubFetcher{balances: Balances{"USD": 99}}, time.Now())
	if res.Source != Cached || res.Balance != 0 {
		t.Fatalf("local sync = %+v, want cached 0", res)
	}
}

func TestACNClientFetchBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer acn-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if !strings.HasSuffix(r.URL.Path, "/api/v1/agents/agent-7/balance") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"credits": 120.5}`))
	}))
	defer srv.Close()

	c, err := NewACNClient(srv.URL, "agent-7", "acn-key", srv.Client())
	if err != nil {
		t.Fatalf("NewACNClient: %v", err)
	}
	b, err := c.FetchBalance(context.Background())
	if err != nil {
		t.Fatalf("FetchBalance: %v", err)
	}
	if b["credits"] != 120.5 {
		t.Fatalf("credits = %v, want 120.5", b["credits"])
	}
}

func TestACNClientUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := NewACNClient(srv.URL, "agent-7", "bad", srv.Client())
	if err != nil {
		t.Fatalf("NewACNClient: %v", err)
	}
	if _, err := c.FetchBalance(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestCDPClientScalesAtomicUnits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[
			{"amount":"12500000","asset":{"asset_id":"usdc","decimals":6}},
			{"amount":"250000000000000000","asset":{"asset_id":"eth","decimals":18}},
			{"amount":"1","asset":{"asset_id":"weth","decimals":18}}
		]}`))
	}))
	defer srv.Close()

	c, err := NewCDPClient(srv.URL, "", "0xabc", "cdp-key", srv.Client())
	if err != nil {
		t.Fatalf("NewCDPClient: %v", err)
	}
	b, err := c.FetchBalance(context.Background())
	if err != nil {
		t.Fatalf("FetchBalance: %v", err)
	}
	if b["USDC"] != 12.5 {
		t.Fatalf("USDC = %v, want 12.5", b["USDC"])
	}
	if b["ETH"] != 0.25 {
		t.Fatalf("ETH = %v, want 0.25", b["ETH"])
	}
}

func TestNewFetcherMissingCredentials(t *testing.T) {
	opts := FetcherOptions{Getenv: func(string) string { return "" }}
	_, err := NewFetcher(ACN, model.ProviderSettings{Enabled: true, AgentID: "agent-1", Endpoint: "http://acn.invalid"}, opts)
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("err = %v, want ErrMissingCredentials", err)
	}
}
