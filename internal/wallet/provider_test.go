package wallet

import (
	"errors"
	"testing"
	"time"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/model"
)

func newSheet() *model.BalanceSheet {
	st := model.NewEconomicState("test-persona", time.Now())
	return &st.BalanceSheet
}

func TestParseProvider(t *testing.T) {
	for _, name := range []string{"local", "coinbase-cdp", "ACN", " onchain "} {
		if _, err := ParseProvider(name); err != nil {
			t.Fatalf("ParseProvider(%q) error: %v", name, err)
		}
	}
	if _, err := ParseProvider("paypal"); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("ParseProvider(paypal) err = %v, want ErrUnknownProvider", err)
	}
}

func TestCreditDebitRoundsAndMirrors(t *testing.T) {
	bs := newSheet()

	Credit(bs, Local, 0.1)
	Credit(bs, Local, 0.2)
	if got := Balance(bs, Local); got != 0.3 {
		t.Fatalf("Balance = %v, want 0.3", got)
	}
	if bs.OperationalBalance != 0.3 {
		t.Fatalf("OperationalBalance = %v, want 0.3", bs.OperationalBalance)
	}

	Debit(bs, Local, 0.0000004)
	if got := Balance(bs, Local); got != 0.3 {
		t.Fatalf("Balance after sub-precision debit = %v, want 0.3", got)
	}
}

func TestDebitHasNoFloor(t *testing.T) {
	bs := newSheet()
	Credit(bs, Local, 1)
	Debit(bs, Local, 2.5)
	if got := Balance(bs, Local); got != -1.5 {
		t.Fatalf("Balance = %v, want -1.5", got)
	}
}

func TestSetPrimaryMirrorsBalanceField(t *testing.T) {
	bs := newSheet()
	Credit(bs, Local, 10)
	Credit(bs, ACN, 250)

	SetPrimary(bs, ACN)
	if bs.OperationalBalance != 250 {
		t.Fatalf("OperationalBalance = %v, want 250", bs.OperationalBalance)
	}
	if bs.OperationalCurrency != "credits" {
		t.Fatalf("OperationalCurrency = %q, want credits", bs.OperationalCurrency)
	}

	Debit(bs, Local, 4)
	if bs.OperationalBalance != 250 {
		t.Fatalf("non-primary debit moved OperationalBalance to %v", bs.OperationalBalance)
	}
}

func TestMirrorFallsBackToLocal(t *testing.T) {
	bs := newSheet()
	bs.PrimaryProvider = "bogus"
	Mirror(bs)
	if bs.PrimaryProvider != "local" {
		t.Fatalf("PrimaryProvider = %q, want local", bs.PrimaryProvider)
	}
}
