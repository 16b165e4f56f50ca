package identity

import (
	"errors"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/model"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/state"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/wallet"
)

var addrRe = regexp.MustCompile(`^0x[0-9a-f]{40}$`)

func TestWalletAddressDeterministic(t *testing.T) {
	a := WalletAddress("ada")
	if !addrRe.MatchString(a) {
		t.Fatalf("WalletAddress = %q, want 0x + 40 hex chars", a)
	}
	if b := WalletAddress("ada"); a != b {
		t.Fatalf("WalletAddress not deterministic: %s vs %s", a, b)
	}
	if c := WalletAddress("grace"); a == c {
		t.Fatal("different slugs produced the same address")
	}
	// keccak256("") starts with c5d2460186f7233c927e7db2dcc703c0e500b653.
	if got := WalletAddress(""); got != "0xc5d2460186f7233c927e7db2dcc703c0e500b653" {
		t.Fatalf("WalletAddress(\"\") = %s", got)
	}
}

func TestInitIsIdempotent(t *testing.T) {
	loc := state.Location{Slug: "ada", Dir: t.TempDir()}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	if _, err := Load(loc); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Load before init err = %v, want ErrNotInitialized", err)
	}

	id, created, err := Init(loc, now)
	if err != nil || !created {
		t.Fatalf("Init = (%v, %v), want created", created, err)
	}
	if id.PrimaryProvider != "local" || !id.Enabled("local") || id.HasExternalProvider() {
		t.Fatalf("default identity = %+v", id)
	}

	Enable(id, wallet.ACN, model.ProviderSettings{AgentID: "agent-7"})
	if err := Save(loc, id); err != nil {
		t.Fatalf("Save: %v", err)
	}

	again, created, err := Init(loc, now.Add(time.Hour))
	if err != nil || created {
		t.Fatalf("second Init = (%v, %v), want existing", created, err)
	}
	acn := again.Providers["acn"]
	if !acn.Enabled || acn.AgentID != "agent-7" || acn.CredentialEnv != wallet.DefaultACNCredentialEnv {
		t.Fatalf("acn settings = %+v", acn)
	}
	if !again.CreatedAt.Equal(now) {
		t.Fatalf("CreatedAt = %v, want %v", again.CreatedAt, now)
	}
}

func TestLoadOrNil(t *testing.T) {
	loc := state.Location{Slug: "ada", Dir: t.TempDir()}
	id, err := LoadOrNil(loc)
	if err != nil || id != nil {
		t.Fatalf("LoadOrNil = (%v, %v), want (nil, nil)", id, err)
	}
}

func TestCorruptIdentityDegradesToLocal(t *testing.T) {
	loc := state.Location{Slug: "ada", Dir: t.TempDir()}
	if err := os.MkdirAll(loc.PersonaDir(), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(loc.IdentityPath(), []byte("{garbage"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(loc); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Load err = %v, want ErrCorrupt", err)
	}
	id, err := LoadOrNil(loc)
	if err != nil || id != nil {
		t.Fatalf("LoadOrNil = (%v, %v), want (nil, nil)", id, err)
	}
}
