// Package identity manages a persona's wallet identity document: its
// derived wallet address, primary provider, and provider enablement.
package identity

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/model"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/state"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/wallet"

	"golang.org/x/crypto/sha3"
)

var (
	// ErrNotInitialized is returned when no identity document exists yet.
	ErrNotInitialized = errors.New("identity: wallet not initialized (run wallet-init)")
	// ErrCorrupt is returned when the identity document cannot be parsed.
	ErrCorrupt = errors.New("identity: document is unreadable")
)

// WalletAddress derives the persona's deterministic address: the first 20
// bytes of Keccak-256 over the slug, hex encoded with a 0x prefix. It is
// an identifier only and carries no key material.
func WalletAddress(slug string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(slug))
	sum := h.Sum(nil)
	return "0x" + hex.EncodeToString(sum[:20])
}

// New returns the default identity for slug: local enabled and primary,
// external providers disabled with their default credential references.
func New(slug string, now time.Time) *model.Identity {
	return &model.Identity{
		WalletAddress:   WalletAddress(slug),
		PrimaryProvider: string(wallet.Local),
		Providers: map[string]model.ProviderSettings{
			string(wallet.Local):       {Enabled: true},
			string(wallet.CoinbaseCDP): {CredentialEnv: wallet.DefaultCDPCredentialEnv},
			string(wallet.ACN):         {CredentialEnv: wallet.DefaultACNCredentialEnv},
			string(wallet.Onchain):     {},
		},
		CreatedAt: now.UTC(),
	}
}

// Load reads the identity document. It returns ErrNotInitialized when the
// document does not exist.
func Load(loc state.Location) (*model.Identity, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(loc.IdentityPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotInitialized
		}
		return nil, fmt.Errorf("reading identity: %w", err)
	}

	var id model.Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, loc.IdentityPath(), err)
	}
	if id.Providers == nil {
		id.Providers = make(map[string]model.ProviderSettings)
	}
	if _, ok := id.Providers[string(wallet.Local)]; !ok {
		id.Providers[string(wallet.Local)] = model.ProviderSettings{Enabled: true}
	}
	if id.PrimaryProvider == "" {
		id.PrimaryProvider = string(wallet.Local)
	}
	return &id, nil
}

// LoadOrNil is Load for callers that treat a missing identity as "no
// external providers enabled". An unreadable document is treated the same
// way, with a warning, so the local provider and scoring keep working.
func LoadOrNil(loc state.Location) (*model.Identity, error) {
	id, err := Load(loc)
	switch {
	case errors.Is(err, ErrNotInitialized):
		return nil, nil
	case errors.Is(err, ErrCorrupt):
		log.Printf("%v; continuing with the local provider only", err)
		return nil, nil
	}
	return id, err
}

// Save writes the identity document.
func Save(loc state.Location, id *model.Identity) error {
	if err := loc.Validate(); err != nil {
		return err
	}
	return state.WriteJSON(loc.IdentityPath(), id)
}

// Init creates the identity document if missing and returns it along with
// whether it was newly created. An existing document is left untouched.
func Init(loc state.Location, now time.Time) (*model.Identity, bool, error) {
	id, err := Load(loc)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, ErrNotInitialized) {
		return nil, false, err
	}
	id = New(loc.Slug, now)
	if err := Save(loc, id); err != nil {
		return nil, false, err
	}
	return id, true, nil
}

// Enable turns p on and merges any non-empty settings into the stored
// ones.
func Enable(id *model.Identity, p wallet.Provider, s model.ProviderSettings) model.ProviderSettings {
	if id.Providers == nil {
		id.Providers = make(map[string]model.ProviderSettings)
	}
	cur := id.Providers[string(p)]
	cur.Enabled = true
	if s.CredentialEnv != "" {
		cur.CredentialEnv = s.CredentialEnv
	}
	if s.Endpoint != "" {
		cur.Endpoint = s.Endpoint
	}
	if s.AgentID != "" {
		cur.AgentID = s.AgentID
	}
	if s.Network != "" {
		cur.Network = s.Network
	}
	if s.Address != "" {
		cur.Address = s.Address
	}
	id.Providers[string(p)] = cur
	return cur
}
