package model

import "time"

// Identity is the persona's wallet identity and provider enablement.
// It lives beside the economic state but is versioned independently.
type Identity struct {
	WalletAddress   string                      `json:"walletAddress"`
	PrimaryProvider string                      `json:"primaryProvider"`
	Providers       map[string]ProviderSettings `json:"providers"`
	CreatedAt       time.Time                   `json:"createdAt"`
}

// ProviderSettings enables a provider and references its credentials.
// Secrets are never stored; CredentialEnv names the environment variable
// holding them.
type ProviderSettings struct {
	Enabled       bool   `json:"enabled"`
	CredentialEnv string `json:"credentialEnv,omitempty"`
	Endpoint      string `json:"endpoint,omitempty"`
	AgentID       string `json:"agentId,omitempty"`
	Network       string `json:"network,omitempty"`
	Address       string `json:"address,omitempty"`
}

// HasExternalProvider reports whether any non-local provider is enabled.
func (id *Identity) HasExternalProvider() bool {
	if id == nil {
		return false
	}
	for name, p := range id.Providers {
		if name != "local" && p.Enabled {
			return true
		}
	}
	return false
}

// Enabled reports whether the named provider is enabled.
func (id *Identity) Enabled(name string) bool {
	if id == nil {
		return name == "local"
	}
	p, ok := id.Providers[name]
	return ok && p.Enabled
}
