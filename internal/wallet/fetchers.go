package wallet

import (
	"net/http"
	"os"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/model"
)

// Default credential environment variables per provider.
const (
	DefaultCDPCredentialEnv = "CDP_API_KEY"
	DefaultACNCredentialEnv = "ACN_API_KEY"
)

// FetcherOptions carries process-level settings for building fetchers.
type FetcherOptions struct {
	CDPBaseURL  string
	ACNEndpoint string
	HTTPClient  *http.Client
	// Getenv resolves credential references; defaults to os.Getenv.
	Getenv func(string) string
}

// NewFetcher builds the live fetcher for p from its identity settings.
// It returns ErrMissingCredentials when the referenced credential is unset;
// onchain and local have no fetcher and return (nil, nil).
func NewFetcher(p Provider, s model.ProviderSettings, opts FetcherOptions) (Fetcher, error) {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	switch p {
	case CoinbaseCDP:
		env := s.CredentialEnv
		if env == "" {
			env = DefaultCDPCredentialEnv
		}
		base := s.Endpoint
		if base == "" {
			base = opts.CDPBaseURL
		}
		c, err := NewCDPClient(base, s.Network, s.Address, getenv(env), opts.HTTPClient)
		if err != nil {
			return nil, err
		}
		return c, nil
	case ACN:
		env := s.CredentialEnv
		if env == "" {
			env = DefaultACNCredentialEnv
		}
		endpoint := s.Endpoint
		if endpoint == "" {
			endpoint = opts.ACNEndpoint
		}
		c, err := NewACNClient(endpoint, s.AgentID, getenv(env), opts.HTTPClient)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, nil
}
