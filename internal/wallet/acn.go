package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ACNClient reads an agent's credit balance from an ACN registry.
type ACNClient struct {
	endpoint string
	agentID  string
	getter   httpGetter
}

// NewACNClient creates a client for one registered agent.
func NewACNClient(endpoint, agentID, token string, client *http.Client) (*ACNClient, error) {
	token = strings.TrimSpace(token)
	if token == "" || agentID == "" {
		return nil, ErrMissingCredentials
	}
	if endpoint == "" {
		return nil, errors.New("wallet: acn endpoint not configured")
	}
	return &ACNClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		agentID:  agentID,
		getter:   newHTTPGetter(client, token),
	}, nil
}

type acnBalanceResponse struct {
	Credits *float64 `json:"credits"`
}

// FetchBalance returns the agent's credit balance.
func (c *ACNClient) FetchBalance(ctx context.Context) (Balances, error) {
	endpoint := fmt.Sprintf("%s/api/v1/agents/%s/balance", c.endpoint, url.PathEscape(c.agentID))

	body, err := c.getter.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var raw acnBalanceResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("wallet: parsing acn balance: %w", err)
	}
	if raw.Credits == nil {
		return nil, errors.New("wallet: acn balance response missing credits")
	}
	return Balances{"credits": *raw.Credits}, nil
}
