package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCDPBaseURL is the Coinbase Developer Platform API root.
const DefaultCDPBaseURL = "https://api.cdp.coinbase.com/platform"

// DefaultCDPNetwork is used when the identity does not name a network.
const DefaultCDPNetwork = "base-mainnet"

// CDPClient reads address balances from the Coinbase Developer Platform.
type CDPClient struct {
	baseURL string
	network string
	address string
	getter  httpGetter
}

// NewCDPClient creates a client for one address. It returns
// ErrMissingCredentials when the token or address is empty.
func NewCDPClient(baseURL, network, address, token string, client *http.Client) (*CDPClient, error) {
	token = strings.TrimSpace(token)
	if token == "" || address == "" {
		return nil, ErrMissingCredentials
	}
	if baseURL == "" {
		baseURL = DefaultCDPBaseURL
	}
	if network == "" {
		network = DefaultCDPNetwork
	}
	return &CDPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		network: network,
		address: address,
		getter:  newHTTPGetter(client, token),
	}, nil
}

type cdpBalancesResponse struct {
	Data []struct {
		Amount string `json:"amount"`
		Asset  struct {
			AssetID  string `json:"asset_id"`
			Decimals int32  `json:"decimals"`
		} `json:"asset"`
	} `json:"data"`
}

// FetchBalance returns the USDC and ETH balances of the address.
// Amounts arrive as atomic-unit integer strings and are scaled by the
// asset's decimals.
func (c *CDPClient) FetchBalance(ctx context.Context) (Balances, error) {
	endpoint := fmt.Sprintf("%s/v1/networks/%s/addresses/%s/balances",
		c.baseURL, url.PathEscape(c.network), url.PathEscape(c.address))

	body, err := c.getter.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var raw cdpBalancesResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("wallet: parsing cdp balances: %w", err)
	}

	out := Balances{"USDC": 0, "ETH": 0}
	for _, b := range raw.Data {
		unit := strings.ToUpper(b.Asset.AssetID)
		if unit != "USDC" && unit != "ETH" {
			continue
		}
		amt, err := decimal.NewFromString(b.Amount)
		if err != nil {
			return nil, fmt.Errorf("wallet: parsing %s amount %q: %w", unit, b.Amount, err)
		}
		out[unit] = amt.Shift(-b.Asset.Decimals).InexactFloat64()
	}
	return out, nil
}
