package client

import (
	"fmt"
	"net/http"
	"net/url"
)

// PayoutAccount is a provider's payout destination as reported by the
// profiles service. Transfers require an active account.
type PayoutAccount struct {
	ProviderID   string `json:"provider_id"`
	RecipientRef string `json:"recipient_ref"`
	Active       bool   `json:"active"`
}

type PayoutClient struct {
	httpClient *HttpClient
}

func NewPayoutClient(baseURL string) *PayoutClient {
	return &PayoutClient{
		httpClient: NewHttpClient(baseURL),
	}
}

// GetPayoutAccount fetches the payout destination for a provider. Returns
// (nil, nil) when the provider has none.
func (c *PayoutClient) GetPayoutAccount(providerID string) (*PayoutAccount, error) {
	path := "/internal/providers/" + url.PathEscape(providerID) + "/payout-account"
	resp, err := c.httpClient.GET(path)
	if err != nil {
		return nil, fmt.Errorf("payout account lookup failed: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payout account lookup returned %d: %s", resp.StatusCode, GetErrorMessage(resp))
	}

	var account PayoutAccount
	if err := resp.DecodeJSON(&account); err != nil {
		return nil, fmt.Errorf("could not decode payout account: %w", err)
	}
	return &account, nil
}
