// Package nodeapi provides typed node API calls on top of a JSON querier.
package nodeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Request types used by the views.
const (
	RequestGetAccountProperties = "getAccountProperties"
	RequestGetAccount           = "getAccount"
)

// Querier performs one node requestType and decodes the JSON reply.
// *client.Client implements it.
type Querier interface {
	QueryJSON(ctx context.Context, requestType string, params url.Values, out any) error
}

// API wraps a Querier with the typed calls.
type API struct {
	q Querier
}

// New creates an API over q.
func New(q Querier) *API {
	return &API{q: q}
}

// PropertyRecord is one account property as returned by the node.
type PropertyRecord struct {
	Setter      string `json:"setter"`
	SetterRS    string `json:"setterRS"`
	Recipient   string `json:"recipient"`
	RecipientRS string `json:"recipientRS"`
	Property    string `json:"property"`
	Value       string `json:"value"`
}

// PropertiesQuery selects an inclusive index range filtered by setter
// and/or recipient.
type PropertiesQuery struct {
	FirstIndex int
	LastIndex  int
	Setter     string
	Recipient  string
	Property   string
}

// Params encodes the query as node request parameters.
func (q PropertiesQuery) Params() url.Values {
	params := url.Values{}
	params.Set("firstIndex", strconv.Itoa(q.FirstIndex))
	params.Set("lastIndex", strconv.Itoa(q.LastIndex))
	if q.Setter != "" {
		params.Set("setter", q.Setter)
	}
	if q.Recipient != "" {
		params.Set("recipient", q.Recipient)
	}
	if q.Property != "" {
		params.Set("property", q.Property)
	}
	return params
}

type propertiesResponse struct {
	Properties *[]PropertyRecord `json:"properties"`
}

// GetAccountProperties returns the property rows in q's window.
func (a *API) GetAccountProperties(ctx context.Context, q PropertiesQuery) ([]PropertyRecord, error) {
	if q.Setter == "" && q.Recipient == "" {
		return nil, fmt.Errorf("%s: setter or recipient is required", RequestGetAccountProperties)
	}

	var resp propertiesResponse
	if err := a.q.QueryJSON(ctx, RequestGetAccountProperties, q.Params(), &resp); err != nil {
		return nil, err
	}
	if resp.Properties == nil {
		return nil, fmt.Errorf("%s: response has no properties field", RequestGetAccountProperties)
	}
	return *resp.Properties, nil
}

// Account is the getAccount reply. NQT amounts are decimal strings as sent
// by the node; EffectiveBalanceNXT is whole coins.
type Account struct {
	Account               string      `json:"account"`
	AccountRS             string      `json:"accountRS"`
	PublicKey             string      `json:"publicKey"`
	Name                  string      `json:"name"`
	Description           string      `json:"description"`
	BalanceNQT            string      `json:"balanceNQT"`
	UnconfirmedBalanceNQT string      `json:"unconfirmedBalanceNQT"`
	GuaranteedBalanceNQT  string      `json:"guaranteedBalanceNQT"`
	ForgedBalanceNQT      string      `json:"forgedBalanceNQT"`
	EffectiveBalanceNXT   json.Number `json:"effectiveBalanceNXT"`
}

// GetAccount returns the account record. Unknown accounts surface as the
// querier's node error (code 5).
func (a *API) GetAccount(ctx context.Context, account string) (*Account, error) {
	if account == "" {
		return nil, fmt.Errorf("%s: account is required", RequestGetAccount)
	}

	params := url.Values{}
	params.Set("account", account)

	var resp Account
	if err := a.q.QueryJSON(ctx, RequestGetAccount, params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
