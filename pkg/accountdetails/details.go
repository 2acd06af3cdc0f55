// Package accountdetails builds the account details modal: balances,
// account identifiers, public key state and the active tab.
package accountdetails

import (
	"context"
	"errors"
	"strings"

	"github.com/Sternrassler/nrs-views/pkg/client"
	"github.com/Sternrassler/nrs-views/pkg/nodeapi"
	"github.com/rs/zerolog/log"
)

// Tab is a section of the details modal.
type Tab string

const (
	TabBalance    Tab = "balance"
	TabAssets     Tab = "assets"
	TabCurrencies Tab = "currencies"
	TabLeasing    Tab = "leasing"
)

// Tabs in display order.
var Tabs = []Tab{TabBalance, TabAssets, TabCurrencies, TabLeasing}

// ParseTab returns the named tab, falling back to balance.
func ParseTab(s string) Tab {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range Tabs {
		if string(t) == s {
			return t
		}
	}
	return TabBalance
}

// Message keys of the balance warnings.
const (
	WarningPublicKeyNotAnnounced = "public_key_not_announced_warning"
	WarningNoPublicKey           = "no_public_key_warning"
	WarningPublicKeyActions      = "public_key_actions"
)

// Local is what the wallet knows about the viewer without asking the node.
type Local struct {
	Account   string
	AccountRS string
	PublicKey string
}

// Balances are formatted "X NXT" strings.
type Balances struct {
	Balance     string
	Unconfirmed string
	Effective   string
	Guaranteed  string
	Forged      string
}

// View is the template model of the details modal.
type View struct {
	Account   string
	AccountRS string
	PublicKey string

	// ShowBalanceTable is false when the node reported an error other
	// than unknown account; ErrorDescription then holds its text.
	ShowBalanceTable bool
	ErrorDescription string
	Balances         Balances

	// WarningKeys are message keys shown below the table, in order.
	// WarningPublicKey is the argument of public_key_not_announced_warning.
	WarningKeys      []string
	WarningPublicKey string

	ActiveTab Tab
}

// HasWarning reports whether a warning line is shown.
func (v View) HasWarning() bool {
	return v.ErrorDescription != "" || len(v.WarningKeys) > 0
}

// IsActive reports whether t is the active tab.
func (v View) IsActive(t Tab) bool {
	return v.ActiveTab == t
}

// Tabs lists the modal tabs.
func (v View) Tabs() []Tab {
	return Tabs
}

// Close resets the modal to the balance tab.
func (v *View) Close() {
	v.ActiveTab = TabBalance
}

func zeroBalances() Balances {
	const zero = "0 NXT"
	return Balances{Balance: zero, Unconfirmed: zero, Effective: zero, Guaranteed: zero, Forged: zero}
}

// Build derives the view from a getAccount result. fetchErr is the error of
// that call: unknown account renders zero balances, other node errors hide
// the table. Errors that are not node answers are returned.
func Build(account *nodeapi.Account, fetchErr error, local Local, tab string) (View, error) {
	view := View{
		Account:          local.Account,
		AccountRS:        local.AccountRS,
		ShowBalanceTable: true,
		ActiveTab:        ParseTab(tab),
	}

	if fetchErr != nil {
		var nodeErr *client.NodeError
		switch {
		case client.IsUnknownAccount(fetchErr):
			view.Balances = zeroBalances()
			view.PublicKey = local.PublicKey
			return view, nil
		case errors.As(fetchErr, &nodeErr):
			view.ShowBalanceTable = false
			view.ErrorDescription = nodeErr.Description
			return view, nil
		default:
			return View{}, fetchErr
		}
	}

	balances, err := formatBalances(account)
	if err != nil {
		return View{}, err
	}
	view.Balances = balances

	if account.AccountRS != "" {
		view.AccountRS = account.AccountRS
	}
	if account.Account != "" {
		view.Account = account.Account
	}

	view.PublicKey = account.PublicKey
	if account.PublicKey == "" {
		view.PublicKey = "/"
		if local.PublicKey != "" {
			view.WarningKeys = []string{WarningPublicKeyNotAnnounced, WarningPublicKeyActions}
			view.WarningPublicKey = local.PublicKey
		} else {
			view.WarningKeys = []string{WarningNoPublicKey, WarningPublicKeyActions}
		}
	}

	return view, nil
}

func formatBalances(a *nodeapi.Account) (Balances, error) {
	var b Balances
	for _, f := range []struct {
		dst *string
		nqt string
	}{
		{&b.Balance, a.BalanceNQT},
		{&b.Unconfirmed, a.UnconfirmedBalanceNQT},
		{&b.Guaranteed, a.GuaranteedBalanceNQT},
		{&b.Forged, a.ForgedBalanceNQT},
	} {
		s, err := FormatNQT(f.nqt)
		if err != nil {
			return Balances{}, err
		}
		*f.dst = s + " NXT"
	}

	effective, err := FormatNXT(a.EffectiveBalanceNXT)
	if err != nil {
		return Balances{}, err
	}
	b.Effective = effective + " NXT"
	return b, nil
}

// AccountSource returns the node's account record. *nodeapi.API implements it.
type AccountSource interface {
	GetAccount(ctx context.Context, account string) (*nodeapi.Account, error)
}

// Loader fetches and builds the details view.
type Loader struct {
	source AccountSource
}

// NewLoader creates a Loader.
func NewLoader(source AccountSource) *Loader {
	return &Loader{source: source}
}

// Load fetches the viewer's account and builds the view with tab active.
func (l *Loader) Load(ctx context.Context, local Local, tab string) (View, error) {
	id := local.AccountRS
	if id == "" {
		id = local.Account
	}

	account, err := l.source.GetAccount(ctx, id)
	view, buildErr := Build(account, err, local, tab)
	if buildErr != nil {
		log.Warn().Err(buildErr).Str("account", id).Msg("Account details unavailable")
		return View{}, buildErr
	}
	return view, nil
}
