package properties

import (
	"fmt"
	"html"
	"html/template"
	"strings"

	"github.com/Sternrassler/nrs-views/pkg/nodeapi"
)

// Direction selects which side of a property the viewer is on.
type Direction string

const (
	// Incoming lists properties other accounts set on the viewer.
	Incoming Direction = "incoming"

	// Outgoing lists properties the viewer set on other accounts.
	Outgoing Direction = "outgoing"
)

// ParseDirection parses "incoming" or "outgoing". The empty string means outgoing.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Incoming:
		return Incoming, nil
	case Outgoing, "":
		return Outgoing, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
}

// FilterField is the node parameter holding the viewer's account.
func (d Direction) FilterField() string {
	if d == Incoming {
		return "recipient"
	}
	return "setter"
}

// HeaderLabel is the counterparty column header.
func HeaderLabel(d Direction) string {
	if d == Incoming {
		return "setter"
	}
	return "recipient"
}

// Viewer is the account whose properties are shown.
type Viewer struct {
	Account   string
	AccountRS string
}

// Is reports whether the numeric id or RS address belongs to the viewer.
func (v Viewer) Is(account, accountRS string) bool {
	return (accountRS != "" && accountRS == v.AccountRS) ||
		(account != "" && account == v.Account)
}

// Identifier prefers the RS address.
func (v Viewer) Identifier() string {
	if v.AccountRS != "" {
		return v.AccountRS
	}
	return v.Account
}

// AccountLink is a counterparty link opening the account modal.
type AccountLink struct {
	Account   string
	AccountRS string
	IsSelf    bool
}

// Label is "You" for the viewer, otherwise the RS address or numeric id.
func (l AccountLink) Label() string {
	if l.IsSelf {
		return "You"
	}
	if l.AccountRS != "" {
		return l.AccountRS
	}
	return l.Account
}

// User is the data-user attribute value.
func (l AccountLink) User() string {
	if l.AccountRS != "" {
		return l.AccountRS
	}
	return l.Account
}

// HTML renders the anchor with every value escaped.
func (l AccountLink) HTML() template.HTML {
	return template.HTML(fmt.Sprintf(
		`<a href="#" data-user="%s" class="show_account_modal_action user-info">%s</a>`,
		html.EscapeString(l.User()), html.EscapeString(l.Label())))
}

// ActionKind is the kind of row action.
type ActionKind string

const (
	ActionUpdate ActionKind = "update"
	ActionDelete ActionKind = "delete"
)

// Modal ids the actions open.
const (
	ModalSetProperty    = "set_account_property_modal"
	ModalDeleteProperty = "delete_account_property_modal"
)

// ActionIntent describes a row action and the modal prefill it carries.
// Fields hold raw values; templates escape them in attributes.
type ActionIntent struct {
	Kind      ActionKind `json:"kind"`
	Modal     string     `json:"modal"`
	Setter    string     `json:"setter,omitempty"`
	Recipient string     `json:"recipient,omitempty"`
	Property  string     `json:"property"`
	Value     string     `json:"value,omitempty"`
}

// PropertyViewModel is one rendered table row.
type PropertyViewModel struct {
	Account  AccountLink
	Property template.HTML
	Value    template.HTML

	// Record is the unescaped node row the model was built from.
	Record nodeapi.PropertyRecord

	// Update is nil for incoming rows.
	Update *ActionIntent
	Delete ActionIntent
}

// Page is one fetched and projected page.
type Page struct {
	Direction  Direction
	PageNumber int
	PerPage    int
	Items      []PropertyViewModel
	HasMore    bool
}

// IsEmpty reports whether the page has no rows.
func (p Page) IsEmpty() bool {
	return len(p.Items) == 0
}

// Header is the counterparty column header for the page.
func (p Page) Header() string {
	return HeaderLabel(p.Direction)
}
