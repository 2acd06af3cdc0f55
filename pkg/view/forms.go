package view

import (
	"strings"

	"github.com/Sternrassler/nrs-views/pkg/properties"
)

// SetPropertyForm is the prefilled "set account property" modal.
type SetPropertyForm struct {
	Recipient string
	Property  string
	Value     string

	// RecipientReadOnly also disables the recipient selector button.
	RecipientReadOnly bool
	PropertyReadOnly  bool
}

// PrefillSetProperty builds the set modal from an invoking action. A given
// recipient or property is locked; the value is only taken together with
// a property.
func PrefillSetProperty(recipient, property, value string) SetPropertyForm {
	form := SetPropertyForm{}
	if recipient != "" {
		form.Recipient = recipient
		form.RecipientReadOnly = true
	}
	if property != "" {
		form.Property = property
		form.PropertyReadOnly = true
		form.Value = value
	}
	return form
}

// PrefillFromIntent builds the set modal from an update intent.
func PrefillFromIntent(intent properties.ActionIntent) SetPropertyForm {
	return PrefillSetProperty(intent.Recipient, intent.Property, intent.Value)
}

// DeletePropertyForm is the prefilled "delete account property" modal.
type DeletePropertyForm struct {
	Setter    string
	Recipient string
	Property  string
}

// PrefillDeleteProperty copies the invoking action's fields.
func PrefillDeleteProperty(setter, recipient, property string) DeletePropertyForm {
	return DeletePropertyForm{Setter: setter, Recipient: recipient, Property: property}
}

// SetPropertyRequest is a submitted set-property form.
type SetPropertyRequest struct {
	Recipient string `json:"recipient"`
	Property  string `json:"property"`
	Value     string `json:"value"`
}

// NormalizeSetProperty clears the recipient when it is the viewer's own
// account; the node then sets the property on the sender.
func NormalizeSetProperty(req SetPropertyRequest, viewer properties.Viewer) SetPropertyRequest {
	req.Recipient = strings.TrimSpace(req.Recipient)
	if viewer.Is(req.Recipient, req.Recipient) {
		req.Recipient = ""
	}
	return req
}
