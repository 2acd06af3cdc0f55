// Package view holds the properties view controller, the modal form models
// and the HTML renderer for the wallet views.
//
// Controller keeps page number, has-more flag and direction as fields
// instead of process globals. Every Load takes a generation number; a
// response that arrives after a newer Load started is dropped with
// ErrStaleRender so it cannot overwrite the newer state.
package view
