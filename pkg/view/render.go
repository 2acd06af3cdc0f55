package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/Sternrassler/nrs-views/pkg/accountdetails"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer executes the embedded view templates.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// RenderProperties writes the properties table.
func (r *Renderer) RenderProperties(w io.Writer, page PropertiesPage) error {
	return r.execute(w, "properties", page)
}

// RenderSetPropertyModal writes the prefilled set-property form.
func (r *Renderer) RenderSetPropertyModal(w io.Writer, form SetPropertyForm) error {
	return r.execute(w, "set_property_modal", form)
}

// RenderDeletePropertyModal writes the prefilled delete-property form.
func (r *Renderer) RenderDeletePropertyModal(w io.Writer, form DeletePropertyForm) error {
	return r.execute(w, "delete_property_modal", form)
}

// RenderAccountDetails writes the account details modal.
func (r *Renderer) RenderAccountDetails(w io.Writer, details accountdetails.View) error {
	return r.execute(w, "account_details", details)
}

func (r *Renderer) execute(w io.Writer, name string, data any) error {
	if err := r.tmpl.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	return nil
}
