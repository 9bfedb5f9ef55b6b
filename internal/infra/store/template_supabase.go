package store

import (
	"context"
	"encoding/json"
	"fmt"

	supa "github.com/supabase-community/supabase-go"

	"github.com/FrancoVillarLaz/notifications-service/internal/domain/template"
)

const (
	templatesTable = "notification_templates"
	layoutsTable   = "notification_layouts"
)

var _ template.Store = (*SupabaseTemplateStore)(nil)

// SupabaseTemplateStore implements template.Store using the Supabase Go SDK.
type SupabaseTemplateStore struct {
	client *supa.Client
}

// NewSupabaseTemplateStore creates a new Supabase-backed template store.
func NewSupabaseTemplateStore(supabaseURL, serviceKey string) (*SupabaseTemplateStore, error) {
	client, err := supa.NewClient(supabaseURL, serviceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating supabase client: %w", err)
	}
	return &SupabaseTemplateStore{client: client}, nil
}

// NewSupabaseTemplateStoreWithClient wraps an existing client.
func NewSupabaseTemplateStoreWithClient(client *supa.Client) *SupabaseTemplateStore {
	return &SupabaseTemplateStore{client: client}
}

// templateRow mirrors the notification_templates table.
type templateRow struct {
	ID                string         `json:"id"`
	Code              string         `json:"code"`
	Name              string         `json:"name"`
	Description       string         `json:"description,omitempty"`
	LayoutName        string         `json:"layout_name,omitempty"`
	SubjectTemplate   string         `json:"subject_template"`
	BodyHTMLTemplate  string         `json:"body_html_template,omitempty"`
	BodyTextTemplate  string         `json:"body_text_template,omitempty"`
	RequiredVariables []string       `json:"required_variables,omitempty"`
	DefaultVariables  map[string]any `json:"default_variables,omitempty"`
	SupportedChannels []string       `json:"supported_channels,omitempty"`
	Version           int            `json:"version"`
	Active            bool           `json:"active"`
}

// layoutRow mirrors the notification_layouts table.
type layoutRow struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Description        string `json:"description,omitempty"`
	HeaderHTML         string `json:"header_html,omitempty"`
	FooterHTML         string `json:"footer_html,omitempty"`
	CSSStyles          string `json:"css_styles,omitempty"`
	ContentPlaceholder string `json:"content_placeholder,omitempty"`
	Active             bool   `json:"active"`
}

// FindActiveByCode retrieves the active template for a code.
// Returns nil, nil if no active template exists.
func (s *SupabaseTemplateStore) FindActiveByCode(ctx context.Context, code string) (*template.Template, error) {
	data, _, err := s.client.From(templatesTable).
		Select("*", "exact", false).
		Eq("code", code).
		Eq("active", "true").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("fetching template %s: %w", code, err)
	}

	var rows []templateRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	row := rows[0]
	return &template.Template{
		ID:                row.ID,
		Code:              row.Code,
		Name:              row.Name,
		Description:       row.Description,
		LayoutName:        row.LayoutName,
		SubjectTemplate:   row.SubjectTemplate,
		BodyHTMLTemplate:  row.BodyHTMLTemplate,
		BodyTextTemplate:  row.BodyTextTemplate,
		RequiredVariables: row.RequiredVariables,
		DefaultVariables:  row.DefaultVariables,
		SupportedChannels: row.SupportedChannels,
		Version:           row.Version,
		Active:            row.Active,
	}, nil
}

// FindLayoutByName retrieves an active layout by name.
// Returns nil, nil if no active layout exists.
func (s *SupabaseTemplateStore) FindLayoutByName(ctx context.Context, name string) (*template.Layout, error) {
	data, _, err := s.client.From(layoutsTable).
		Select("*", "exact", false).
		Eq("name", name).
		Eq("active", "true").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("fetching layout %s: %w", name, err)
	}

	var rows []layoutRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parsing layout: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	row := rows[0]
	placeholder := row.ContentPlaceholder
	if placeholder == "" {
		placeholder = template.DefaultContentPlaceholder
	}

	return &template.Layout{
		ID:                 row.ID,
		Name:               row.Name,
		Description:        row.Description,
		HeaderHTML:         row.HeaderHTML,
		FooterHTML:         row.FooterHTML,
		CSSStyles:          row.CSSStyles,
		ContentPlaceholder: placeholder,
		Active:             row.Active,
	}, nil
}
