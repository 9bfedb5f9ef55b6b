package template

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/FrancoVillarLaz/notifications-service/internal/common"
)

// Service is the template rendering pipeline: fetch the active template,
// validate required variables, merge defaults with supplied values, render
// each field, and wrap the HTML body in the template's layout when one is
// referenced. Read-only against the store apart from cache fills.
type Service struct {
	store  Store
	cache  Cache
	locale string
}

// Option configures a Service.
type Option func(*Service)

// WithCache installs a read-through template cache keyed by (code, locale).
func WithCache(cache Cache, locale string) Option {
	return func(s *Service) {
		s.cache = cache
		s.locale = locale
	}
}

// NewService creates a new template rendering service.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Render produces the rendered message for a template code and a supplied
// variable mapping. Fails with TemplateNotFoundError for unknown or inactive
// codes, and with TemplateRenderError naming the missing set when required
// variables are absent — before any rendering work.
func (s *Service) Render(ctx context.Context, code string, vars map[string]any) (*RenderedMessage, error) {
	tmpl, err := s.lookup(ctx, code)
	if err != nil {
		return nil, err
	}

	if missing := tmpl.MissingVariables(vars); len(missing) > 0 {
		return nil, common.NewTemplateRenderError(
			fmt.Sprintf("cannot render template '%s'", code), missing)
	}

	// Merge variables: defaults first, supplied values win on collision.
	merged := make(map[string]any, len(tmpl.DefaultVariables)+len(vars))
	for k, v := range tmpl.DefaultVariables {
		merged[k] = v
	}
	for k, v := range vars {
		merged[k] = v
	}

	subject := Render(tmpl.SubjectTemplate, merged)
	textBody := Render(tmpl.BodyTextTemplate, merged)
	htmlBody := Render(tmpl.BodyHTMLTemplate, merged)

	if tmpl.LayoutName != "" {
		layout, err := s.store.FindLayoutByName(ctx, tmpl.LayoutName)
		if err != nil {
			return nil, common.NewPersistenceError("layout lookup", err)
		}
		if layout == nil {
			slog.Warn("template references unknown layout, rendering without shell",
				"template", code,
				"layout", tmpl.LayoutName,
			)
		} else {
			htmlBody = layout.Render(htmlBody)
		}
	}

	slog.Debug("template rendered", "template", code, "variables", len(merged))

	return &RenderedMessage{
		Subject:  subject,
		HTMLBody: htmlBody,
		TextBody: textBody,
	}, nil
}

// Template retrieves the active template for a code, for inspection.
func (s *Service) Template(ctx context.Context, code string) (*Template, error) {
	return s.lookup(ctx, code)
}

// lookup resolves a template through the cache when one is configured.
func (s *Service) lookup(ctx context.Context, code string) (*Template, error) {
	if s.cache != nil {
		if tmpl, ok := s.cache.Get(ctx, code, s.locale); ok {
			return tmpl, nil
		}
	}

	tmpl, err := s.store.FindActiveByCode(ctx, code)
	if err != nil {
		return nil, common.NewPersistenceError("template lookup", err)
	}
	if tmpl == nil {
		return nil, common.NewTemplateNotFoundError(code)
	}

	if s.cache != nil {
		s.cache.Set(ctx, code, s.locale, tmpl)
	}

	return tmpl, nil
}
