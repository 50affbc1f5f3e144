package forum

import (
	"context"
	"errors"

	"github.com/mithrel/craftforum/internal/cache"
	"github.com/mithrel/craftforum/internal/render"
	"github.com/mithrel/craftforum/pkg/api"
)

const (
	modeMarkdown  = "markdown"
	modeSanitized = "markdown+sanitized"
	modePlain     = "plain"
)

// RenderContent returns display HTML for content. Results are cached by
// content hash under a mode naming how the HTML was produced.
func (s *Service) RenderContent(ctx context.Context, content string, markdown bool) string {
	mode := modePlain
	if markdown {
		mode = modeMarkdown
		if s.opts.Sanitize {
			mode = modeSanitized
		}
	}
	key := cache.RenderKey(mode, api.ContentHash(mode, content))
	if html, err := s.cache.Get(ctx, key); err == nil {
		return html
	} else if !errors.Is(err, cache.ErrMiss) {
		s.log.Warnf("render cache get %s: %v", key, err)
	}

	html := s.renderUncached(content, markdown)
	if err := s.cache.Set(ctx, key, html, s.opts.CacheTTL); err != nil {
		s.log.Warnf("render cache set %s: %v", key, err)
	}
	return html
}

func (s *Service) renderUncached(content string, markdown bool) string {
	if !markdown {
		return render.Plain(content)
	}
	html := render.Markdown(content)
	if s.opts.Sanitize {
		html = render.Sanitize(html)
	}
	return html
}

// Preview renders markdown the way a post body would be shown.
func (s *Service) Preview(ctx context.Context, content string) string {
	return s.RenderContent(ctx, content, true)
}

// StripContent returns the plain-text form of markdown content.
func (s *Service) StripContent(content string) string { return render.Strip(content) }
