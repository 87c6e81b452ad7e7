// Package mailing renders email bodies from embedded Liquid templates and
// builds the links placed in them.
package mailing

import (
	"embed"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"sync"

	"github.com/ignite/email-delivery/internal/domain"
	"github.com/osteele/liquid"
)

//go:embed templates/*.liquid
var templateFS embed.FS

// ErrUnknownTemplate is returned by Render for a template id with no source.
var ErrUnknownTemplate = fmt.Errorf("%w: unknown template", domain.ErrValidation)

// Renderer renders templates by id with a parse cache. It is safe for
// concurrent use.
type Renderer struct {
	engine  *liquid.Engine
	sources map[string]string
	cache   sync.Map // map[string]*liquid.Template
}

// NewRenderer loads the embedded templates.
func NewRenderer() (*Renderer, error) {
	return NewRendererFS(templateFS, "templates")
}

// NewRendererFS loads every *.liquid file under dir in fsys. The template id
// is the file name without extension.
func NewRendererFS(fsys fs.FS, dir string) (*Renderer, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}
	r := &Renderer{engine: liquid.NewEngine(), sources: make(map[string]string)}
	r.registerFilters()
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".liquid") {
			continue
		}
		b, err := fs.ReadFile(fsys, dir+"/"+name)
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", name, err)
		}
		r.sources[strings.TrimSuffix(name, ".liquid")] = string(b)
	}
	return r, nil
}

// Has reports whether a template id is known.
func (r *Renderer) Has(templateID string) bool {
	_, ok := r.sources[templateID]
	return ok
}

// Render renders templateID with data.
func (r *Renderer) Render(templateID string, data map[string]any) (string, error) {
	tpl, err := r.template(templateID)
	if err != nil {
		return "", err
	}
	out, serr := tpl.RenderString(liquid.Bindings(data))
	if serr != nil {
		return "", fmt.Errorf("render %s: %w", templateID, serr)
	}
	return out, nil
}

func (r *Renderer) template(id string) (*liquid.Template, error) {
	if cached, ok := r.cache.Load(id); ok {
		return cached.(*liquid.Template), nil
	}
	src, ok := r.sources[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, id)
	}
	tpl, serr := r.engine.ParseString(src)
	if serr != nil {
		return nil, fmt.Errorf("parse %s: %w", id, serr)
	}
	r.cache.Store(id, tpl)
	return tpl, nil
}

func (r *Renderer) registerFilters() {
	// {{ first_name | default: "Friend" }}
	r.engine.RegisterFilter("default", func(value any, fallback any) any {
		if value == nil {
			return fallback
		}
		if s, ok := value.(string); ok && s == "" {
			return fallback
		}
		return value
	})

	// {{ total | currency }}
	r.engine.RegisterFilter("currency", func(value any) string {
		var f float64
		switch v := value.(type) {
		case float64:
			f = v
		case float32:
			f = float64(v)
		case int:
			f = float64(v)
		case int64:
			f = float64(v)
		case string:
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return v
			}
			f = parsed
		default:
			return fmt.Sprintf("%v", value)
		}
		return fmt.Sprintf("$%.2f", f)
	})
}
