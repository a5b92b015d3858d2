package handlers

import (
	"html/template"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/similis/internal/common"
	"github.com/ternarybob/similis/internal/pages"
)

// PageHandler serves the embedded dashboard.
type PageHandler struct {
	logger    arbor.ILogger
	templates *template.Template
}

// NewPageHandler creates a new PageHandler
func NewPageHandler(logger arbor.ILogger) (*PageHandler, error) {
	templates, err := pages.Templates()
	if err != nil {
		return nil, err
	}
	return &PageHandler{
		logger:    logger,
		templates: templates,
	}, nil
}

// IndexHandler handles GET /
func (h *PageHandler) IndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	data := map[string]interface{}{
		"Version": common.Version,
	}
	if err := h.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		h.logger.Error().
			Err(err).
			Str("template", "index.html").
			Msg("Failed to render page")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
