package web

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/promptforge/promptforge/internal/config"
	"github.com/promptforge/promptforge/internal/errors"
	"github.com/promptforge/promptforge/internal/llm"
	"github.com/promptforge/promptforge/internal/ops"
	"github.com/promptforge/promptforge/internal/prompt"
)

// Handlers contains HTTP route handlers for the dashboard.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	factory  llm.Factory
	baseDir  string
	renderer *Renderer
}

// HandleList handles GET /templates — the template library page.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")

	result, err := ops.List(h.db, ops.ListInput{Category: category})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "list", ListPageData{
		PageData: PageData{
			Title:   "Templates",
			Version: h.renderer.version,
			Nav:     "templates",
		},
		Items:      result.Items,
		Category:   category,
		Categories: h.cfg.AllCategories(prompt.DefaultCategories),
	})
}

// HandleDetail handles GET /templates/{id} — view a single template.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("template ID is required"))
		return
	}

	t, err := ops.Get(h.db, ops.GetInput{ID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "detail", DetailPageData{
		PageData: PageData{
			Title:   t.Name,
			Version: h.renderer.version,
			Nav:     "templates",
		},
		Template:     t,
		RenderedHTML: renderMarkdown(t.Body),
	})
}

// HandleStatsPage handles GET /stats — the library statistics page.
func (h *Handlers) HandleStatsPage(w http.ResponseWriter, r *http.Request) {
	stats, err := ops.Stats(h.db)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "stats", StatsPageData{
		PageData: PageData{
			Title:   "Statistics",
			Version: h.renderer.version,
			Nav:     "stats",
		},
		Stats: &stats.LibraryStats,
	})
}

// generateRequest is the JSON body for POST /api/generate.
type generateRequest struct {
	Purpose      string         `json:"purpose"`
	Context      map[string]any `json:"context,omitempty"`
	Category     string         `json:"category,omitempty"`
	AutoOptimize bool           `json:"auto_optimize,omitempty"`
}

// HandleGenerate handles POST /api/generate.
func (h *Handlers) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	inv, err := h.factory.Provider(h.cfg.GeneratorProvider)
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest(err.Error()))
		return
	}

	result, err := ops.Generate(r.Context(), h.db, h.cfg, inv, ops.GenerateInput{
		Purpose:      req.Purpose,
		Context:      req.Context,
		Category:     req.Category,
		AutoOptimize: req.AutoOptimize,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	renderJSON(w, http.StatusOK, result)
}

// optimizeRequest is the JSON body for POST /api/optimize.
type optimizeRequest struct {
	Body       string `json:"body,omitempty"`
	Purpose    string `json:"purpose"`
	TemplateID string `json:"template_id,omitempty"`
}

// HandleOptimize handles POST /api/optimize.
func (h *Handlers) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	inv, err := h.factory.Provider(h.cfg.GeneratorProvider)
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest(err.Error()))
		return
	}

	result, err := ops.Optimize(r.Context(), h.db, h.cfg, inv, ops.OptimizeInput{
		Body:       req.Body,
		Purpose:    req.Purpose,
		TemplateID: req.TemplateID,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	renderJSON(w, http.StatusOK, result)
}

// testRequest is the JSON body for POST /api/test.
type testRequest struct {
	TemplateID string            `json:"template_id,omitempty"`
	Body       string            `json:"body,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
	Providers  []string          `json:"providers,omitempty"`
}

// HandleTest handles POST /api/test.
func (h *Handlers) HandleTest(w http.ResponseWriter, r *http.Request) {
	var req testRequest
	if err := decodeJSON(r, &req); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	result, err := ops.TestRun(r.Context(), h.db, h.cfg, h.factory, ops.TestInput{
		TemplateID: req.TemplateID,
		Body:       req.Body,
		Data:       req.Data,
		Providers:  req.Providers,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	renderJSON(w, http.StatusOK, result)
}

// learnRequest is the JSON body for POST /api/learn.
type learnRequest struct {
	TemplateID   string   `json:"template_id"`
	Success      bool     `json:"success"`
	QualityScore *float64 `json:"quality_score,omitempty"`
}

// HandleLearn handles POST /api/learn.
func (h *Handlers) HandleLearn(w http.ResponseWriter, r *http.Request) {
	var req learnRequest
	if err := decodeJSON(r, &req); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	result, err := ops.Learn(h.db, ops.LearnInput{
		TemplateID:   req.TemplateID,
		Success:      req.Success,
		QualityScore: req.QualityScore,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	renderJSON(w, http.StatusOK, result)
}

// HandleTemplates handles GET /api/templates.
func (h *Handlers) HandleTemplates(w http.ResponseWriter, r *http.Request) {
	result, err := ops.List(h.db, ops.ListInput{
		Category: r.URL.Query().Get("category"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	renderJSON(w, http.StatusOK, result)
}

// HandleStats handles GET /api/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := ops.Stats(h.db)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	renderJSON(w, http.StatusOK, stats)
}

// HandleExport handles GET /api/export.
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Export(h.db, ops.ExportInput{
		BaseDir:  h.baseDir,
		Category: r.URL.Query().Get("category"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	renderJSON(w, http.StatusOK, result)
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.NewInvalidRequest("invalid JSON body: " + err.Error())
	}
	return nil
}
