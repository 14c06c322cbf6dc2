package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/matsen/atlas/internal/graph"
	"github.com/matsen/atlas/internal/interchange"
	"github.com/matsen/atlas/internal/selection"
	"github.com/matsen/atlas/internal/viz"
)

// maxImportBytes bounds the body accepted by POST /api/import.
const maxImportBytes = 16 << 20

var validate = validator.New()

// CreateNodeRequest is the body of POST /api/nodes.
type CreateNodeRequest struct {
	Name        string `json:"name" validate:"required"`
	Type        string `json:"type" validate:"required"`
	Level       int    `json:"level" validate:"min=0"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
}

// UpdateNodeRequest is the body of PUT /api/nodes/{name}. An empty Name keeps
// the current one; any other value renames the node.
type UpdateNodeRequest struct {
	Name        string `json:"name,omitempty"`
	Type        string `json:"type" validate:"required"`
	Level       int    `json:"level" validate:"min=0"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
}

// EdgeRequest is the body of POST /api/edges and PUT /api/edges/{key}.
type EdgeRequest struct {
	Source       string `json:"source" validate:"required"`
	Target       string `json:"target" validate:"required"`
	Relationship string `json:"relationship,omitempty"`
}

// SceneResponse is returned by GET /api/scene.
type SceneResponse struct {
	Elements viz.CytoscapeElements `json:"elements"`
	State    selection.Summary     `json:"state"`
	Levels   []int                 `json:"levels"`
	Types    []string              `json:"edge_types"`
}

// ToggleResponse reports the state of a toggled item.
type ToggleResponse struct {
	Item     string `json:"item"`
	Selected bool   `json:"selected"`
}

// ErrorResponse is the JSON body of every error.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	page, err := s.sess.HTML(s.html)
	s.mu.Unlock()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, page)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scene, res := s.sess.Render()
	s.metrics.VisibleNodes.Set(float64(len(res.Nodes)))
	s.respondJSON(w, http.StatusOK, SceneResponse{
		Elements: scene.Elements(),
		State:    s.sess.Selection.Summary(),
		Levels:   s.sess.Graph.Levels(),
		Types:    s.sess.Graph.Relationships(),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.respondJSON(w, http.StatusOK, s.sess.Selection.Summary())
}

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.respondJSON(w, http.StatusOK, s.sess.Graph.Nodes())
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "name")

	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.sess.Graph.NodeInfo(name)
	if !ok {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("%v: %q", graph.ErrNodeNotFound, name))
		return
	}
	s.respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleCreateNode(w http.ResponseWriter, r *http.Request) {
	var req CreateNodeRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	t, err := graph.ParseNodeType(req.Type)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := strings.TrimSpace(req.Name)
	if err := s.sess.AddNode(name, t, req.Level, req.URL, req.Description); err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.metrics.NodesCreated.Inc()
	s.observeGraph()

	n, _ := s.sess.Graph.Node(name)
	s.respondJSON(w, http.StatusCreated, n)
}

func (s *Server) handleUpdateNode(w http.ResponseWriter, r *http.Request) {
	old := urlParam(r, "name")
	var req UpdateNodeRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	t, err := graph.ParseNodeType(req.Type)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	newName := strings.TrimSpace(req.Name)
	if newName == "" {
		newName = old
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sess.EditNode(old, newName, t, req.Level, req.URL, req.Description); err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.observeGraph()

	n, _ := s.sess.Graph.Node(newName)
	s.respondJSON(w, http.StatusOK, n)
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "name")

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.sess.DeleteNode(name) {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("%v: %q", graph.ErrNodeNotFound, name))
		return
	}
	s.metrics.NodesDeleted.Inc()
	s.observeGraph()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListEdges(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.respondJSON(w, http.StatusOK, s.sess.Graph.Edges())
}

func (s *Server) handleCreateEdge(w http.ResponseWriter, r *http.Request) {
	var req EdgeRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key, err := s.sess.AddEdge(req.Source, req.Target, req.Relationship)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.metrics.EdgesCreated.Inc()
	s.observeGraph()

	e, _ := s.sess.Graph.Edge(key)
	s.respondJSON(w, http.StatusCreated, e)
}

func (s *Server) handleUpdateEdge(w http.ResponseWriter, r *http.Request) {
	key := urlParam(r, "key")
	var req EdgeRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sess.EditEdge(key, req.Source, req.Target, req.Relationship); err != nil {
		s.respondDomainError(w, err)
		return
	}
	e, _ := s.sess.Graph.Edge(key)
	s.respondJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteEdgePair(w http.ResponseWriter, r *http.Request) {
	source, target, ok := s.pairQuery(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.sess.DeleteEdge(source, target)
	if n == 0 {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("%v: %s -> %s", graph.ErrEdgeNotFound, source, target))
		return
	}
	s.metrics.EdgesDeleted.Add(float64(n))
	s.observeGraph()
	s.respondJSON(w, http.StatusOK, map[string]int{"removed": n})
}

func (s *Server) handleDeleteEdgeKey(w http.ResponseWriter, r *http.Request) {
	key := urlParam(r, "key")

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.sess.DeleteEdgeByKey(key) {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("%v: %q", graph.ErrEdgeNotFound, key))
		return
	}
	s.metrics.EdgesDeleted.Inc()
	s.observeGraph()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleLevel(w http.ResponseWriter, r *http.Request) {
	raw := urlParam(r, "level")
	level, err := strconv.Atoi(raw)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid level %q: must be an integer", raw))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	on, err := s.sess.ToggleLevel(level)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, ToggleResponse{Item: raw, Selected: on})
}

func (s *Server) handleToggleEdgeType(w http.ResponseWriter, r *http.Request) {
	rel := urlParam(r, "type")

	s.mu.Lock()
	defer s.mu.Unlock()

	on := s.sess.ToggleEdgeType(rel)
	s.respondJSON(w, http.StatusOK, ToggleResponse{Item: rel, Selected: on})
}

func (s *Server) handleToggleNode(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "name")

	s.mu.Lock()
	defer s.mu.Unlock()

	on, err := s.sess.ToggleNode(name)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, ToggleResponse{Item: name, Selected: on})
}

func (s *Server) handleToggleEdge(w http.ResponseWriter, r *http.Request) {
	source, target, ok := s.pairQuery(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	on, err := s.sess.ToggleEdge(source, target)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	item := graph.Pair{Source: source, Target: target}.String()
	s.respondJSON(w, http.StatusOK, ToggleResponse{Item: item, Selected: on})
}

func (s *Server) handleShowAllLevels(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess.Selection.ShowAllLevels()
	s.respondJSON(w, http.StatusOK, s.sess.Selection.Summary())
}

func (s *Server) handleShowAllEdgeTypes(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess.Selection.ShowAllEdgeTypes()
	s.respondJSON(w, http.StatusOK, s.sess.Selection.Summary())
}

func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess.Selection.ClearSelection()
	s.respondJSON(w, http.StatusOK, s.sess.Selection.Summary())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	data, err := interchange.Export(s.sess.Graph)
	s.mu.Unlock()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="graph.json"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// handleImport replaces the graph with the posted document, or merges it in
// when ?merge=true.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	merge := r.URL.Query().Get("merge") == "true"
	mode := "replace"
	if merge {
		mode = "merge"
	}

	g, report, err := interchange.Import(data, interchange.WithLogger(s.logger))
	if err != nil {
		s.metrics.Imports.WithLabelValues(mode, "error").Inc()
		s.respondDomainError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if merge {
		merged := s.sess.MergeGraph(g)
		merged.IncludeRejected(report)
		report = merged
	} else {
		s.sess.ReplaceGraph(g)
	}
	s.metrics.Imports.WithLabelValues(mode, "ok").Inc()
	s.observeGraph()
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.save(s.sess.Graph); err != nil {
		s.logger.Error("save failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status": "saved",
		"nodes":  s.sess.Graph.NodeCount(),
		"edges":  s.sess.Graph.EdgeCount(),
	})
}

// pairQuery reads the source and target query parameters.
func (s *Server) pairQuery(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	q := r.URL.Query()
	source, target := q.Get("source"), q.Get("target")
	if source == "" || target == "" {
		s.respondError(w, http.StatusBadRequest, "source and target query parameters are required")
		return "", "", false
	}
	return source, target, true
}

func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	if err := validateStruct(dst); err != nil {
		s.respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return false
	}
	return true
}

// urlParam returns a path parameter with percent-escapes decoded. chi matches
// on RawPath when the request has one, leaving escapes in place.
func urlParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v
	}
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, graph.ErrNodeNotFound), errors.Is(err, graph.ErrEdgeNotFound):
		return http.StatusNotFound
	case errors.Is(err, graph.ErrDuplicateNode):
		return http.StatusConflict
	case errors.Is(err, graph.ErrEmptyName),
		errors.Is(err, graph.ErrNegativeLevel),
		errors.Is(err, graph.ErrUnknownNodeType),
		errors.Is(err, interchange.ErrMalformedJSON),
		errors.Is(err, interchange.ErrNoValidNodes):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondDomainError(w http.ResponseWriter, err error) {
	s.respondError(w, statusFor(err), err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Int("status", status), zap.String("error", message))
	}
	s.respondJSON(w, status, ErrorResponse{Error: message})
}

// validateStruct runs tag validation and joins readable field messages.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", field, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
