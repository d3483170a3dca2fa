package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/c360studio/provgraph/export"
	"github.com/c360studio/provgraph/service"
	"github.com/c360studio/provgraph/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status  string         `json:"status"`
	Refresh service.Status `json:"refresh"`
}

// CurrentVersion is the body of GET and PUT /provenance/current.
type CurrentVersion struct {
	Version string `json:"version" validate:"required"`
}

// RefreshResponse is the JSON response for POST /provenance/refresh.
type RefreshResponse struct {
	Status string `json:"status"`
}

// VersionResponse is the JSON response for GET /provenance/versions/{iri}.
type VersionResponse struct {
	export.NodeView
	Generation *export.CommitView `json:"generation,omitempty"`
}

// SnapshotArchive reads and prunes snapshots kept by other passes or
// processes.
type SnapshotArchive interface {
	Load(ctx context.Context, graph string) (*storage.StoredSnapshot, error)
	List(ctx context.Context) ([]*storage.StoredSnapshot, error)
	Delete(ctx context.Context, graph string) error
}

// ArchiveEntry summarizes one stored snapshot.
type ArchiveEntry struct {
	Graph          string    `json:"graph"`
	Pass           string    `json:"pass"`
	CurrentVersion string    `json:"current_version,omitempty"`
	Nodes          int       `json:"nodes"`
	StoredAt       time.Time `json:"stored_at"`
	Revision       uint64    `json:"revision"`
}

type handler struct {
	svc      *service.Service
	exporter *export.Exporter
	archive  SnapshotArchive
	logger   *slog.Logger
}

// health handles GET /health.
func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	st := h.svc.Status()
	resp := HealthResponse{Status: "ok", Refresh: st}
	if st.LastError != "" {
		resp.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}

// getSnapshot handles GET /provenance.
func (h *handler) getSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := h.svc.Session().Latest()
	if snap == nil {
		writeJSONError(w, http.StatusNotFound, "not_ready", "No provenance graph has been built yet")
		return
	}
	writeJSON(w, http.StatusOK, export.NewDocument(snap))
}

// getCommit handles GET /provenance/commits/{iri}. The IRI is path-escaped.
func (h *handler) getCommit(w http.ResponseWriter, r *http.Request) {
	iri, err := url.PathUnescape(chi.URLParam(r, "iri"))
	if err != nil || iri == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_iri", "Commit IRI must be path-escaped")
		return
	}

	snap := h.svc.Session().Latest()
	if snap == nil {
		writeJSONError(w, http.StatusNotFound, "not_ready", "No provenance graph has been built yet")
		return
	}
	rec := snap.Commits.Get(iri)
	if rec == nil {
		writeJSONError(w, http.StatusNotFound, "not_found", "Commit not found: "+iri)
		return
	}
	writeJSON(w, http.StatusOK, export.NewCommitView(rec))
}

// getVersion handles GET /provenance/versions/{iri}. The response carries
// the commit that generated the version, when one is known.
func (h *handler) getVersion(w http.ResponseWriter, r *http.Request) {
	iri, err := url.PathUnescape(chi.URLParam(r, "iri"))
	if err != nil || iri == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_iri", "Version IRI must be path-escaped")
		return
	}

	snap := h.svc.Session().Latest()
	if snap == nil {
		writeJSONError(w, http.StatusNotFound, "not_ready", "No provenance graph has been built yet")
		return
	}
	n := snap.Graph.Node(iri)
	if n == nil {
		writeJSONError(w, http.StatusNotFound, "not_found", "Version not found: "+iri)
		return
	}
	resp := VersionResponse{NodeView: export.NewNodeView(snap, n)}
	if rec := snap.Commits.ByVersion(iri); rec != nil {
		view := export.NewCommitView(rec)
		resp.Generation = &view
	}
	writeJSON(w, http.StatusOK, resp)
}

// getCurrent handles GET /provenance/current.
func (h *handler) getCurrent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CurrentVersion{Version: h.svc.Session().CurrentVersion()})
}

// putCurrent handles PUT /provenance/current. The version must be a node
// of the latest graph.
func (h *handler) putCurrent(w http.ResponseWriter, r *http.Request) {
	var req CurrentVersion
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_json", "Request body must be JSON: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	session := h.svc.Session()
	if session.Latest().Node(req.Version) == nil {
		writeJSONError(w, http.StatusUnprocessableEntity, "unknown_version", "Version is not in the provenance graph: "+req.Version)
		return
	}
	session.Select(req.Version)
	h.logger.Info("Current version selected", "version", req.Version)
	writeJSON(w, http.StatusOK, req)
}

// refresh handles POST /provenance/refresh.
func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	// The pass outlives the request.
	h.svc.RefreshAsync(context.WithoutCancel(r.Context()), "api")
	writeJSON(w, http.StatusAccepted, RefreshResponse{Status: "refreshing"})
}

// exportSnapshot handles GET /provenance/export?format=&profile=.
func (h *handler) exportSnapshot(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := q.Get("format")
	if name == "" {
		name = string(export.FormatTurtle)
	}
	format, err := export.ParseFormat(name)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_format", err.Error())
		return
	}

	exporter := h.exporter
	if p := q.Get("profile"); p != "" {
		profile, err := export.ParseProfile(p)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_profile", err.Error())
			return
		}
		exporter = export.NewExporter(profile)
	}

	out, err := exporter.Export(h.svc.Session().Latest(), format)
	if errors.Is(err, export.ErrNoSnapshot) {
		writeJSONError(w, http.StatusNotFound, "not_ready", "No provenance graph has been built yet")
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "export_failed", err.Error())
		return
	}

	info, _ := export.GetFormatInfo(format)
	w.Header().Set("Content-Type", info.MIMEType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(out)); err != nil {
		h.logger.Debug("Failed to write export", "format", format, "error", err)
	}
}

// listArchive handles GET /snapshots.
func (h *handler) listArchive(w http.ResponseWriter, r *http.Request) {
	stored, err := h.archive.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list snapshots", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	entries := make([]ArchiveEntry, 0, len(stored))
	for _, s := range stored {
		e := ArchiveEntry{Graph: s.Graph, StoredAt: s.StoredAt, Revision: s.Revision}
		if s.Document != nil {
			e.Pass = s.Document.Pass
			e.CurrentVersion = s.Document.CurrentVersion
			e.Nodes = len(s.Document.Nodes)
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Graph < entries[j].Graph })
	writeJSON(w, http.StatusOK, entries)
}

// getArchived handles GET /snapshots/{graph}. The graph IRI is path-escaped.
func (h *handler) getArchived(w http.ResponseWriter, r *http.Request) {
	graph, ok := h.archivedGraph(w, r)
	if !ok {
		return
	}
	stored, err := h.archive.Load(r.Context(), graph)
	if err != nil {
		h.archiveError(w, graph, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

// deleteArchived handles DELETE /snapshots/{graph}.
func (h *handler) deleteArchived(w http.ResponseWriter, r *http.Request) {
	graph, ok := h.archivedGraph(w, r)
	if !ok {
		return
	}
	if err := h.archive.Delete(r.Context(), graph); err != nil {
		h.archiveError(w, graph, err)
		return
	}
	h.logger.Info("Stored snapshot deleted", "graph", graph)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) archivedGraph(w http.ResponseWriter, r *http.Request) (string, bool) {
	graph, err := url.PathUnescape(chi.URLParam(r, "graph"))
	if err != nil || graph == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_iri", "Graph IRI must be path-escaped")
		return "", false
	}
	return graph, true
}

func (h *handler) archiveError(w http.ResponseWriter, graph string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "not_found", "No stored snapshot for graph: "+graph)
		return
	}
	h.logger.Error("Snapshot storage failed", "graph", graph, "error", err)
	writeJSONError(w, http.StatusInternalServerError, "storage_error", err.Error())
}
