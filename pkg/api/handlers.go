package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"
	"github.com/ssargent/utgallery/pkg/codec"
	"github.com/ssargent/utgallery/pkg/query"
	"github.com/ssargent/utgallery/pkg/store"
)

const (
	defaultMaxBodyBytes = 64 << 20
	defaultScanLimit    = 1000
)

// Server holds the API server state
type Server struct {
	galleries Galleries
	catalog   TemplateCatalog
	config    ServerConfig
	metrics   *Metrics
	codec     *codec.RecordCodec
	logger    zerolog.Logger
}

// NewServer creates a new API server. catalog may be nil, in which case the
// catalog routes answer 503.
func NewServer(galleries Galleries, catalog TemplateCatalog, config ServerConfig, metrics *Metrics) *Server {
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Server{
		galleries: galleries,
		catalog:   catalog,
		config:    config,
		metrics:   metrics,
		codec:     codec.NewRecordCodec(),
		logger:    config.Logger,
	}
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Get the health status of the API
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/health [get]
//	@Security		ApiKeyAuth
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleListGalleries godoc
//
//	@Summary		List galleries
//	@Description	List every gallery file in the data directory
//	@Tags			galleries
//	@Produce		json
//	@Success		200	{object}	APIResponse{data=[]store.GalleryInfo}
//	@Failure		500	{object}	APIResponse
//	@Router			/galleries [get]
//	@Security		ApiKeyAuth
func (s *Server) handleListGalleries(w http.ResponseWriter, r *http.Request) {
	infos, err := s.galleries.List()
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to list galleries: %v", err), http.StatusInternalServerError)
		return
	}
	sendSuccess(w, infos)
}

// handleAppendTemplates godoc
//
//	@Summary		Append templates
//	@Description	Append one or more templates to a gallery, creating it if needed.
//	@Description	The body is either JSON (one TemplateRequest or an array of them)
//	@Description	or application/octet-stream holding concatenated encoded records.
//	@Tags			templates
//	@Accept			json,octet-stream
//	@Produce		json
//	@Param			name	path		string			true	"Gallery name"
//	@Param			body	body		TemplateRequest	true	"Template"
//	@Success		201		{object}	APIResponse{data=AppendResponse}
//	@Failure		400		{object}	APIResponse
//	@Failure		413		{object}	APIResponse
//	@Failure		500		{object}	APIResponse
//	@Router			/galleries/{name}/templates [post]
//	@Security		ApiKeyAuth
func (s *Server) handleAppendTemplates(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	name := chi.URLParam(r, "name")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	if err != nil {
		s.metrics.RecordGalleryOperation("append", false, time.Since(start))
		sendError(w, fmt.Sprintf("Failed to read request body: %v", err), http.StatusRequestEntityTooLarge)
		return
	}

	var records []*codec.Record
	if isBinary(r.Header.Get("Content-Type")) {
		records, err = s.decodeRecords(body)
	} else {
		records, err = decodeTemplateRequests(body)
	}
	if err != nil {
		s.metrics.RecordGalleryOperation("append", false, time.Since(start))
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(records) == 0 {
		s.metrics.RecordGalleryOperation("append", false, time.Since(start))
		sendError(w, "No templates in request body", http.StatusBadRequest)
		return
	}

	gallery, err := s.galleries.GetOrCreate(name)
	if err != nil {
		s.metrics.RecordGalleryOperation("append", false, time.Since(start))
		sendError(w, err.Error(), errorStatus(err))
		return
	}

	entries, err := gallery.AppendAll(records)
	if err != nil {
		s.metrics.RecordGalleryOperation("append", false, time.Since(start))
		sendError(w, fmt.Sprintf("Failed to append templates: %v", err), errorStatus(err))
		return
	}

	s.metrics.RecordGalleryOperation("append", true, time.Since(start))
	sendStatus(w, AppendResponse{Gallery: name, Appended: len(entries), Entries: entries}, http.StatusCreated)
}

func isBinary(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "application/octet-stream")
}

// decodeRecords splits a body of concatenated records. Nothing is returned
// unless every boundary in the body is valid.
func (s *Server) decodeRecords(body []byte) ([]*codec.Record, error) {
	spans, err := codec.Locate(body, 0, int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("malformed record stream: %w", err)
	}
	records := make([]*codec.Record, 0, len(spans))
	for _, span := range spans {
		record, _, err := s.codec.Decode(body, span.Offset)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func decodeTemplateRequests(body []byte) ([]*codec.Record, error) {
	var requests []TemplateRequest
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &requests); err != nil {
			return nil, fmt.Errorf("invalid JSON request: %w", err)
		}
	} else {
		var single TemplateRequest
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return nil, fmt.Errorf("invalid JSON request: %w", err)
		}
		requests = append(requests, single)
	}

	records := make([]*codec.Record, 0, len(requests))
	for i := range requests {
		record, err := requests[i].Record()
		if err != nil {
			return nil, fmt.Errorf("template %d: %w", i, err)
		}
		records = append(records, record)
	}
	return records, nil
}

// handleScanTemplates godoc
//
//	@Summary		Scan templates
//	@Description	Visit the templates of a gallery. Parallel scans return templates in no particular order.
//	@Tags			templates
//	@Produce		json
//	@Param			name		path		string	true	"Gallery name"
//	@Param			parallel	query		bool	false	"Scan with the worker pool"
//	@Param			limit		query		int		false	"Maximum templates to return (0 for all)"
//	@Param			include_fv	query		bool	false	"Include feature vectors"
//	@Success		200			{object}	APIResponse{data=[]TemplateResponse}
//	@Failure		400			{object}	APIResponse
//	@Failure		404			{object}	APIResponse
//	@Failure		409			{object}	APIResponse
//	@Router			/galleries/{name}/templates [get]
//	@Security		ApiKeyAuth
func (s *Server) handleScanTemplates(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	params := r.URL.Query()

	parallel, err := boolParam(params.Get("parallel"), s.config.DefaultParallel)
	if err != nil {
		sendError(w, "Invalid parallel parameter", http.StatusBadRequest)
		return
	}
	withFV, err := boolParam(params.Get("include_fv"), false)
	if err != nil {
		sendError(w, "Invalid include_fv parameter", http.StatusBadRequest)
		return
	}
	limit, err := intParam(params.Get("limit"), defaultScanLimit)
	if err != nil || limit < 0 {
		sendError(w, "Invalid limit parameter", http.StatusBadRequest)
		return
	}

	gallery, err := s.galleries.Get(chi.URLParam(r, "name"))
	if err != nil {
		sendError(w, err.Error(), errorStatus(err))
		return
	}

	var (
		mu        sync.Mutex
		templates = []TemplateResponse{}
	)
	err = gallery.Scan(r.Context(), func(record *codec.Record) error {
		resp := newTemplateResponse(record, withFV)

		mu.Lock()
		defer mu.Unlock()
		if limit > 0 && len(templates) >= limit {
			return codec.ErrStop
		}
		templates = append(templates, resp)
		return nil
	}, parallel)
	s.metrics.RecordScan(parallel, len(templates))
	if err != nil {
		s.metrics.RecordGalleryOperation("scan", false, time.Since(start))
		sendError(w, fmt.Sprintf("Scan failed: %v", err), errorStatus(err))
		return
	}

	s.metrics.RecordGalleryOperation("scan", true, time.Since(start))
	sendSuccess(w, templates)
}

// handleGetTemplates godoc
//
//	@Summary		Get templates by image
//	@Description	Get every template recorded for an image ID
//	@Tags			templates
//	@Produce		json
//	@Param			name	path		string	true	"Gallery name"
//	@Param			imageID	path		string	true	"Image ID (32 hex characters)"
//	@Success		200		{object}	APIResponse{data=[]TemplateResponse}
//	@Failure		400		{object}	APIResponse
//	@Failure		404		{object}	APIResponse
//	@Router			/galleries/{name}/templates/{imageID} [get]
//	@Security		ApiKeyAuth
func (s *Server) handleGetTemplates(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	imageID, err := codec.ParseImageID(chi.URLParam(r, "imageID"))
	if err != nil {
		sendError(w, fmt.Sprintf("Invalid image ID: %v", err), http.StatusBadRequest)
		return
	}

	gallery, err := s.galleries.Get(chi.URLParam(r, "name"))
	if err != nil {
		sendError(w, err.Error(), errorStatus(err))
		return
	}

	records, err := gallery.Get(imageID)
	if err != nil {
		s.metrics.RecordGalleryOperation("get", false, time.Since(start))
		sendError(w, err.Error(), errorStatus(err))
		return
	}

	templates := make([]TemplateResponse, 0, len(records))
	for _, record := range records {
		templates = append(templates, newTemplateResponse(record, true))
	}
	s.metrics.RecordGalleryOperation("get", true, time.Since(start))
	sendSuccess(w, templates)
}

// handleQuery godoc
//
//	@Summary		Query templates
//	@Description	Select templates by a header field condition. Indexed fields
//	@Description	(label, algorithm_id) use the B+tree, others a filtered scan.
//	@Tags			query
//	@Produce		json
//	@Param			name		path		string	true	"Gallery name"
//	@Param			field		query		string	true	"Header field (label, algorithm_id, x, y, width, height, url_size, fv_size)"
//	@Param			op			query		string	false	"Operator (=, !=, >, <, >=, <=)"
//	@Param			value		query		int		true	"Value to compare against"
//	@Param			include_fv	query		bool	false	"Include feature vectors"
//	@Success		200			{object}	APIResponse{data=QueryResponse}
//	@Failure		400			{object}	APIResponse
//	@Failure		404			{object}	APIResponse
//	@Router			/galleries/{name}/query [get]
//	@Security		ApiKeyAuth
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	params := r.URL.Query()

	op := params.Get("op")
	if op == "" {
		op = "="
	}
	q, err := query.ParseFieldQuery(params.Get("field"), op, params.Get("value"))
	if err != nil {
		sendError(w, fmt.Sprintf("Invalid query: %v", err), http.StatusBadRequest)
		return
	}
	withFV, err := boolParam(params.Get("include_fv"), false)
	if err != nil {
		sendError(w, "Invalid include_fv parameter", http.StatusBadRequest)
		return
	}

	gallery, err := s.galleries.Get(chi.URLParam(r, "name"))
	if err != nil {
		sendError(w, err.Error(), errorStatus(err))
		return
	}

	engine := query.NewSimpleQueryEngine(gallery)
	it, err := engine.ExecuteQuery(r.Context(), q)
	if err != nil {
		s.metrics.RecordGalleryOperation("query", false, time.Since(start))
		sendError(w, fmt.Sprintf("Query failed: %v", err), errorStatus(err))
		return
	}
	results, err := query.Collect(it)
	if err != nil {
		s.metrics.RecordGalleryOperation("query", false, time.Since(start))
		sendError(w, fmt.Sprintf("Query failed: %v", err), errorStatus(err))
		return
	}

	templates := make([]TemplateResponse, 0, len(results))
	for _, result := range results {
		resp := newTemplateResponse(result.Record, withFV)
		offset := result.Offset
		resp.Offset = &offset
		templates = append(templates, resp)
	}

	s.metrics.RecordGalleryOperation("query", true, time.Since(start))
	sendSuccess(w, QueryResponse{
		Query:     q.String(),
		Plan:      string(engine.Explain(q)),
		Count:     len(templates),
		Templates: templates,
	})
}

// handleGalleryStats godoc
//
//	@Summary		Gallery statistics
//	@Description	Get index statistics for one gallery
//	@Tags			galleries
//	@Produce		json
//	@Param			name	path		string	true	"Gallery name"
//	@Success		200		{object}	APIResponse{data=store.GalleryStats}
//	@Failure		404		{object}	APIResponse
//	@Router			/galleries/{name}/stats [get]
//	@Security		ApiKeyAuth
func (s *Server) handleGalleryStats(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	gallery, err := s.galleries.Get(name)
	if err != nil {
		sendError(w, err.Error(), errorStatus(err))
		return
	}

	stats := gallery.Stats()
	s.metrics.UpdateGalleryStats(name, stats.Templates, stats.DataSize)
	sendSuccess(w, stats)
}

// handleVerify godoc
//
//	@Summary		Verify a gallery
//	@Description	Walk every record boundary of a gallery file and report the first corruption
//	@Tags			galleries
//	@Produce		json
//	@Param			name	path		string	true	"Gallery name"
//	@Success		200		{object}	APIResponse{data=store.VerifyResult}
//	@Failure		404		{object}	APIResponse
//	@Router			/galleries/{name}/verify [get]
//	@Security		ApiKeyAuth
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	gallery, err := s.galleries.Get(chi.URLParam(r, "name"))
	if err != nil {
		sendError(w, err.Error(), errorStatus(err))
		return
	}

	result, err := gallery.Verify(r.Context())
	if err != nil {
		s.metrics.RecordGalleryOperation("verify", false, time.Since(start))
		sendError(w, fmt.Sprintf("Verify failed: %v", err), errorStatus(err))
		return
	}
	s.metrics.RecordGalleryOperation("verify", !result.Corrupt, time.Since(start))
	sendSuccess(w, result)
}

// handleStats godoc
//
//	@Summary		Service statistics
//	@Description	Summarize every gallery and the catalog
//	@Tags			galleries
//	@Produce		json
//	@Success		200	{object}	APIResponse{data=StatsResponse}
//	@Failure		500	{object}	APIResponse
//	@Router			/stats [get]
//	@Security		ApiKeyAuth
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	infos, err := s.galleries.List()
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to list galleries: %v", err), http.StatusInternalServerError)
		return
	}

	resp := StatsResponse{Galleries: infos, Open: s.updateGalleryMetrics(infos)}
	if s.catalog != nil {
		if resp.Catalog, err = s.catalog.Count(); err != nil {
			sendError(w, fmt.Sprintf("Failed to count catalog: %v", err), http.StatusInternalServerError)
			return
		}
	}
	sendSuccess(w, resp)
}

// updateGalleryMetrics refreshes the gauges of every open gallery and
// returns their stats by name.
func (s *Server) updateGalleryMetrics(infos []store.GalleryInfo) map[string]*store.GalleryStats {
	open := make(map[string]*store.GalleryStats)
	for _, info := range infos {
		if !info.Open {
			continue
		}
		gallery, err := s.galleries.Get(info.Name)
		if err != nil {
			continue
		}
		stats := gallery.Stats()
		s.metrics.UpdateGalleryStats(info.Name, stats.Templates, stats.DataSize)
		open[info.Name] = stats
	}
	return open
}

// startMetricsUpdater periodically updates gallery metrics
func (s *Server) startMetricsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			infos, err := s.galleries.List()
			if err != nil {
				s.logger.Warn().Err(err).Msg("metrics update failed")
				continue
			}
			s.updateGalleryMetrics(infos)
		}
	}
}

// handleCreateCatalogEntry godoc
//
//	@Summary		Catalog a template
//	@Description	Store a template in the catalog until it is exported to a gallery
//	@Tags			catalog
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TemplateRequest	true	"Template"
//	@Success		201		{object}	APIResponse{data=map[string]string}
//	@Failure		400		{object}	APIResponse
//	@Failure		503		{object}	APIResponse
//	@Router			/catalog [post]
//	@Security		ApiKeyAuth
func (s *Server) handleCreateCatalogEntry(w http.ResponseWriter, r *http.Request) {
	if !s.requireCatalog(w) {
		return
	}
	start := time.Now()

	var req TemplateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)).Decode(&req); err != nil {
		sendError(w, "Invalid JSON request", http.StatusBadRequest)
		return
	}
	record, err := req.Record()
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, err := s.catalog.Create(record)
	if err != nil {
		s.metrics.RecordGalleryOperation("catalog_create", false, time.Since(start))
		sendError(w, fmt.Sprintf("Failed to catalog template: %v", err), errorStatus(err))
		return
	}
	s.metrics.RecordGalleryOperation("catalog_create", true, time.Since(start))
	sendStatus(w, map[string]string{"id": id.String()}, http.StatusCreated)
}

// handleListCatalog godoc
//
//	@Summary		List catalog entries
//	@Description	List catalogued templates oldest first
//	@Tags			catalog
//	@Produce		json
//	@Param			limit	query		int	false	"Maximum entries to return (0 for all)"
//	@Success		200		{object}	APIResponse{data=[]CatalogEntryResponse}
//	@Failure		400		{object}	APIResponse
//	@Router			/catalog [get]
//	@Security		ApiKeyAuth
func (s *Server) handleListCatalog(w http.ResponseWriter, r *http.Request) {
	if !s.requireCatalog(w) {
		return
	}
	limit, err := intParam(r.URL.Query().Get("limit"), 0)
	if err != nil || limit < 0 {
		sendError(w, "Invalid limit parameter", http.StatusBadRequest)
		return
	}

	entries, err := s.catalog.List(limit)
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to list catalog: %v", err), errorStatus(err))
		return
	}

	resp := make([]CatalogEntryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, CatalogEntryResponse{
			ID:        entry.ID.String(),
			CreatedAt: entry.CreatedAt(),
			Template:  newTemplateResponse(entry.Record, false),
		})
	}
	sendSuccess(w, resp)
}

// handleGetCatalogEntry godoc
//
//	@Summary		Get a catalog entry
//	@Tags			catalog
//	@Produce		json
//	@Param			id	path		string	true	"Entry ID"
//	@Success		200	{object}	APIResponse{data=TemplateResponse}
//	@Failure		400	{object}	APIResponse
//	@Failure		404	{object}	APIResponse
//	@Router			/catalog/{id} [get]
//	@Security		ApiKeyAuth
func (s *Server) handleGetCatalogEntry(w http.ResponseWriter, r *http.Request) {
	if !s.requireCatalog(w) {
		return
	}
	id, err := ksuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, "Invalid entry ID", http.StatusBadRequest)
		return
	}

	record, err := s.catalog.Read(id)
	if err != nil {
		sendError(w, err.Error(), errorStatus(err))
		return
	}
	resp := newTemplateResponse(record, true)
	resp.ID = id.String()
	sendSuccess(w, resp)
}

// handleDeleteCatalogEntry godoc
//
//	@Summary		Delete a catalog entry
//	@Tags			catalog
//	@Produce		json
//	@Param			id	path		string	true	"Entry ID"
//	@Success		200	{object}	APIResponse{data=map[string]string}
//	@Failure		400	{object}	APIResponse
//	@Router			/catalog/{id} [delete]
//	@Security		ApiKeyAuth
func (s *Server) handleDeleteCatalogEntry(w http.ResponseWriter, r *http.Request) {
	if !s.requireCatalog(w) {
		return
	}
	id, err := ksuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, "Invalid entry ID", http.StatusBadRequest)
		return
	}

	if err := s.catalog.Delete(id); err != nil {
		sendError(w, fmt.Sprintf("Failed to delete entry: %v", err), errorStatus(err))
		return
	}
	sendSuccess(w, map[string]string{"status": "deleted", "id": id.String()})
}

// handleExportCatalog godoc
//
//	@Summary		Export the catalog
//	@Description	Append every catalogued template to a gallery in ID order and
//	@Description	remove them from the catalog
//	@Tags			catalog
//	@Produce		json
//	@Param			name	path		string	true	"Gallery name"
//	@Success		200		{object}	APIResponse{data=storage.ExportResult}
//	@Failure		400		{object}	APIResponse
//	@Failure		500		{object}	APIResponse
//	@Router			/catalog/export/{name} [post]
//	@Security		ApiKeyAuth
func (s *Server) handleExportCatalog(w http.ResponseWriter, r *http.Request) {
	if !s.requireCatalog(w) {
		return
	}
	start := time.Now()

	gallery, err := s.galleries.GetOrCreate(chi.URLParam(r, "name"))
	if err != nil {
		sendError(w, err.Error(), errorStatus(err))
		return
	}

	result, err := s.catalog.Export(r.Context(), func(record *codec.Record) error {
		_, err := gallery.Append(record)
		return err
	})
	if err != nil {
		s.metrics.RecordGalleryOperation("catalog_export", false, time.Since(start))
		sendError(w, fmt.Sprintf("Export failed: %v", err), errorStatus(err))
		return
	}
	s.metrics.RecordGalleryOperation("catalog_export", true, time.Since(start))
	sendSuccess(w, result)
}

func (s *Server) requireCatalog(w http.ResponseWriter) bool {
	if s.catalog == nil {
		sendError(w, "Catalog is not configured", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func boolParam(value string, fallback bool) (bool, error) {
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseBool(value)
}

func intParam(value string, fallback int) (int, error) {
	if value == "" {
		return fallback, nil
	}
	return strconv.Atoi(value)
}
