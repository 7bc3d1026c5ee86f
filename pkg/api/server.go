// Package api utgallery REST API
//
// @title           utgallery REST API
// @version         1.0.0
// @description     REST API for universal template galleries.
// @host            localhost:8080
// @BasePath        /api/v1
//
// @securityDefinitions.apikey ApiKeyAuth
// @in              header
// @name            X-API-Key
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/ssargent/utgallery/pkg/logging"
	"github.com/swaggo/swag"
	"gopkg.in/yaml.v3"
)

const (
	metricsInterval = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

const swaggerHTML = `<!DOCTYPE html>
<html>
<head>
	 <title>utgallery API Documentation</title>
	 <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@3.25.0/swagger-ui.css" />
</head>
<body>
	 <div id="swagger-ui"></div>
	 <script src="https://unpkg.com/swagger-ui-dist@3.25.0/swagger-ui-bundle.js"></script>
	 <script>
	   window.onload = function() {
	     SwaggerUIBundle({
	       url: '/swagger/swagger.json',
	       dom_id: '#swagger-ui',
	       presets: [
	         SwaggerUIBundle.presets.apis,
	         SwaggerUIBundle.presets.standalone
	       ]
	     });
	   };
	 </script>
</body>
</html>`

// Routes builds the router with every endpoint configured
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(logging.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", s.metrics.Handler())

	m := s.metrics
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(m.InstrumentAuthMiddleware(apiKeyMiddleware(s.config.APIKey)))

		r.Get("/health", m.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))
		r.Get("/stats", m.InstrumentHandler("GET", "/api/v1/stats", s.handleStats))

		// Galleries
		r.Get("/galleries", m.InstrumentHandler("GET", "/api/v1/galleries", s.handleListGalleries))
		r.Route("/galleries/{name}", func(r chi.Router) {
			r.Post("/templates", m.InstrumentHandler("POST", "/api/v1/galleries/{name}/templates", s.handleAppendTemplates))
			r.Get("/templates", m.InstrumentHandler("GET", "/api/v1/galleries/{name}/templates", s.handleScanTemplates))
			r.Get("/templates/{imageID}", m.InstrumentHandler("GET", "/api/v1/galleries/{name}/templates/{imageID}", s.handleGetTemplates))
			r.Get("/query", m.InstrumentHandler("GET", "/api/v1/galleries/{name}/query", s.handleQuery))
			r.Get("/stats", m.InstrumentHandler("GET", "/api/v1/galleries/{name}/stats", s.handleGalleryStats))
			r.Get("/verify", m.InstrumentHandler("GET", "/api/v1/galleries/{name}/verify", s.handleVerify))
		})

		// Catalog
		r.Post("/catalog", m.InstrumentHandler("POST", "/api/v1/catalog", s.handleCreateCatalogEntry))
		r.Get("/catalog", m.InstrumentHandler("GET", "/api/v1/catalog", s.handleListCatalog))
		r.Get("/catalog/{id}", m.InstrumentHandler("GET", "/api/v1/catalog/{id}", s.handleGetCatalogEntry))
		r.Delete("/catalog/{id}", m.InstrumentHandler("DELETE", "/api/v1/catalog/{id}", s.handleDeleteCatalogEntry))
		r.Post("/catalog/export/{name}", m.InstrumentHandler("POST", "/api/v1/catalog/export/{name}", s.handleExportCatalog))
	})

	// Swagger documentation (unprotected)
	r.Get("/swagger/*", s.handleSwagger)

	return r
}

func (s *Server) handleSwagger(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/swagger/", "/swagger/index.html":
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))

	case "/swagger/swagger.json":
		doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
		if err != nil {
			s.logger.Error().Err(err).Msg("generate swagger doc")
			http.Error(w, "Failed to generate Swagger documentation", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(doc))

	case "/swagger/swagger.yaml":
		doc, err := swaggerYAML()
		if err != nil {
			s.logger.Error().Err(err).Msg("generate swagger doc")
			http.Error(w, "Failed to generate Swagger documentation", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(doc)

	default:
		http.NotFound(w, r)
	}
}

// swaggerYAML renders the registered document as YAML. JSON is valid YAML,
// so the document is decoded with the YAML parser and re-encoded.
func swaggerYAML() ([]byte, error) {
	doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	if err != nil {
		return nil, err
	}
	var tree interface{}
	if err := yaml.Unmarshal([]byte(doc), &tree); err != nil {
		return nil, err
	}
	return yaml.Marshal(tree)
}

// StartServer serves the API until ctx is cancelled, then shuts down
// gracefully.
func StartServer(ctx context.Context, galleries Galleries, catalog TemplateCatalog, config ServerConfig) error {
	addr := fmt.Sprintf("%s:%d", config.Bind, config.Port)
	SwaggerInfo.Host = fmt.Sprintf("localhost:%d", config.Port)

	reg := config.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	metrics := NewMetrics(reg)
	server := NewServer(galleries, catalog, config, metrics)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Start background metrics updater
	go server.startMetricsUpdater(ctx, metricsInterval)

	errCh := make(chan error, 1)
	go func() {
		server.logger.Info().
			Str("addr", addr).
			Str("metrics", fmt.Sprintf("http://%s/metrics", addr)).
			Msg("starting utgallery REST API server")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	server.logger.Info().Msg("shutting down REST API server")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
