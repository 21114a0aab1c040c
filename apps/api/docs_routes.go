package main

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-sites/contracts"
)

type docEntry struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

var swaggerUI = template.Must(template.New("docs").Parse(`<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>Palmyra Sites API - Swagger UI</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
    <style>body{margin:0} #swagger-ui{max-width:1400px;margin:0 auto}</style>
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-standalone-preset.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        urls: {{.}},
        dom_id: '#swagger-ui',
        deepLinking: true,
        presets: [SwaggerUIBundle.presets.apis, SwaggerUIStandalonePreset],
        layout: 'StandaloneLayout'
      });
    </script>
  </body>
</html>`))

// registerDocsRoutes serves the Swagger UI and the loaded contract as JSON. Both are rendered once.
func registerDocsRoutes(router chi.Router, spec *openapi3.T, logger *zap.Logger) error {
	doc, err := spec.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal %s contract: %w", contracts.Name, err)
	}

	var page bytes.Buffer
	entries := []docEntry{{Name: contracts.Name, URL: "/openapi/" + contracts.Name + ".json"}}
	if err := swaggerUI.Execute(&page, entries); err != nil {
		return fmt.Errorf("render docs page: %w", err)
	}

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page.Bytes())
	})
	router.Get("/openapi/{name}.json", func(w http.ResponseWriter, r *http.Request) {
		if name := chi.URLParam(r, "name"); name != contracts.Name {
			logger.Debug("unknown openapi document", zap.String("name", name))
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(doc)
	})
	return nil
}
