// Package contracts embeds the public OpenAPI document served by apps/api.
package contracts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed api.yaml
var apiYAML []byte

// Name is the document name used by the docs routes.
const Name = "sites"

// Load parses and validates the embedded contract. Each call returns a fresh document.
func Load(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	doc, err := loader.LoadFromData(apiYAML)
	if err != nil {
		return nil, fmt.Errorf("load openapi contract: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi contract: %w", err)
	}
	return doc, nil
}
