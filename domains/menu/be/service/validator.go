package service

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed menu_patch.schema.json
var patchSchema []byte

const patchSchemaURL = "memory://schemas/menu/patch"

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func patchValidator() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(patchSchemaURL, bytes.NewReader(patchSchema)); err != nil {
			compileErr = fmt.Errorf("register menu schema: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile(patchSchemaURL)
		if compileErr != nil {
			compileErr = fmt.Errorf("compile menu schema: %w", compileErr)
		}
	})
	return compiled, compileErr
}

// ValidatePatch checks a raw PATCH body against the menu patch schema.
func ValidatePatch(payload []byte) error {
	if len(bytes.TrimSpace(payload)) == 0 {
		return &ValidationError{Reason: "payload is required"}
	}

	schema, err := patchValidator()
	if err != nil {
		return err
	}

	var document any
	if err := json.Unmarshal(payload, &document); err != nil {
		return &ValidationError{Reason: fmt.Sprintf("decode payload: %v", err)}
	}
	if err := schema.Validate(document); err != nil {
		return &ValidationError{Reason: err.Error()}
	}
	return nil
}
