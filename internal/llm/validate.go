package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	schemasOnce    sync.Once
	envelopeSchema *jsonschema.Schema
	itemSchema     *jsonschema.Schema
	schemasErr     error
)

func compileSchema(name string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func schemas() (*jsonschema.Schema, *jsonschema.Schema, error) {
	schemasOnce.Do(func() {
		envelopeSchema, schemasErr = compileSchema("envelope.json", BuildEnvelopeJSONSchema())
		if schemasErr != nil {
			return
		}
		itemSchema, schemasErr = compileSchema("item.json", BuildItemJSONSchema())
	})
	return envelopeSchema, itemSchema, schemasErr
}

// DecodeResponse parses a classification response body. The envelope must
// validate or the whole body is rejected; items are normalized and then
// validated one by one, and the ones that fail are dropped and counted.
func DecodeResponse(raw []byte) (ClassifyResponse, int, error) {
	envelope, item, err := schemas()
	if err != nil {
		return ClassifyResponse{}, 0, err
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ClassifyResponse{}, 0, fmt.Errorf("decode response: %w", err)
	}
	if err := envelope.Validate(doc); err != nil {
		return ClassifyResponse{}, 0, fmt.Errorf("response envelope does not match schema: %w", err)
	}

	items := doc.(map[string]any)["classifications"].([]any)
	out := ClassifyResponse{Classifications: make([]ResultItem, 0, len(items))}
	dropped := 0
	for _, it := range items {
		NormalizeItem(it)
		if err := item.Validate(it); err != nil {
			dropped++
			continue
		}
		m := it.(map[string]any)
		r := ResultItem{
			ID:       int(m["id"].(float64)),
			Category: m["category"].(string),
		}
		if label, ok := m["label"].(string); ok {
			r.Label = label
		}
		out.Classifications = append(out.Classifications, r)
	}
	return out, dropped, nil
}
