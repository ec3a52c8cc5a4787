package predicates

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Mindburn-Labs/hoc/pkg/contract"
	"github.com/Mindburn-Labs/hoc/pkg/value"
)

// Schema compiles a JSON Schema (Draft 2020-12) into a flat contract.
// A value satisfies the contract when its JSON form validates; values with
// no JSON form fail the predicate with an error.
func Schema(name, schema string) (*contract.Flat, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	schemaURL := fmt.Sprintf("https://hoc.schemas.local/predicates/%s.schema.json", urlSafe(name))
	if err := c.AddResource(schemaURL, strings.NewReader(schema)); err != nil {
		return nil, fmt.Errorf("predicate %s: schema load failed: %w", name, err)
	}
	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("predicate %s: schema compile failed: %w", name, err)
	}
	return contract.NewFlat(contract.NewFalliblePredicate(name, func(_ context.Context, v any) (bool, error) {
		doc, err := jsonForm(v)
		if err != nil {
			return false, err
		}
		if err := compiled.Validate(doc); err != nil {
			var ve *jsonschema.ValidationError
			if errors.As(err, &ve) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	}))
}

// jsonForm round-trips v through JSON so the validator sees exactly what
// a JSON document holding v would contain.
func jsonForm(v any) (any, error) {
	if hasProcedure(v) {
		return nil, fmt.Errorf("value has no JSON form: %s", value.Format(v))
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("value has no JSON form: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("value has no JSON form: %w", err)
	}
	return doc, nil
}

func hasProcedure(v any) bool {
	switch x := v.(type) {
	case value.Procedure:
		return true
	case []any:
		for _, e := range x {
			if hasProcedure(e) {
				return true
			}
		}
	case map[string]any:
		for _, e := range x {
			if hasProcedure(e) {
				return true
			}
		}
	}
	return false
}

func urlSafe(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
