// Package tariffnews turns a tool call into a tariff-reaction news query and
// normalizes what the news backend returns.
package tariffnews

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed input_schema.json
var inputSchemaJSON string

// ToolInput is the validated tool argument set. Nil means the caller did not
// supply the field.
type ToolInput struct {
	Country            *string `json:"country"`
	AdditionalKeywords *string `json:"additional_keywords"`
}

// ResultItem is one normalized article summary.
type ResultItem struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Snippet       string  `json:"snippet"`
	Source        *string `json:"source"`
	PublishedDate *string `json:"published_date"`
}

// SuccessOutput always carries at least one item.
type SuccessOutput struct {
	Results []ResultItem `json:"results"`
}

// ErrorOutput carries the message for empty results and backend failures.
type ErrorOutput struct {
	Error string `json:"error"`
}

// FieldError describes one offending input field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError is returned by ParseInput when the arguments do not match
// the input schema.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return strings.Join(parts, "; ")
}

var (
	compileOnce sync.Once
	inputSchema *jsonschema.Schema
	compileErr  error
)

// InputSchema returns the JSON Schema advertised to clients.
func InputSchema() json.RawMessage {
	return json.RawMessage(inputSchemaJSON)
}

func compiledInputSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("input_schema.json", strings.NewReader(inputSchemaJSON)); err != nil {
			compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, err := compiler.Compile("input_schema.json")
		if err != nil {
			compileErr = fmt.Errorf("compile input schema: %w", err)
			return
		}
		inputSchema = schema
	})
	return inputSchema, compileErr
}

// ParseInput validates loosely typed tool arguments and decodes them into a
// ToolInput. Unknown keys are ignored. Type mismatches come back as a
// *ValidationError naming each offending field.
func ParseInput(args map[string]any) (ToolInput, error) {
	var in ToolInput
	if args == nil {
		args = map[string]any{}
	}
	schema, err := compiledInputSchema()
	if err != nil {
		return in, err
	}

	// Round trip so the validator sees plain JSON values regardless of how
	// the transport decoded them.
	raw, err := json.Marshal(args)
	if err != nil {
		return in, &ValidationError{Fields: []FieldError{{Field: "(root)", Message: err.Error()}}}
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return in, &ValidationError{Fields: []FieldError{{Field: "(root)", Message: err.Error()}}}
	}

	if err := schema.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return in, &ValidationError{Fields: fieldErrors(verr)}
		}
		return in, err
	}

	if err := json.Unmarshal(raw, &in); err != nil {
		return in, fmt.Errorf("decode input: %w", err)
	}
	return in, nil
}

func fieldErrors(verr *jsonschema.ValidationError) []FieldError {
	var out []FieldError
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			field := strings.TrimPrefix(e.InstanceLocation, "/")
			if field == "" {
				field = "(root)"
			}
			out = append(out, FieldError{Field: field, Message: e.Message})
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(verr)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}
