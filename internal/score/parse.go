package score

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaJSON []byte

var responseSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("score.json", bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	return c.Compile("score.json")
})

type response struct {
	Scores      Scores   `json:"scores"`
	Total       float64  `json:"total"`
	Rationale   string   `json:"rationale"`
	Suggestions []string `json:"suggestions"`
	Confidence  *float64 `json:"confidence"`
}

// parseResponse extracts and validates the rubric JSON from a model reply.
func parseResponse(content string) (*Report, error) {
	raw, err := extractObject(stripMarkdown(content))
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("score: parse response: %w", err)
	}
	schema, err := responseSchema()
	if err != nil {
		return nil, fmt.Errorf("score: compile schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("score: response does not match schema: %w", err)
	}

	var r response
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("score: decode response: %w", err)
	}
	rep := &Report{
		Scores:      r.Scores,
		Total:       r.Total,
		Rationale:   r.Rationale,
		Suggestions: r.Suggestions,
		Confidence:  defaultConfidence,
	}
	if rep.Suggestions == nil {
		rep.Suggestions = []string{}
	}
	if r.Confidence != nil {
		rep.Confidence = *r.Confidence
	}
	return rep, nil
}

// extractObject returns the text from the first '{' to the last '}'.
func extractObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", errors.New("score: no JSON object in response")
	}
	return s[start : end+1], nil
}

// stripMarkdown removes optional markdown code fences (```json ... ```)
// around the model output.
func stripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}
