package common

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ParseJSON cleans and unmarshals a JSON value into a type T.
// It handles common LLM quirks like surrounding markdown or extra text:
// the outermost {...} (or [...] when T decodes from a list) is extracted.
func ParseJSON[T any](response string) (T, error) {
	var zero T
	opening, closing := "{", "}"
	if i, j := strings.Index(response, "["), strings.Index(response, "{"); i != -1 && (j == -1 || i < j) {
		opening, closing = "[", "]"
	}

	start := strings.Index(response, opening)
	end := strings.LastIndex(response, closing)
	if start == -1 {
		return zero, fmt.Errorf("no JSON value found in response (missing '%s')", opening)
	}
	if end < start {
		return zero, fmt.Errorf("unterminated JSON value in response")
	}

	jsonStr := response[start : end+1]
	var result T
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return zero, fmt.Errorf("failed to unmarshal JSON: %w\nData: %s", err, jsonStr)
	}
	return result, nil
}

// SplitDocuments splits a stream of JSON values written back to back, as in
// "{...}{...}" or one value per line, into its documents.
func SplitDocuments(data []byte) ([]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var docs []json.RawMessage
	for {
		var raw json.RawMessage
		err := dec.Decode(&raw)
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return docs, fmt.Errorf("document %d: %w", len(docs), err)
		}
		docs = append(docs, raw)
	}
}

// JoinDocuments is the inverse of SplitDocuments: compact documents written
// back to back.
func JoinDocuments(docs []json.RawMessage) ([]byte, error) {
	var buf bytes.Buffer
	for i, d := range docs {
		if err := json.Compact(&buf, d); err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
