package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

func main() {
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	client := &http.Client{Timeout: 2 * time.Minute}

	fmt.Println("Starting smoke test against", baseURL)

	fmt.Println("1. Health...")
	if _, ok := sendRequest(client, http.MethodGet, baseURL+"/healthz", nil); !ok {
		fail("Health")
	}
	fmt.Println("PASSED: Health")

	fmt.Println("2. Merging ontology batches...")
	batches := []any{
		map[string]any{
			"entities": []string{"Person", "Dancer", "Theatre"},
			"relationships": []map[string]string{
				{"source": "Dancer", "target": "Theatre", "type": "PERFORMED_AT", "description": "Performance venue"},
			},
		},
		map[string]any{
			"Dancer": map[string]any{"properties": map[string]string{"style": "string"}},
		},
	}
	body, ok := sendRequest(client, http.MethodPost, baseURL+"/ontology/merge", map[string]any{"batches": batches})
	if !ok {
		fail("Merge ontology")
	}
	var merged struct {
		Ontology json.RawMessage `json:"ontology"`
	}
	if err := json.Unmarshal(body, &merged); err != nil || len(merged.Ontology) == 0 {
		fail("Merge ontology: no ontology in response")
	}
	fmt.Println("PASSED: Merge ontology")

	fmt.Println("3. Consolidating graph fragments...")
	fragments := []any{
		map[string]any{
			"nodes": []map[string]any{
				{"id": "1", "labels": []string{"Dancer"}, "properties": map[string]any{"name": "Anna Pavlova", "style": "ballet"}},
				{"id": "2", "labels": []string{"Theatre"}, "properties": map[string]any{"name": "Mariinsky Theatre"}},
			},
			"relationships": []map[string]any{
				{"type": "PERFORMED_AT", "startNode": "1", "endNode": "2", "properties": map[string]any{}},
			},
		},
		map[string]any{
			"nodes": []map[string]any{
				{"id": "1", "labels": []string{"Dancer"}, "properties": map[string]any{"name": "Anna Pavlova", "birth_date": "1881-02-12"}},
			},
			"relationships": []any{},
		},
	}
	body, ok = sendRequest(client, http.MethodPost, baseURL+"/graph/consolidate", map[string]any{
		"ontology":  merged.Ontology,
		"fragments": fragments,
	})
	if !ok {
		fail("Consolidate graph")
	}
	var consolidated struct {
		Graph json.RawMessage `json:"graph"`
	}
	if err := json.Unmarshal(body, &consolidated); err != nil || len(consolidated.Graph) == 0 {
		fail("Consolidate graph: no graph in response")
	}
	fmt.Println("PASSED: Consolidate graph")

	fmt.Println("4. Structural evaluation...")
	if _, ok := sendRequest(client, http.MethodPost, baseURL+"/evaluate/structural", map[string]any{
		"ontology": merged.Ontology,
		"graph":    consolidated.Graph,
	}); !ok {
		fail("Structural evaluation")
	}
	fmt.Println("PASSED: Structural evaluation")

	fmt.Println("5. Metrics...")
	if _, ok := sendRequest(client, http.MethodGet, baseURL+"/metrics", nil); !ok {
		fail("Metrics")
	}
	fmt.Println("PASSED: Metrics")
}

func fail(step string) {
	fmt.Println("FAILED:", step)
	os.Exit(1)
}

func sendRequest(client *http.Client, method, url string, payload any) ([]byte, bool) {
	var body io.Reader
	if payload != nil {
		jsonBytes, err := json.Marshal(payload)
		if err != nil {
			fmt.Printf("Error encoding request: %v\n", err)
			return nil, false
		}
		body = bytes.NewReader(jsonBytes)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		return nil, false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		return nil, false
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Request failed with status %d: %s\n", resp.StatusCode, string(respBody))
		return nil, false
	}
	if len(respBody) > 512 {
		fmt.Printf("Response: %s...\n", respBody[:512])
	} else {
		fmt.Printf("Response: %s\n", respBody)
	}
	return respBody, true
}
