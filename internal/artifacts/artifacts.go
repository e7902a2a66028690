package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agenthands/ontograph/internal/core/common"
)

// ErrNotFound is returned when an artifact has not been written yet.
var ErrNotFound = errors.New("ontograph: artifact not found")

// Kind selects the ontology or knowledge graph subtree.
type Kind string

const (
	Ontology Kind = "ontology"
	Graph    Kind = "kg"
)

const (
	batchesDir     = "batches"
	mergedDir      = "merged"
	evaluationsDir = "evaluations"
	finalFile      = "final.json"
)

// Layout is the per-model directory tree:
//
//	<root>/<model>/ontology/{batches,merged}/  and ontology/final.json
//	<root>/<model>/kg/{batches,merged}/        and kg/final.json
//	<root>/<model>/evaluations/
type Layout struct {
	Root  string
	Model string
}

func New(root, model string) (*Layout, error) {
	if model == "" || model == "." || model == ".." || strings.ContainsAny(model, `/\`) {
		return nil, fmt.Errorf("invalid model name %q", model)
	}
	return &Layout{Root: root, Model: model}, nil
}

func (l *Layout) Dir() string { return filepath.Join(l.Root, l.Model) }

func (l *Layout) BatchDir(k Kind) string { return filepath.Join(l.Dir(), string(k), batchesDir) }

func (l *Layout) MergedDir(k Kind) string { return filepath.Join(l.Dir(), string(k), mergedDir) }

func (l *Layout) FinalPath(k Kind) string { return filepath.Join(l.Dir(), string(k), finalFile) }

func (l *Layout) EvaluationPath(name string) string {
	return filepath.Join(l.Dir(), evaluationsDir, name+".json")
}

// Init creates the whole tree.
func (l *Layout) Init() error {
	for _, k := range []Kind{Ontology, Graph} {
		for _, d := range []string{l.BatchDir(k), l.MergedDir(k)} {
			if err := os.MkdirAll(d, 0755); err != nil {
				return fmt.Errorf("create %s: %w", d, err)
			}
		}
	}
	return os.MkdirAll(filepath.Join(l.Dir(), evaluationsDir), 0755)
}

// WriteBatch stores one raw batch document as batches/batch_NNNN.json.
func (l *Layout) WriteBatch(k Kind, index int, doc json.RawMessage) (string, error) {
	path := filepath.Join(l.BatchDir(k), fmt.Sprintf("batch_%04d.json", index))
	buf, err := common.JoinDocuments([]json.RawMessage{doc})
	if err != nil {
		return "", fmt.Errorf("batch %d: %w", index, err)
	}
	return path, writeAtomic(path, buf)
}

// ReadBatches returns every document under batches/, files in name order.
// A file may hold several documents written back to back.
func (l *Layout) ReadBatches(k Kind) ([]json.RawMessage, error) {
	entries, err := os.ReadDir(l.BatchDir(k))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, l.BatchDir(k))
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	var docs []json.RawMessage
	for _, n := range names {
		docs, err = appendDocuments(docs, filepath.Join(l.BatchDir(k), n))
		if err != nil {
			return nil, err
		}
	}
	return docs, nil
}

// ReadDocuments reads a single file of back-to-back documents.
func ReadDocuments(path string) ([]json.RawMessage, error) {
	return appendDocuments(nil, path)
}

func appendDocuments(docs []json.RawMessage, path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, err
	}
	split, err := common.SplitDocuments(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return append(docs, split...), nil
}

// WriteMerged stores the output of one merge step as merged/<step>.json.
func (l *Layout) WriteMerged(k Kind, step string, v any) (string, error) {
	path := filepath.Join(l.MergedDir(k), step+".json")
	return path, WriteJSON(path, v)
}

func (l *Layout) WriteFinal(k Kind, v any) error { return WriteJSON(l.FinalPath(k), v) }

func (l *Layout) ReadFinal(k Kind, v any) error { return ReadJSON(l.FinalPath(k), v) }

func (l *Layout) WriteEvaluation(name string, v any) error {
	return WriteJSON(l.EvaluationPath(name), v)
}

func (l *Layout) ReadEvaluation(name string, v any) error {
	return ReadJSON(l.EvaluationPath(name), v)
}

// WriteJSON writes v indented, replacing path atomically.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return writeAtomic(path, append(data, '\n'))
}

func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
