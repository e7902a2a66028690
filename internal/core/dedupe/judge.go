package dedupe

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/agenthands/ontograph/internal/core/common"
	"github.com/agenthands/ontograph/internal/core/model"
	"github.com/agenthands/ontograph/internal/llm"
)

const judgePrompt = `
<NEW ENTITIES>
%s
</NEW ENTITIES>

<EXISTING ENTITIES>
%s
</EXISTING ENTITIES>

Instructions:
Identify which NEW ENTITIES refer to the same real-world entity as one of the EXISTING ENTITIES.
Spelling variants, abbreviations and aliases count as the same entity. Different entities that merely share words do not.
Return a JSON object with key "duplicates" which is a list of objects.
Each object should have "original" (the existing entity), "duplicate" (the new entity), and "confidence" (float).

Example JSON:
{
  "duplicates": [
    {"original": "New York City", "duplicate": "NYC", "confidence": 0.9}
  ]
}
`

// LLMJudge asks a language model whether entity strings are duplicates.
// Verdicts are cached per unordered pair.
type LLMJudge struct {
	LLM           llm.LLMClient
	MinConfidence float64

	mu      sync.Mutex
	verdict map[[2]string]bool
}

func NewLLMJudge(client llm.LLMClient, minConfidence float64) *LLMJudge {
	return &LLMJudge{LLM: client, MinConfidence: minConfidence, verdict: make(map[[2]string]bool)}
}

// ResolveDuplicates returns the pairs the model judged to be duplicates,
// restricted to strings that were actually asked about.
func (j *LLMJudge) ResolveDuplicates(ctx context.Context, candidates, existing []string) ([]model.DuplicatePair, error) {
	if len(candidates) == 0 || len(existing) == 0 {
		return nil, nil
	}
	prompt := fmt.Sprintf(judgePrompt, bulletList(candidates), bulletList(existing))
	response, err := j.LLM.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate deduplication result: %w", err)
	}
	result, err := common.ParseJSON[model.DeduplicationResult](response)
	if err != nil {
		return nil, fmt.Errorf("failed to parse deduplication result: %w", err)
	}
	asked := make(map[string]bool, len(candidates)+len(existing))
	for _, s := range candidates {
		asked[s] = true
	}
	for _, s := range existing {
		asked[s] = true
	}
	var out []model.DuplicatePair
	for _, p := range result.Duplicates {
		if asked[p.Original] && asked[p.Duplicate] && p.Confidence >= j.MinConfidence {
			out = append(out, p)
		}
	}
	return out, nil
}

func (j *LLMJudge) Equivalent(ctx context.Context, a, b string) (bool, error) {
	if a == "" || b == "" {
		return false, nil
	}
	if a == b {
		return true, nil
	}
	key := [2]string{a, b}
	if b < a {
		key = [2]string{b, a}
	}
	j.mu.Lock()
	if j.verdict == nil {
		j.verdict = make(map[[2]string]bool)
	}
	v, ok := j.verdict[key]
	j.mu.Unlock()
	if ok {
		return v, nil
	}
	pairs, err := j.ResolveDuplicates(ctx, []string{key[1]}, []string{key[0]})
	if err != nil {
		return false, err
	}
	v = len(pairs) > 0
	j.mu.Lock()
	j.verdict[key] = v
	j.mu.Unlock()
	return v, nil
}

func bulletList(items []string) string {
	var b strings.Builder
	for _, s := range items {
		fmt.Fprintf(&b, "- %s\n", s)
	}
	return b.String()
}
