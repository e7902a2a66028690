package model

// DuplicatePair is one judged pair of entity strings.
type DuplicatePair struct {
	Original   string  `json:"original"`
	Duplicate  string  `json:"duplicate"`
	Confidence float64 `json:"confidence"`
}

// DeduplicationResult is the JSON an LLM judge returns for a batch of pairs.
type DeduplicationResult struct {
	Duplicates []DuplicatePair `json:"duplicates"`
}
