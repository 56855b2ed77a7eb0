package jobs

import (
	"encoding/json"
	"fmt"
)

// Retry directives are stored inside AnalysisJSON under "generation_retry".
// They are one-shot: consuming a directive removes it so the next run behaves
// normally. Unknown analysis fields are preserved byte-for-byte apart from
// re-serialization.

const retryDirectiveKey = "generation_retry"

func decodeAnalysis(raw string) (map[string]any, error) {
	doc := map[string]any{}
	if raw == "" {
		return doc, nil
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("parse analysis json: %w", err)
	}
	return doc, nil
}

func encodeAnalysis(doc map[string]any) (string, error) {
	if len(doc) == 0 {
		return "", nil
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode analysis json: %w", err)
	}
	return string(data), nil
}

// SetRandomizeSeed records the one-shot randomize-seed retry directive on the
// job's analysis document. The caller persists the job afterwards.
func SetRandomizeSeed(job *Job) error {
	doc, err := decodeAnalysis(job.AnalysisJSON)
	if err != nil {
		return err
	}
	retry, _ := doc[retryDirectiveKey].(map[string]any)
	if retry == nil {
		retry = map[string]any{}
	}
	retry["randomize_seed"] = true
	doc[retryDirectiveKey] = retry

	encoded, err := encodeAnalysis(doc)
	if err != nil {
		return err
	}
	job.AnalysisJSON = encoded
	return nil
}

// ConsumeRandomizeSeed reports whether the randomize-seed directive is set and
// clears it from the analysis document. The caller persists the job when the
// directive was present.
func ConsumeRandomizeSeed(job *Job) (bool, error) {
	doc, err := decodeAnalysis(job.AnalysisJSON)
	if err != nil {
		return false, err
	}
	retry, _ := doc[retryDirectiveKey].(map[string]any)
	if retry == nil {
		return false, nil
	}
	set, _ := retry["randomize_seed"].(bool)

	delete(retry, "randomize_seed")
	if len(retry) == 0 {
		delete(doc, retryDirectiveKey)
	} else {
		doc[retryDirectiveKey] = retry
	}

	encoded, err := encodeAnalysis(doc)
	if err != nil {
		return false, err
	}
	job.AnalysisJSON = encoded
	return set, nil
}
