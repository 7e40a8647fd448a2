package output

import (
	"encoding/json"
	"fmt"
)

// JSONFormatter formats summaries as JSON.
type JSONFormatter struct{}

// FormatSummary formats a single summary as JSON.
func (f *JSONFormatter) FormatSummary(s *Summary) (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal summary to JSON: %w", err)
	}

	return string(data) + "\n", nil
}

// FormatSummaryList formats a list of summaries as a JSON array.
func (f *JSONFormatter) FormatSummaryList(list []*Summary) (string, error) {
	if len(list) == 0 {
		return "[]\n", nil
	}

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal summaries to JSON: %w", err)
	}

	return string(data) + "\n", nil
}
