package output

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats summaries as YAML.
type YAMLFormatter struct{}

// FormatSummary formats a single summary as YAML.
func (f *YAMLFormatter) FormatSummary(s *Summary) (string, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal summary to YAML: %w", err)
	}

	return string(data), nil
}

// FormatSummaryList formats a list of summaries as a YAML stream
// (multiple documents separated by ---).
func (f *YAMLFormatter) FormatSummaryList(list []*Summary) (string, error) {
	if len(list) == 0 {
		return "", nil
	}

	var buf bytes.Buffer

	for i, s := range list {
		data, err := yaml.Marshal(s)
		if err != nil {
			return "", fmt.Errorf("failed to marshal summary %s to YAML: %w", s.Name, err)
		}

		if i > 0 {
			buf.WriteString("---\n")
		}

		buf.Write(data)
	}

	return buf.String(), nil
}
