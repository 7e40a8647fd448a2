package vmx

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ParseError describes a malformed line in a VMX descriptor.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("vmx parse error at line %d: %s", e.Line, e.Msg)
}

// Parse reads a VMX descriptor into a Document.
//
// Keys are case-insensitive and stored lower-cased. Blank lines and
// lines starting with '#', '!' or "//" are ignored. Values may be
// enclosed in double quotes; the quotes are stripped. A line without
// '=', an unterminated quoted value, or a duplicate key with a
// conflicting value is a *ParseError.
func Parse(r io.Reader) (*Document, error) {
	doc := newDocument()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' || line[0] == '!' || strings.HasPrefix(line, "//") {
			continue
		}

		offset := strings.Index(line, "=")
		if offset < 0 {
			return nil, &ParseError{Line: lineno, Msg: fmt.Sprintf("missing '=' in %q", line)}
		}

		key := strings.ToLower(strings.TrimSpace(line[:offset]))
		if key == "" {
			return nil, &ParseError{Line: lineno, Msg: "empty key"}
		}

		value := strings.TrimSpace(line[offset+1:])
		if strings.HasPrefix(value, `"`) {
			if len(value) < 2 || !strings.HasSuffix(value, `"`) {
				return nil, &ParseError{Line: lineno, Msg: fmt.Sprintf("unterminated quoted value for key %q", key)}
			}
			value = value[1 : len(value)-1]
		}

		if prev, ok := doc.lookup(key); ok {
			if prev != value {
				return nil, &ParseError{
					Line: lineno,
					Msg:  fmt.Sprintf("duplicate key %q with conflicting value (%q vs %q)", key, prev, value),
				}
			}
			continue
		}
		doc.set(key, value, lineno)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read descriptor: %w", err)
	}

	return doc, nil
}

// ParseFile opens and parses a VMX descriptor from disk.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open descriptor: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Parse(f)
}
