package skills

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// frontmatter is the YAML header of a SKILL.md file. AllowedTools is a
// pointer so an absent key (unrestricted) stays distinguishable from an
// empty list (nothing allowed).
type frontmatter struct {
	Name         string    `yaml:"name"`
	Version      string    `yaml:"version"`
	Description  string    `yaml:"description"`
	AllowedTools *toolList `yaml:"allowed-tools"`
}

// toolList accepts both YAML shapes of allowed-tools: a sequence of names
// or a single comma- or whitespace-separated string.
type toolList []string

func (t *toolList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		out := make(toolList, 0, len(items))
		for _, item := range items {
			if name := strings.TrimSpace(item); name != "" {
				out = append(out, name)
			}
		}
		*t = out
		return nil
	case yaml.ScalarNode:
		var raw string
		if err := value.Decode(&raw); err != nil {
			return err
		}
		*t = splitToolNames(raw)
		return nil
	}
	return fmt.Errorf("allowed-tools must be a list or a string, got %s", value.Tag)
}

func splitToolNames(raw string) toolList {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	out := make(toolList, 0, len(fields))
	for _, field := range fields {
		if name := strings.TrimSpace(field); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// splitFrontmatter separates a leading "---" delimited YAML block from the
// markdown body. A file without an opening marker has no frontmatter; an
// opening marker without a closing one is an error.
func splitFrontmatter(s string) (head, body string, has bool, err error) {
	br := bufio.NewReader(strings.NewReader(s))

	first, ferr := br.ReadString('\n')
	if ferr != nil && !errors.Is(ferr, io.EOF) {
		return "", "", false, fmt.Errorf("read first line: %w", ferr)
	}
	if strings.TrimSpace(strings.TrimRight(first, "\r\n")) != "---" {
		return "", s, false, nil
	}

	var headLines []string
	closed := false
	for {
		line, lerr := br.ReadString('\n')
		if lerr != nil && !errors.Is(lerr, io.EOF) {
			return "", "", false, fmt.Errorf("read frontmatter line: %w", lerr)
		}
		trimmed := strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(trimmed) == "---" {
			closed = true
			break
		}
		headLines = append(headLines, trimmed)
		if errors.Is(lerr, io.EOF) {
			break
		}
	}
	if !closed {
		return "", "", false, errors.New("unterminated frontmatter (missing closing ---)")
	}

	rest, err := io.ReadAll(br)
	if err != nil {
		return "", "", false, fmt.Errorf("read body: %w", err)
	}
	return strings.Join(headLines, "\n"), string(rest), true, nil
}
