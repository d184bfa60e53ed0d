// Package parser splits shell input into backslash commands and plain messages.
package parser

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Command is a parsed backslash command such as \route[from=A, to=B] or
// \rename New name.
type Command struct {
	Name    string
	Options map[string]string
	Message string
}

var commandWithOptions = regexp.MustCompile(`^([a-zA-Z_][a-zA-Z0-9_-]*)\[(.*)\]$`)

// IsCommand reports whether input is a backslash command rather than a message.
func IsCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "\\")
}

// ParseCommand parses \name, \name message or \name[key=value, flag] message.
// Option values may be quoted to include commas.
func ParseCommand(input string) (*Command, error) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "\\") {
		return nil, fmt.Errorf("command must start with '\\'")
	}
	input = input[1:]

	head, message := splitHead(input)
	if head == "" {
		return nil, fmt.Errorf("empty command")
	}

	cmd := &Command{
		Options: make(map[string]string),
		Message: message,
	}

	if !strings.Contains(head, "[") {
		cmd.Name = strings.ToLower(head)
		return cmd, nil
	}

	matches := commandWithOptions.FindStringSubmatch(head)
	if matches == nil {
		return nil, fmt.Errorf("invalid command format: %s", head)
	}
	cmd.Name = strings.ToLower(matches[1])
	if err := parseOptions(matches[2], cmd.Options); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return cmd, nil
}

// splitHead separates the command head from its message. Brackets may
// contain spaces, so the head ends at the first space outside them.
func splitHead(input string) (string, string) {
	depth := 0
	var quote byte
	for i := 0; i < len(input); i++ {
		c := input[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case depth > 0 && (c == '"' || c == '\''):
			quote = c
		case c == '[':
			depth++
		case c == ']':
			if depth > 0 {
				depth--
			}
		case c == ' ' && depth == 0:
			return input[:i], strings.TrimSpace(input[i+1:])
		}
	}
	return input, ""
}

func parseOptions(optionsStr string, options map[string]string) error {
	parts, err := splitOptions(optionsStr)
	if err != nil {
		return err
	}
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		key, value, hasValue := strings.Cut(part, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			return fmt.Errorf("option without a name: %q", part)
		}
		if !hasValue {
			options[key] = ""
			continue
		}

		value = strings.TrimSpace(value)
		if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0] {
			value = value[1 : len(value)-1]
		}
		options[key] = value
	}
	return nil
}

func splitOptions(s string) ([]string, error) {
	var parts []string
	var current strings.Builder
	var quote byte

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote == 0 && (c == '"' || c == '\''):
			quote = c
			current.WriteByte(c)
		case quote != 0 && c == quote:
			quote = 0
			current.WriteByte(c)
		case quote == 0 && c == ',':
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote")
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts, nil
}

// Option returns the first non-empty value among keys.
func (c *Command) Option(keys ...string) string {
	for _, key := range keys {
		if value := c.Options[key]; value != "" {
			return value
		}
	}
	return ""
}

// HasOption reports whether any of keys was given, with or without a value.
func (c *Command) HasOption(keys ...string) bool {
	for _, key := range keys {
		if _, ok := c.Options[key]; ok {
			return true
		}
	}
	return false
}

// String renders the command back into shell syntax with options sorted by key.
func (c *Command) String() string {
	var b strings.Builder
	b.WriteString("\\")
	b.WriteString(c.Name)
	if len(c.Options) > 0 {
		keys := make([]string, 0, len(c.Options))
		for key := range c.Options {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		b.WriteString("[")
		for i, key := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			if value := c.Options[key]; value != "" {
				fmt.Fprintf(&b, "%s=%q", key, value)
			} else {
				b.WriteString(key)
			}
		}
		b.WriteString("]")
	}
	if c.Message != "" {
		b.WriteString(" ")
		b.WriteString(c.Message)
	}
	return b.String()
}
