// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"strings"
	"unicode"
)

// =============================================================================
// PARSE RESULT
// =============================================================================

// ParseResult contains the result of parsing user input.
type ParseResult struct {
	// IsCommand is true if the input starts with /
	IsCommand bool

	// Command is the matched command (nil if not found)
	Command *Command

	// CommandName is the raw command name (e.g., "/help")
	CommandName string

	// Args are the parsed arguments
	Args []string

	// RawArgs is the unparsed arguments portion
	RawArgs string

	// RawInput is the original input string
	RawInput string
}

// =============================================================================
// PARSER
// =============================================================================

// Parser turns user input into a command lookup plus arguments.
type Parser struct {
	registry *Registry
}

// NewParser creates a parser over the given registry.
func NewParser(registry *Registry) *Parser {
	return &Parser{registry: registry}
}

// Parse parses user input. IsCommand is false when the input does not start
// with /; Command is nil when the name matches nothing in the registry.
func (p *Parser) Parse(input string) ParseResult {
	input = strings.TrimSpace(input)
	result := ParseResult{RawInput: input}

	if !strings.HasPrefix(input, "/") {
		return result
	}
	result.IsCommand = true

	parts := splitCommandLine(input)
	if len(parts) == 0 {
		return result
	}

	result.CommandName = parts[0]
	result.Args = parts[1:]
	result.RawArgs = strings.TrimSpace(strings.TrimPrefix(input, parts[0]))
	result.Command = p.registry.Get(result.CommandName)
	return result
}

// ParseArgs splits a raw argument string into individual arguments,
// respecting quotes.
func ParseArgs(input string) []string {
	return splitCommandLine(input)
}

// =============================================================================
// TOKENIZATION
// =============================================================================

// splitCommandLine tokenizes input on whitespace. Single or double quotes
// group spaces into one token; backslash escapes quotes and itself inside a
// quoted region. Quote characters themselves are not part of the token.
func splitCommandLine(input string) []string {
	var tokens []string
	var current strings.Builder
	var quote rune // active quote character, 0 when outside quotes

	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		switch {
		case quote == 0 && (ch == '\'' || ch == '"'):
			quote = ch

		case quote != 0 && ch == quote:
			quote = 0

		case quote != 0 && ch == '\\' && i+1 < len(runes):
			next := runes[i+1]
			if next == '"' || next == '\'' || next == '\\' {
				current.WriteRune(next)
				i++
			} else {
				current.WriteRune(ch)
			}

		case quote == 0 && unicode.IsSpace(ch):
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}

		default:
			current.WriteRune(ch)
		}
	}

	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

// =============================================================================
// HELPERS
// =============================================================================

// IsCommand reports whether the input looks like a slash command.
func IsCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}

// ExtractCommandName returns just the command name from input.
// e.g., "/load 0" -> "/load"
func ExtractCommandName(input string) string {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return ""
	}
	if end := strings.IndexFunc(input, unicode.IsSpace); end != -1 {
		return input[:end]
	}
	return input
}

// ValidateArgs checks arguments against a command's argument definitions.
func ValidateArgs(cmd *Command, args []string) error {
	if cmd == nil {
		return nil
	}

	for i, def := range cmd.Args {
		if def.Required && i >= len(args) {
			return &ValidationError{
				Command:  cmd.Name,
				Arg:      def.Name,
				Message:  "required argument missing",
				Expected: def.Description,
			}
		}
		if i >= len(args) {
			continue
		}

		if def.Type == ArgTypeEnum && len(def.Values) > 0 {
			valid := false
			for _, v := range def.Values {
				if strings.EqualFold(args[i], v) {
					valid = true
					break
				}
			}
			if !valid {
				return &ValidationError{
					Command:  cmd.Name,
					Arg:      def.Name,
					Message:  "invalid value",
					Got:      args[i],
					Expected: strings.Join(def.Values, ", "),
				}
			}
		}
	}
	return nil
}

// =============================================================================
// VALIDATION ERROR
// =============================================================================

// ValidationError describes an argument that failed validation.
type ValidationError struct {
	Command  string
	Arg      string
	Message  string
	Got      string
	Expected string
}

func (e *ValidationError) Error() string {
	msg := e.Command + ": " + e.Message
	if e.Arg != "" {
		msg += " for argument '" + e.Arg + "'"
	}
	if e.Got != "" {
		msg += " (got: " + e.Got + ")"
	}
	if e.Expected != "" {
		msg += " - expected: " + e.Expected
	}
	return msg
}
