package gcode

import (
	"strconv"
	"strings"
)

// Command represents a parsed G-code line
type Command struct {
	Type       byte             // 'G', 'M', 'T', or 0 when the line has no command word
	Number     int              // Command number (e.g., 0 for G0, 28 for G28)
	Parameters map[byte]float64 // Parameters (X, Y, Z, E, F, S, etc.)
	Comment    string           // Comment text, including its markers
}

// Code returns the command word, e.g. "G1" or "M84"
func (cmd *Command) Code() string {
	if cmd.Type == 0 {
		return ""
	}
	return string(cmd.Type) + strconv.Itoa(cmd.Number)
}

// Is reports whether cmd is the given command word
func (cmd *Command) Is(typ byte, number int) bool {
	return cmd.Type == typ && cmd.Number == number
}

// HasParameter checks if a parameter exists in the command
func (cmd *Command) HasParameter(param byte) bool {
	_, ok := cmd.Parameters[param]
	return ok
}

// GetParameter gets a parameter value, or returns the default if not present
func (cmd *Command) GetParameter(param byte, defaultValue float64) float64 {
	if val, ok := cmd.Parameters[param]; ok {
		return val
	}
	return defaultValue
}

// Parser handles G-code parsing
type Parser struct{}

// NewParser creates a new G-code parser
func NewParser() *Parser {
	return &Parser{}
}

// ParseLine parses a single line of G-code. Blank lines yield a nil command.
func (p *Parser) ParseLine(line string) (*Command, error) {
	i := skipSpace(line, 0)
	if i >= len(line) {
		return nil, nil
	}

	cmd := &Command{
		Parameters: make(map[byte]float64),
	}

	i = cmd.skipBlank(line, i)
	if i >= len(line) {
		return cmd, nil
	}

	// Parse command type (G, M, T)
	if c := toUpper(line[i]); c == 'G' || c == 'M' || c == 'T' {
		if end := scanNumber(line, i+1, false); end > i+1 {
			n, err := strconv.Atoi(line[i+1 : end])
			if err == nil {
				cmd.Type = c
				cmd.Number = n
				i = end
			}
		}
	}

	// Parse parameters
	for {
		i = cmd.skipBlank(line, i)
		if i >= len(line) {
			break
		}

		if !isLetter(line[i]) {
			i++
			continue
		}

		letter := toUpper(line[i])
		i++
		end := scanNumber(line, i, true)
		if end == i {
			continue
		}
		value, err := strconv.ParseFloat(line[i:end], 64)
		if err == nil {
			cmd.Parameters[letter] = value
		}
		i = end
	}

	return cmd, nil
}

// scanNumber returns the end of the number starting at pos: an optional
// sign, digits, and (when fraction is set) a decimal part. It returns pos
// when no digits are found.
func scanNumber(s string, pos int, fraction bool) int {
	i := pos
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if fraction && i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return pos
	}
	return i
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\r') {
		i++
	}
	return i
}

// skipBlank skips whitespace and comments starting at i, collecting the
// comment text. A ';' comment runs to the end of the line; a '(' comment
// ends at its ')' and parsing resumes after it. An unclosed '(' runs to the
// end of the line.
func (cmd *Command) skipBlank(line string, i int) int {
	for {
		i = skipSpace(line, i)
		if i >= len(line) {
			return i
		}
		switch line[i] {
		case ';':
			cmd.addComment(line[i:])
			return len(line)
		case '(':
			end := strings.IndexByte(line[i:], ')')
			if end < 0 {
				cmd.addComment(line[i:])
				return len(line)
			}
			cmd.addComment(line[i : i+end+1])
			i += end + 1
		default:
			return i
		}
	}
}

func (cmd *Command) addComment(text string) {
	if cmd.Comment != "" {
		cmd.Comment += " "
	}
	cmd.Comment += text
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// isLetter checks if a byte is a letter
func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

// toUpper converts a byte to uppercase
func toUpper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
