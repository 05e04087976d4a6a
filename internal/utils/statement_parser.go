package utils

import (
	"regexp"
	"strings"
)

const statementTerminator = ";"

var (
	lineComment = regexp.MustCompile(`^(//|/\*.+?\*/)`)
	// The inline comment must be preceded by whitespace so that "://" in a
	// URL is never taken for a comment start.
	statementLine = regexp.MustCompile(`^(.*?)(\s//.*|\s/\*.*\*/)?$`)
)

// StatementParser splits a gremlin script into executable statements.
// Statements must be terminated with a semicolon, except optionally the last
// one. Indented multi-line statements, comment lines and trailing inline
// comments are handled; block comments spanning several lines are not.
type StatementParser struct{}

func NewStatementParser() *StatementParser {
	return &StatementParser{}
}

// Parse returns the statements found in lines, in source order. Lines of one
// statement are concatenated without a separator.
func (p *StatementParser) Parse(lines []string) []string {
	var statements []string
	var current strings.Builder

	for _, line := range lines {
		line = strings.TrimRight(line, "\r\n")
		if lineComment.MatchString(line) {
			continue
		}

		m := statementLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		statement := trimStatement(m[1])
		current.WriteString(statement)

		if strings.HasSuffix(statement, statementTerminator) {
			statements = append(statements, current.String())
			current.Reset()
		}
	}

	if current.Len() > 0 {
		statements = append(statements, current.String())
	}

	return statements
}

func trimStatement(s string) string {
	return strings.Trim(s, " \t\r\n\f\v")
}
