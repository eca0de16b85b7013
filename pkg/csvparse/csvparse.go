// Package csvparse reads and writes the CSV dialect used by album index files
// and by exiftool's -csv output.
//
// Unlike encoding/csv, the dialect has an escape character that protects the
// following character in both quoted and unquoted fields, ignores carriage
// returns everywhere, and treats a quote directly after a closing quote as a
// literal quote that reopens the field.
package csvparse

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

type state int

const (
	fieldStart state = iota
	unquoted
	quoted
	// afterQuote follows a quote seen inside a quoted field: either the field
	// is closed, or a second quote follows and is kept literally.
	afterQuote
)

// ParseError describes malformed quoting or escaping.
type ParseError struct {
	Line   int
	Column int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("csv parse error at line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

// Option configures a Parser or FormatRecord.
type Option func(*Parser)

// Delimiter sets the field separator (default ',').
func Delimiter(r rune) Option {
	return func(p *Parser) { p.delim = r }
}

// Quote sets the quote character (default '"').
func Quote(r rune) Option {
	return func(p *Parser) { p.quote = r }
}

// Escape sets the escape character (default '\'). Zero disables escaping.
func Escape(r rune) Option {
	return func(p *Parser) { p.escape = r }
}

// Parser reads one record per call from a character stream.
type Parser struct {
	r      *bufio.Reader
	delim  rune
	quote  rune
	escape rune
	line   int
	col    int
}

// NewParser returns a Parser reading from r.
func NewParser(r io.Reader, opts ...Option) *Parser {
	p := newParser(opts)
	p.r = bufio.NewReader(r)
	return p
}

func newParser(opts []Option) *Parser {
	p := &Parser{delim: ',', quote: '"', escape: '\\', line: 1}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Parser) errorf(format string, args ...any) error {
	return &ParseError{Line: p.line, Column: p.col, Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) newline() {
	p.line++
	p.col = 0
}

// ReadRecord returns the fields of the next record and advances past its
// terminator. It returns io.EOF once the stream holds nothing but carriage
// returns. The end of the stream terminates the last record.
//
// The parser position is undefined after a *ParseError.
func (p *Parser) ReadRecord() ([]string, error) {
	var (
		fields  []string
		field   strings.Builder
		st      = fieldStart
		escaped bool
		started bool
	)

	for {
		c, _, err := p.r.ReadRune()
		if err == io.EOF {
			if !started {
				return nil, io.EOF
			}
			return append(fields, field.String()), nil
		}
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}

		if c == '\r' {
			continue
		}
		started = true
		p.col++

		if escaped {
			escaped = false
			field.WriteRune(c)
			if st == fieldStart {
				st = unquoted
			}
			if c == '\n' {
				p.newline()
			}
			continue
		}

		switch {
		case c == '\n':
			if st == quoted {
				field.WriteRune(c)
				p.newline()
				continue
			}
			p.newline()
			return append(fields, field.String()), nil

		case p.escape != 0 && c == p.escape:
			if st == afterQuote {
				return nil, p.errorf("escape character %q after closing quote", c)
			}
			escaped = true

		case c == p.quote:
			switch st {
			case fieldStart:
				st = quoted
			case quoted:
				st = afterQuote
			case afterQuote:
				field.WriteRune(c)
				st = quoted
			default:
				return nil, p.errorf("unexpected quote %q in unquoted field", c)
			}

		case c == p.delim:
			if st == quoted {
				field.WriteRune(c)
				continue
			}
			fields = append(fields, field.String())
			field.Reset()
			st = fieldStart

		default:
			switch st {
			case afterQuote:
				return nil, p.errorf("unexpected %q after closing quote", c)
			case fieldStart:
				st = unquoted
			}
			field.WriteRune(c)
		}
	}
}

// ReadMap reads the next record and keys its fields by header. Columns beyond
// the header are dropped; header names without a column are absent.
func (p *Parser) ReadMap(header []string) (map[string]string, error) {
	rec, err := p.ReadRecord()
	if err != nil {
		return nil, err
	}

	m := make(map[string]string, len(header))
	for i, v := range rec {
		if i >= len(header) {
			break
		}
		m[header[i]] = v
	}
	return m, nil
}

// FormatRecord renders fields as one line in the parser's dialect, without a
// terminator. Carriage returns cannot be represented and are dropped.
func FormatRecord(fields []string, opts ...Option) string {
	p := newParser(opts)
	special := string([]rune{p.delim, p.quote, '\n'})
	if p.escape != 0 {
		special += string(p.escape)
	}

	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteRune(p.delim)
		}
		f = strings.ReplaceAll(f, "\r", "")
		if !strings.ContainsAny(f, special) {
			b.WriteString(f)
			continue
		}

		b.WriteRune(p.quote)
		for _, c := range f {
			switch {
			case c == p.quote:
				b.WriteRune(p.quote)
			case p.escape != 0 && c == p.escape:
				b.WriteRune(p.escape)
			}
			b.WriteRune(c)
		}
		b.WriteRune(p.quote)
	}
	return b.String()
}
