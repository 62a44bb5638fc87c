// Package pyliteral parses the Python-literal dictionary syntax used by the
// review and item feeds: single- or double-quoted strings, True/False/None,
// numbers, lists, and dicts. It is a dedicated recursive-descent parser, not
// a general literal evaluator, so malformed lines fail with an explicit
// position instead of being silently interpreted.
package pyliteral

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Parse decodes one literal value. Integers decode to int64, floats to
// float64, None to nil; dicts decode to map[string]interface{} and require
// string keys.
func Parse(input string) (interface{}, error) {
	p := &parser{src: input}
	p.skipSpace()
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("trailing data after literal")
	}
	return v, nil
}

// ParseDict decodes one literal value and requires it to be a dictionary.
func ParseDict(input string) (map[string]interface{}, error) {
	v, err := Parse(input)
	if err != nil {
		return nil, err
	}
	dict, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("literal is %T, not a dict", v)
	}
	return dict, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) value() (interface{}, error) {
	p.skipSpace()
	switch c := p.peek(); {
	case c == '{':
		return p.dict()
	case c == '[':
		return p.list()
	case c == '\'' || c == '"':
		return p.quoted()
	case c == '-' || c == '+' || (c >= '0' && c <= '9') || c == '.':
		return p.number()
	case p.literal("True"):
		return true, nil
	case p.literal("False"):
		return false, nil
	case p.literal("None"):
		return nil, nil
	default:
		return nil, p.errorf("unexpected character %q", c)
	}
}

// literal consumes an exact bare word, refusing when it runs into an
// identifier tail (so "Truex" is not True).
func (p *parser) literal(word string) bool {
	if !strings.HasPrefix(p.src[p.pos:], word) {
		return false
	}
	end := p.pos + len(word)
	if end < len(p.src) {
		c := p.src[end]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			return false
		}
	}
	p.pos = end
	return true
}

func (p *parser) dict() (interface{}, error) {
	p.pos++ // consume '{'
	out := make(map[string]interface{})
	p.skipSpace()
	if p.peek() == '}' {
		p.pos++
		return out, nil
	}
	for {
		p.skipSpace()
		key, err := p.value()
		if err != nil {
			return nil, err
		}
		keyStr, ok := key.(string)
		if !ok {
			return nil, p.errorf("dict key is %T, not a string", key)
		}
		p.skipSpace()
		if p.peek() != ':' {
			return nil, p.errorf("expected ':' after dict key")
		}
		p.pos++
		val, err := p.value()
		if err != nil {
			return nil, err
		}
		out[keyStr] = val

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return out, nil
		default:
			return nil, p.errorf("expected ',' or '}' in dict")
		}
	}
}

func (p *parser) list() (interface{}, error) {
	p.pos++ // consume '['
	out := []interface{}{}
	p.skipSpace()
	if p.peek() == ']' {
		p.pos++
		return out, nil
	}
	for {
		val, err := p.value()
		if err != nil {
			return nil, err
		}
		out = append(out, val)

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return out, nil
		default:
			return nil, p.errorf("expected ',' or ']' in list")
		}
	}
}

func (p *parser) quoted() (interface{}, error) {
	quote := p.src[p.pos]
	p.pos++
	var sb strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return sb.String(), nil
		case c == '\\':
			if p.pos+1 >= len(p.src) {
				return nil, p.errorf("unterminated escape")
			}
			p.pos++
			switch esc := p.src[p.pos]; esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\', '\'', '"':
				sb.WriteByte(esc)
			case 'u':
				if p.pos+4 >= len(p.src) {
					return nil, p.errorf("truncated \\u escape")
				}
				code, err := strconv.ParseUint(p.src[p.pos+1:p.pos+5], 16, 32)
				if err != nil {
					return nil, p.errorf("invalid \\u escape")
				}
				sb.WriteRune(rune(code))
				p.pos += 4
			case 'x':
				if p.pos+2 >= len(p.src) {
					return nil, p.errorf("truncated \\x escape")
				}
				code, err := strconv.ParseUint(p.src[p.pos+1:p.pos+3], 16, 8)
				if err != nil {
					return nil, p.errorf("invalid \\x escape")
				}
				sb.WriteByte(byte(code))
				p.pos += 2
			default:
				// Unknown escape: keep both characters, as the source data
				// contains raw Windows paths and emoticons.
				sb.WriteByte('\\')
				sb.WriteByte(esc)
			}
			p.pos++
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			sb.WriteRune(r)
			p.pos += size
		}
	}
	return nil, p.errorf("unterminated string")
}

func (p *parser) number() (interface{}, error) {
	start := p.pos
	if c := p.peek(); c == '-' || c == '+' {
		p.pos++
	}
	isFloat := false
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		if c == '.' || c == 'e' || c == 'E' {
			isFloat = true
			p.pos++
			continue
		}
		if (c == '-' || c == '+') && (p.src[p.pos-1] == 'e' || p.src[p.pos-1] == 'E') {
			p.pos++
			continue
		}
		break
	}
	text := p.src[start:p.pos]
	if text == "" || text == "-" || text == "+" {
		return nil, p.errorf("malformed number")
	}
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, p.errorf("malformed float %q", text)
		}
		return f, nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		// Integer overflow falls back to float, like the source data's
		// occasional very large counters.
		f, ferr := strconv.ParseFloat(text, 64)
		if ferr != nil {
			return nil, p.errorf("malformed integer %q", text)
		}
		return f, nil
	}
	return n, nil
}
