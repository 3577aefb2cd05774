// internal/property/parse.go
//
// ParseType turns a canonical type name back into a Type so declarations
// loaded from YAML use the same validators as declarations written in Go.
//
// Grammar
// -------
//
//	type   = scalar | "Enum(" lit {"," lit} ")" | "List(" type ")"
//	       | "Nullable(" type ")" | "Tuple(" types ")" | "Either(" types ")"
//	       | "Instance(" ident ")"
//	scalar = "Bool" | "Int" | "Float" | "String" | "Any"
//	lit    = quoted-string | ident
package property

import (
	"fmt"
	"strconv"
	"unicode"
)

// ParseType parses expr, e.g. `List(Tuple(String, Instance(Callback)))`.
func ParseType(expr string) (Type, error) {
	p := &typeParser{src: expr}
	t, err := p.parseType()
	if err != nil {
		return nil, fmt.Errorf("parse type %q: %w", expr, err)
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("parse type %q: unexpected %q at offset %d", expr, p.src[p.pos:], p.pos)
	}
	return t, nil
}

type typeParser struct {
	src string
	pos int
}

func (p *typeParser) parseType() (Type, error) {
	name := p.ident()
	switch name {
	case "":
		return nil, fmt.Errorf("expected type name at offset %d", p.pos)
	case "Bool":
		return Bool, nil
	case "Int":
		return Int, nil
	case "Float":
		return Float, nil
	case "String":
		return String, nil
	case "Any":
		return Any, nil
	case "Enum":
		if err := p.expect('('); err != nil {
			return nil, err
		}
		var values []string
		for {
			lit, err := p.literal()
			if err != nil {
				return nil, err
			}
			values = append(values, lit)
			if !p.accept(',') {
				break
			}
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return Enum(values...), nil
	case "List", "Nullable":
		if err := p.expect('('); err != nil {
			return nil, err
		}
		inner, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		if name == "List" {
			return List(inner), nil
		}
		return Nullable(inner), nil
	case "Tuple", "Either":
		if err := p.expect('('); err != nil {
			return nil, err
		}
		var ts []Type
		for {
			t, err := p.parseType()
			if err != nil {
				return nil, err
			}
			ts = append(ts, t)
			if !p.accept(',') {
				break
			}
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		if name == "Tuple" {
			return Tuple(ts...), nil
		}
		return Either(ts...), nil
	case "Instance":
		if err := p.expect('('); err != nil {
			return nil, err
		}
		target := p.ident()
		if target == "" {
			return nil, fmt.Errorf("expected type name in Instance at offset %d", p.pos)
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return Instance(target), nil
	}
	return nil, fmt.Errorf("unknown type %q", name)
}

func (p *typeParser) literal() (string, error) {
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == '"' {
		q, err := strconv.QuotedPrefix(p.src[p.pos:])
		if err != nil {
			return "", fmt.Errorf("bad string literal at offset %d: %w", p.pos, err)
		}
		p.pos += len(q)
		return strconv.Unquote(q)
	}
	if id := p.ident(); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("expected enum value at offset %d", p.pos)
}

func (p *typeParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		r := rune(p.src[p.pos])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *typeParser) accept(c byte) bool {
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *typeParser) expect(c byte) error {
	if !p.accept(c) {
		return fmt.Errorf("expected %q at offset %d", c, p.pos)
	}
	return nil
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}
