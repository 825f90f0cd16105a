package label

import (
	"fmt"
	"strings"

	"atp/internal/errors"
)

// SegmentKind distinguishes the two template segment variants
type SegmentKind int

const (
	// LiteralSegment is plain text emitted as-is
	LiteralSegment SegmentKind = iota
	// ReferenceSegment names a label replaced with its target identity
	ReferenceSegment
)

// Segment is one piece of a content field: either literal text or a
// reference to a label.
type Segment struct {
	Kind  SegmentKind
	Text  string // literal text, Kind == LiteralSegment
	Label string // referenced label, Kind == ReferenceSegment
}

// Template is a content field parsed into an ordered segment sequence.
// Parsing happens at declaration; resolving a template therefore never
// re-scans text, and already-resolved output cannot be re-interpreted
// as placeholders.
type Template []Segment

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdent(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}

// Parse converts raw content into a template. Placeholders are $label or
// ${label}; $$ emits a literal dollar sign. Any other use of $ is an
// invalid-label error so resolved output stays free of placeholder syntax.
func Parse(raw string) (Template, error) {
	var tpl Template
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			tpl = append(tpl, Segment{Kind: LiteralSegment, Text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(raw); {
		c := raw[i]
		if c != '$' {
			lit.WriteByte(c)
			i++
			continue
		}

		if i+1 >= len(raw) {
			return nil, invalidPlaceholder(raw, i)
		}

		switch {
		case raw[i+1] == '$':
			lit.WriteByte('$')
			i += 2

		case raw[i+1] == '{':
			end := strings.IndexByte(raw[i+2:], '}')
			if end < 0 {
				return nil, invalidPlaceholder(raw, i)
			}
			name := raw[i+2 : i+2+end]
			if !validLabel.MatchString(name) {
				return nil, invalidPlaceholder(raw, i)
			}
			flush()
			tpl = append(tpl, Segment{Kind: ReferenceSegment, Label: name})
			i += 2 + end + 1

		case isIdentStart(raw[i+1]):
			j := i + 1
			for j < len(raw) && isIdent(raw[j]) {
				j++
			}
			flush()
			tpl = append(tpl, Segment{Kind: ReferenceSegment, Label: raw[i+1 : j]})
			i = j

		default:
			return nil, invalidPlaceholder(raw, i)
		}
	}

	flush()
	return tpl, nil
}

func invalidPlaceholder(raw string, pos int) error {
	return errors.New(errors.InvalidLabel,
		fmt.Sprintf("invalid placeholder syntax at offset %d in %q", pos, raw)).
		WithRemedy("Reference labels as $label or ${label}; write $$ for a literal dollar sign.")
}

// Refs returns the labels referenced by the template, in order
func (tpl Template) Refs() []string {
	var refs []string
	for _, seg := range tpl {
		if seg.Kind == ReferenceSegment {
			refs = append(refs, seg.Label)
		}
	}
	return refs
}

// Resolve substitutes every reference with its bound target. All
// undefined labels in the template are collected rather than failing at
// the first, so one run reports every fault.
func (tpl Template) Resolve(tab *Table) (string, []*errors.ScriptError) {
	var out strings.Builder
	var faults []*errors.ScriptError

	for _, seg := range tpl {
		switch seg.Kind {
		case LiteralSegment:
			out.WriteString(seg.Text)
		case ReferenceSegment:
			target, err := tab.Resolve(seg.Label)
			if err != nil {
				faults = append(faults, err.(*errors.ScriptError))
				continue
			}
			out.WriteString(target)
		}
	}

	if len(faults) > 0 {
		return "", faults
	}
	return out.String(), nil
}
