package builder

import (
	"github.com/yaramod/yaramod-go/errs"
	"github.com/yaramod/yaramod-go/hexstring"
)

// YaraHexStringBuilder assembles a hex string's unit sequence. Unlike the
// other three builders, it owns no token.Stream: hexstring.Unit is a pure
// value type with no token linkage of its own, and the tokens that spell a
// hex string out are only minted once Rule.AddString attaches it to a rule.
type YaraHexStringBuilder struct {
	units []hexstring.Unit
	err   error
}

// NewHexString starts an empty hex string.
func NewHexString() YaraHexStringBuilder {
	return YaraHexStringBuilder{}
}

func (b YaraHexStringBuilder) push(u hexstring.Unit) YaraHexStringBuilder {
	if b.err != nil {
		return b
	}
	units := make([]hexstring.Unit, len(b.units), len(b.units)+1)
	copy(units, b.units)
	b.units = append(units, u)
	return b
}

// Byte appends a fully-specified byte, e.g. Byte(0x1A) for the "1A" unit.
func (b YaraHexStringBuilder) Byte(v byte) YaraHexStringBuilder {
	return b.push(hexstring.NewNibble(v))
}

// Bytes appends a run of fully-specified bytes.
func (b YaraHexStringBuilder) Bytes(vs ...byte) YaraHexStringBuilder {
	for _, v := range vs {
		b = b.Byte(v)
	}
	return b
}

// Wildcard appends a fully-wildcarded byte, "??".
func (b YaraHexStringBuilder) Wildcard() YaraHexStringBuilder {
	return b.push(hexstring.NewWildcard())
}

// WildcardLow appends a "?X" unit: low nibble unknown, high nibble known.
func (b YaraHexStringBuilder) WildcardLow(high byte) YaraHexStringBuilder {
	return b.push(hexstring.NewWildcardLow(high))
}

// WildcardHigh appends an "X?" unit: high nibble unknown, low nibble known.
func (b YaraHexStringBuilder) WildcardHigh(low byte) YaraHexStringBuilder {
	return b.push(hexstring.NewWildcardHigh(low))
}

// Jump appends a bounded jump range, "[lo-hi]", or "[n]" when lo == hi.
func (b YaraHexStringBuilder) Jump(lo, hi int) YaraHexStringBuilder {
	if b.err != nil {
		return b
	}
	u, err := hexstring.NewJump(lo, hi, true, true)
	if err != nil {
		return YaraHexStringBuilder{err: errs.NewBuilderError("%v", err)}
	}
	return b.push(u)
}

// JumpOpenLow appends a low-open jump, "[-hi]".
func (b YaraHexStringBuilder) JumpOpenLow(hi int) YaraHexStringBuilder {
	if b.err != nil {
		return b
	}
	u, err := hexstring.NewJump(0, hi, false, true)
	if err != nil {
		return YaraHexStringBuilder{err: errs.NewBuilderError("%v", err)}
	}
	return b.push(u)
}

// JumpOpenHigh appends a high-open jump, "[lo-]".
func (b YaraHexStringBuilder) JumpOpenHigh(lo int) YaraHexStringBuilder {
	if b.err != nil {
		return b
	}
	u, err := hexstring.NewJump(lo, 0, true, false)
	if err != nil {
		return YaraHexStringBuilder{err: errs.NewBuilderError("%v", err)}
	}
	return b.push(u)
}

// JumpUnbounded appends a fully unbounded jump, "[-]".
func (b YaraHexStringBuilder) JumpUnbounded() YaraHexStringBuilder {
	u, _ := hexstring.NewJump(0, 0, false, false)
	return b.push(u)
}

// Alt appends an alternation of two or more branches, each built by its own
// YaraHexStringBuilder, e.g. Alt(NewHexString().Byte(1), NewHexString().Byte(2)).
func (b YaraHexStringBuilder) Alt(branches ...YaraHexStringBuilder) YaraHexStringBuilder {
	if b.err != nil {
		return b
	}
	if len(branches) < 2 {
		return YaraHexStringBuilder{err: errs.NewBuilderError("hex alternation needs at least two branches, got %d", len(branches))}
	}
	alts := make([][]hexstring.Unit, 0, len(branches))
	for _, br := range branches {
		if br.err != nil {
			return YaraHexStringBuilder{err: br.err}
		}
		alts = append(alts, br.units)
	}
	return b.push(hexstring.NewAlternation(alts...))
}

// Get finalizes the builder, returning an error if the hex string is empty
// or if any combinator call along the way failed.
func (b YaraHexStringBuilder) Get() ([]hexstring.Unit, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.units) == 0 {
		return nil, errs.NewBuilderError("hex string has no units")
	}
	return b.units, nil
}
