package column

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Kind tags the variant held by a Value, mirroring the typed literals the
// statement tree carries (§3.4).
type Kind int

const (
	KindInteger Kind = iota
	KindFloat
	KindBoolean
	KindString
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "INTEGER"
	case KindFloat:
		return "FLOAT"
	case KindBoolean:
		return "BOOLEAN"
	case KindString:
		return "STRING"
	case KindArray:
		return "ARRAY"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is a typed literal: one of INTEGER, FLOAT, BOOLEAN, STRING or
// ARRAY<Value>. Only one of the fields below is meaningful, selected by Kind.
type Value struct {
	Kind Kind
	I    int32
	F    float32
	B    bool
	S    string
	A    []Value
}

func Int(v int32) Value       { return Value{Kind: KindInteger, I: v} }
func Float(v float32) Value   { return Value{Kind: KindFloat, F: v} }
func Bool(v bool) Value       { return Value{Kind: KindBoolean, B: v} }
func Str(v string) Value      { return Value{Kind: KindString, S: v} }
func Array(v []Value) Value   { return Value{Kind: KindArray, A: v} }

// SameKind reports whether v and o hold the same variant, the precondition
// the parser must enforce for homogeneous array literals (§4.5.1).
func (v Value) SameKind(o Value) bool { return v.Kind == o.Kind }

// Compare orders two values of the same, orderable kind. ARRAY is not
// orderable; comparing mismatched kinds is a type error.
func (v Value) Compare(o Value) (int, error) {
	if v.Kind != o.Kind {
		return 0, fmt.Errorf("cannot compare %s with %s", v.Kind, o.Kind)
	}
	switch v.Kind {
	case KindInteger:
		switch {
		case v.I < o.I:
			return -1, nil
		case v.I > o.I:
			return 1, nil
		default:
			return 0, nil
		}
	case KindFloat:
		switch {
		case v.F < o.F:
			return -1, nil
		case v.F > o.F:
			return 1, nil
		default:
			return 0, nil
		}
	case KindBoolean:
		switch {
		case v.B == o.B:
			return 0, nil
		case !v.B && o.B:
			return -1, nil
		default:
			return 1, nil
		}
	case KindString:
		return strings.Compare(v.S, o.S), nil
	default:
		return 0, fmt.Errorf("%s values are not orderable", v.Kind)
	}
}

// Equal reports value equality, including element-wise equality for arrays.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	if v.Kind == KindArray {
		if len(v.A) != len(o.A) {
			return false
		}
		for i := range v.A {
			if !v.A[i].Equal(o.A[i]) {
				return false
			}
		}
		return true
	}
	c, err := v.Compare(o)
	return err == nil && c == 0
}

// In tests membership of v in array o.A, per the IN/NOT-IN operator.
func (v Value) In(o Value) (bool, error) {
	if o.Kind != KindArray {
		return false, fmt.Errorf("right-hand side of IN must be an array, got %s", o.Kind)
	}
	for _, item := range o.A {
		if v.Equal(item) {
			return true, nil
		}
	}
	return false, nil
}

func (v Value) String() string {
	switch v.Kind {
	case KindInteger:
		return strconv.FormatInt(int64(v.I), 10)
	case KindFloat:
		return strconv.FormatFloat(float64(v.F), 'g', -1, 32)
	case KindBoolean:
		return strconv.FormatBool(v.B)
	case KindString:
		return v.S
	case KindArray:
		var b bytes.Buffer
		b.WriteByte('[')
		for i, item := range v.A {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(item.String())
		}
		b.WriteByte(']')
		return b.String()
	default:
		return "<invalid>"
	}
}
