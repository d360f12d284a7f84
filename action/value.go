package action

import (
	"fmt"
	"strings"
)

// ValueType is the declared data type of one input channel.
type ValueType uint8

const (
	Boolean ValueType = iota
	Float32
)

func (t ValueType) String() string {
	switch t {
	case Boolean:
		return "boolean"
	case Float32:
		return "float32"
	default:
		return fmt.Sprintf("ValueType(%d)", uint8(t))
	}
}

// ParseValueType accepts the names used in declaration files.
func ParseValueType(s string) (ValueType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "boolean", "bool":
		return Boolean, nil
	case "float32", "float", "scalar":
		return Float32, nil
	default:
		return 0, fmt.Errorf("unknown value type %q", s)
	}
}

// Value is a typed input value. Only the field matching Type is meaningful.
type Value struct {
	Type  ValueType
	Bool  bool
	Float float32
}

func BoolValue(b bool) Value { return Value{Type: Boolean, Bool: b} }
func FloatValue(f float32) Value { return Value{Type: Float32, Float: f} }

// Equal compares type and the active field only.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	if v.Type == Boolean {
		return v.Bool == o.Bool
	}
	return v.Float == o.Float
}

func (v Value) String() string {
	if v.Type == Boolean {
		return fmt.Sprintf("%t", v.Bool)
	}
	return fmt.Sprintf("%g", v.Float)
}

// InputEvent is one change of a client input channel, as produced by the
// change detector.
type InputEvent struct {
	ClientIndex uint16
	Timestamp   uint64
	Value       Value
}

// ActionEvent is an InputEvent resolved to a server action.
type ActionEvent struct {
	ActionIndex uint32
	Input       InputEvent
}
