package detect

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var ErrInvalidTable = errors.New("invalid class table")

// Source selects which digital mask of a Snapshot a bit is read from.
type Source uint8

const (
	Buttons Source = iota
	Touches
)

func (s Source) String() string {
	if s == Touches {
		return "touches"
	}
	return "buttons"
}

// BitBinding maps one bit of a digital mask to a client input index.
type BitBinding struct {
	Source Source
	Bit    uint8
	Input  uint16
}

// AxisBinding maps one entry of Snapshot.Axes to a client input index.
type AxisBinding struct {
	Axis  int
	Input uint16
}

// ClassTable is the bit/axis layout of one device class. Bits absent from
// the table never produce events.
type ClassTable struct {
	Name string
	Bits []BitBinding
	Axes []AxisBinding
}

const unbound = -1

type compiledTable struct {
	name string
	bits [2][64]int32
	axes []AxisBinding
}

func compile(t ClassTable) (*compiledTable, error) {
	if t.Name == "" {
		return nil, fmt.Errorf("%w: empty class name", ErrInvalidTable)
	}
	c := &compiledTable{name: t.Name}
	for s := range c.bits {
		for b := range c.bits[s] {
			c.bits[s][b] = unbound
		}
	}
	for _, b := range t.Bits {
		if b.Source > Touches {
			return nil, fmt.Errorf("%w: %s: unknown source %d", ErrInvalidTable, t.Name, b.Source)
		}
		if b.Bit >= 64 {
			return nil, fmt.Errorf("%w: %s: bit %d out of range", ErrInvalidTable, t.Name, b.Bit)
		}
		if c.bits[b.Source][b.Bit] != unbound {
			return nil, fmt.Errorf("%w: %s: %s bit %d bound twice", ErrInvalidTable, t.Name, b.Source, b.Bit)
		}
		c.bits[b.Source][b.Bit] = int32(b.Input)
	}
	for _, a := range t.Axes {
		if a.Axis < 0 {
			return nil, fmt.Errorf("%w: %s: negative axis %d", ErrInvalidTable, t.Name, a.Axis)
		}
	}
	c.axes = slices.Clone(t.Axes)
	return c, nil
}

func classKey(name string) string { return strings.ToLower(name) }
