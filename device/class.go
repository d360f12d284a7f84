// Package device describes the controller classes the client knows how to
// sample: their client input declarations, their raw state wire form and the
// bit/axis table the change detector uses for them.
package device

import (
	"encoding"
	"fmt"
	"io"
	"math/bits"
	"sort"
	"strings"
	"sync"

	"github.com/Alia5/xrinput/action"
	"github.com/Alia5/xrinput/detect"
	"github.com/Alia5/xrinput/pose"
)

// State is one raw sample of a device in its fixed binary form.
type State interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
	Snapshot() detect.Snapshot
}

// Class describes one controller family.
type Class struct {
	Name string
	// DefaultRole is used when the device reports no role of its own.
	DefaultRole string
	Inputs      []action.Input
	Table       detect.ClassTable
	// StateSize is the length of the binary form of State.
	StateSize int
	NewState  func() State

	AngularVelocityInDeviceSpace bool
	// PoseOffset is applied in device space to every tracked pose. Nil means
	// no offset.
	PoseOffset *pose.Matrix34
}

// Decode parses one binary state frame into a snapshot.
func (c *Class) Decode(data []byte) (detect.Snapshot, error) {
	if len(data) < c.StateSize {
		return detect.Snapshot{}, io.ErrUnexpectedEOF
	}
	s := c.NewState()
	if err := s.UnmarshalBinary(data[:c.StateSize]); err != nil {
		return detect.Snapshot{}, fmt.Errorf("decode %s state: %w", c.Name, err)
	}
	return s.Snapshot(), nil
}

var (
	classRegistry   = make(map[string]*Class)
	classRegistryMu sync.RWMutex
)

// RegisterClass registers or replaces a class. Class packages call it from
// init(). The name is case-insensitive.
func RegisterClass(c *Class) {
	classRegistryMu.Lock()
	defer classRegistryMu.Unlock()
	c.Table.Name = c.Name
	classRegistry[strings.ToLower(c.Name)] = c
}

// GetClass returns the class registered under name, or nil.
func GetClass(name string) *Class {
	classRegistryMu.RLock()
	defer classRegistryMu.RUnlock()
	return classRegistry[strings.ToLower(name)]
}

// ListClasses returns the registered class names, sorted.
func ListClasses() []string {
	classRegistryMu.RLock()
	defer classRegistryMu.RUnlock()
	names := make([]string, 0, len(classRegistry))
	for _, c := range classRegistry {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names
}

// Tables returns the detector tables of every registered class.
func Tables() []detect.ClassTable {
	classRegistryMu.RLock()
	defer classRegistryMu.RUnlock()
	tables := make([]detect.ClassTable, 0, len(classRegistry))
	for _, c := range classRegistry {
		tables = append(tables, c.Table)
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })
	return tables
}

// BitIndex returns the position of the lowest set bit of mask.
func BitIndex(mask uint64) uint8 {
	if mask == 0 {
		panic("device: empty mask")
	}
	return uint8(bits.TrailingZeros64(mask))
}

// InputSpec describes one client input of a class. Boolean inputs are read
// from Mask of Source; Float32 inputs from Snapshot.Axes[Axis].
type InputSpec struct {
	Path   string
	Type   action.ValueType
	Source detect.Source
	Mask   uint64
	Axis   int
}

// Layout turns specs into client input declarations, indexed by position,
// and the matching detector table.
func Layout(specs []InputSpec) ([]action.Input, detect.ClassTable) {
	inputs := make([]action.Input, len(specs))
	var table detect.ClassTable
	for i, s := range specs {
		inputs[i] = action.Input{Path: s.Path, Type: s.Type}
		if s.Type == action.Float32 {
			table.Axes = append(table.Axes, detect.AxisBinding{Axis: s.Axis, Input: uint16(i)})
			continue
		}
		table.Bits = append(table.Bits, detect.BitBinding{Source: s.Source, Bit: BitIndex(s.Mask), Input: uint16(i)})
	}
	return inputs, table
}
