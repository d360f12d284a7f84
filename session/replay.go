package session

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/Alia5/xrinput/detect"
	"github.com/Alia5/xrinput/device"
	"github.com/Alia5/xrinput/pose"
)

var ErrNoSample = errors.New("device has no sample in this frame")

// Trace is a recorded sequence of device polls.
//
//	devices:
//	  - {id: 1, class: touch-right, name: Right Touch}
//	frames:
//	  - at: 11ms
//	    samples:
//	      - device: 1
//	        buttons: 0x20000000
//	        axes: [0.9, 0, 0, 0]
//	        pose: {valid: true, connected: true, position: [0, 1.2, -0.3], rotation: [1, 0, 0, 0]}
//
// A device is connected in exactly the frames that carry a sample for it.
// A sample either lists buttons, touches and axes, or carries the class's
// binary state as hex in raw.
type Trace struct {
	Devices []TraceDevice `yaml:"devices"`
	Frames  []TraceFrame  `yaml:"frames"`
}

type TraceDevice struct {
	ID    uint64 `yaml:"id"`
	Class string `yaml:"class"`
	Role  string `yaml:"role,omitempty"`
	Name  string `yaml:"name,omitempty"`
}

type TraceFrame struct {
	At      time.Duration `yaml:"at"`
	Samples []TraceSample `yaml:"samples"`
}

type TraceSample struct {
	Device  uint64     `yaml:"device"`
	Buttons uint64     `yaml:"buttons,omitempty"`
	Touches uint64     `yaml:"touches,omitempty"`
	Axes    []float32  `yaml:"axes,omitempty"`
	Raw     string     `yaml:"raw,omitempty"`
	Pose    *TracePose `yaml:"pose,omitempty"`
}

type TracePose struct {
	Connected       bool       `yaml:"connected"`
	Valid           bool       `yaml:"valid"`
	Position        [3]float64 `yaml:"position"`
	Rotation        [4]float64 `yaml:"rotation"` // w, x, y, z
	Velocity        [3]float64 `yaml:"velocity,omitempty"`
	AngularVelocity [3]float64 `yaml:"angularVelocity,omitempty"`
}

func vec(v [3]float64) r3.Vec { return r3.Vec{X: v[0], Y: v[1], Z: v[2]} }

// Replay serves a Trace as both Poller and Tracker, one frame at a time.
type Replay struct {
	trace   Trace
	devices map[uint64]TraceDevice
	frame   int
	samples map[uint64]TraceSample
}

// LoadReplay reads a YAML trace file.
func LoadReplay(path string) (*Replay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	return ParseReplay(data)
}

// ParseReplay parses a YAML trace. The replay starts before the first frame;
// call Advance to enter it.
func ParseReplay(data []byte) (*Replay, error) {
	var t Trace
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse trace: %w", err)
	}
	r := &Replay{trace: t, devices: map[uint64]TraceDevice{}, frame: -1}
	for _, d := range t.Devices {
		if _, dup := r.devices[d.ID]; dup {
			return nil, fmt.Errorf("trace: device %d declared twice", d.ID)
		}
		r.devices[d.ID] = d
	}
	for i, f := range t.Frames {
		for _, s := range f.Samples {
			if _, ok := r.devices[s.Device]; !ok {
				return nil, fmt.Errorf("trace: frame %d: undeclared device %d", i, s.Device)
			}
		}
	}
	return r, nil
}

// Advance moves to the next frame and reports whether there was one.
func (r *Replay) Advance() bool {
	if r.frame+1 >= len(r.trace.Frames) {
		return false
	}
	r.frame++
	r.samples = make(map[uint64]TraceSample, len(r.trace.Frames[r.frame].Samples))
	for _, s := range r.trace.Frames[r.frame].Samples {
		r.samples[s.Device] = s
	}
	return true
}

// Len returns the number of frames.
func (r *Replay) Len() int { return len(r.trace.Frames) }

// At returns the timestamp of the current frame.
func (r *Replay) At() time.Duration {
	if r.frame < 0 {
		return 0
	}
	return r.trace.Frames[r.frame].At
}

func (r *Replay) EnumerateDevices(context.Context) ([]DeviceCapabilities, error) {
	if r.frame < 0 {
		return nil, nil
	}
	var out []DeviceCapabilities
	for _, s := range r.trace.Frames[r.frame].Samples {
		d := r.devices[s.Device]
		out = append(out, DeviceCapabilities{ID: d.ID, Class: d.Class, Role: d.Role, Name: d.Name})
	}
	return out, nil
}

func (r *Replay) SampleDeviceState(_ context.Context, id uint64) (detect.Snapshot, error) {
	s, ok := r.samples[id]
	if !ok {
		return detect.Snapshot{}, fmt.Errorf("%w: device %d", ErrNoSample, id)
	}
	ts := uint64(r.At())
	if s.Raw == "" {
		return detect.Snapshot{Buttons: s.Buttons, Touches: s.Touches, Axes: s.Axes, Timestamp: ts}, nil
	}

	class := device.GetClass(r.devices[id].Class)
	if class == nil {
		return detect.Snapshot{}, fmt.Errorf("%w: %q", detect.ErrUnknownClass, r.devices[id].Class)
	}
	data, err := hex.DecodeString(s.Raw)
	if err != nil {
		return detect.Snapshot{}, fmt.Errorf("device %d raw state: %w", id, err)
	}
	snap, err := class.Decode(data)
	if err != nil {
		return detect.Snapshot{}, err
	}
	snap.Timestamp = ts
	return snap, nil
}

// QueryPredictedPose returns the recorded pose; offset is ignored. A sample
// without a pose reports a disconnected device.
func (r *Replay) QueryPredictedPose(_ context.Context, id uint64, _ time.Duration) (TrackedPose, error) {
	s, ok := r.samples[id]
	if !ok {
		return TrackedPose{}, fmt.Errorf("%w: device %d", ErrNoSample, id)
	}
	if s.Pose == nil {
		return TrackedPose{}, nil
	}
	p := s.Pose
	rot := quat.Number{Real: p.Rotation[0], Imag: p.Rotation[1], Jmag: p.Rotation[2], Kmag: p.Rotation[3]}
	if n := quat.Abs(rot); n > 0 {
		rot = quat.Scale(1/n, rot)
	} else {
		rot = quat.Number{Real: 1}
	}
	return TrackedPose{
		Body: pose.RigidBody{
			Transform:       pose.MatrixFromQuat(rot, vec(p.Position)),
			Velocity:        vec(p.Velocity),
			AngularVelocity: vec(p.AngularVelocity),
		},
		Connected: p.Connected,
		Valid:     p.Valid,
	}, nil
}
