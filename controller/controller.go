// Package controller holds the state of one physical controller slot: its
// identity, its latest pose and its input/action registry.
package controller

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/Alia5/xrinput/action"
	"github.com/Alia5/xrinput/internal/metrics"
	"github.com/Alia5/xrinput/pose"
)

// DeviceIDInvalid marks an empty slot.
const DeviceIDInvalid = ^uint64(0)

var ErrInvalidDevice = errors.New("invalid device id")

type Handedness uint8

const (
	HandNone Handedness = iota
	HandLeft
	HandRight
)

func (h Handedness) String() string {
	switch h {
	case HandLeft:
		return "left"
	case HandRight:
		return "right"
	default:
		return "none"
	}
}

// HandednessFromRole matches "left" or "right" anywhere in role, ignoring case.
func HandednessFromRole(role string) Handedness {
	r := strings.ToLower(role)
	switch {
	case strings.Contains(r, "left"):
		return HandLeft
	case strings.Contains(r, "right"):
		return HandRight
	default:
		return HandNone
	}
}

// Identity describes the physical device occupying a slot.
type Identity struct {
	ID   uint64
	Role string
	Name string
}

// Controller is one controller slot. It is not safe for concurrent use;
// callers serialize registration against pose updates and translation.
type Controller struct {
	identity   Identity
	handedness Handedness
	pose       pose.Pose
	registry   *action.Registry

	angularVelInDeviceSpace bool

	baseLogger *slog.Logger
	logger     *slog.Logger
}

// New returns an empty slot. angularVelInDeviceSpace reports whether the
// tracking source already delivers angular velocity in device space.
func New(angularVelInDeviceSpace bool, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		identity:                Identity{ID: DeviceIDInvalid},
		registry:                action.NewRegistry(logger),
		angularVelInDeviceSpace: angularVelInDeviceSpace,
		baseLogger:              logger,
		logger:                  logger,
	}
}

// Register claims the slot for id and declares the device's client inputs.
// Server declarations and the bound profile survive re-registration; call
// SetProfile again after the client inputs change.
func (c *Controller) Register(id Identity, inputs []action.Input) error {
	if id.ID == DeviceIDInvalid {
		return ErrInvalidDevice
	}
	c.identity = id
	c.handedness = HandednessFromRole(id.Role)
	c.logger = c.baseLogger.With("device", id.ID, "hand", c.handedness.String())
	c.registry.RegisterClientInputs(inputs)
	c.pose = pose.Pose{}
	c.logger.Info("controller registered", "role", id.Role, "name", id.Name, "inputs", len(inputs))
	return nil
}

// Retire releases the slot. Pose updates become no-ops until the next
// Register.
func (c *Controller) Retire() {
	if c.identity.ID == DeviceIDInvalid {
		return
	}
	c.logger.Info("controller retired")
	c.identity = Identity{ID: DeviceIDInvalid}
	c.handedness = HandNone
	c.pose = pose.Pose{}
	c.logger = c.baseLogger
}

func (c *Controller) SetServerInputs(inputs []action.Input) { c.registry.RegisterServerInputs(inputs) }

func (c *Controller) SetServerActions(paths []string) { c.registry.RegisterActions(paths) }

// SetProfile compiles bindings for this controller.
func (c *Controller) SetProfile(bindings map[string]string) action.BindResult {
	res := c.registry.BindProfile(bindings)
	c.logger.Info("profile bound", "bound", res.Bound,
		"missing_inputs", len(res.MissingInputs), "unknown_actions", len(res.UnknownActions))
	return res
}

func (c *Controller) Identity() Identity { return c.identity }

func (c *Controller) Handedness() Handedness { return c.handedness }

func (c *Controller) Registry() *action.Registry { return c.registry }

func (c *Controller) Present() bool { return c.identity.ID != DeviceIDInvalid }

// Pose returns the last stored pose. Check Valid before using it.
func (c *Controller) Pose() pose.Pose { return c.pose }

// AngularVelocityFrame is the frame UpdatePose expects raw angular velocity in.
func (c *Controller) AngularVelocityFrame() pose.Frame {
	if c.angularVelInDeviceSpace {
		return pose.DeviceSpace
	}
	return pose.WorldSpace
}

// UpdatePose stores raw as the current pose. raw.AngularVelocity is expected
// in the frame reported by AngularVelocityFrame and is stored in device space.
// An invalid sample only updates the Connected and Valid flags.
func (c *Controller) UpdatePose(raw pose.Pose, timeOffset float32) {
	if c.identity.ID == DeviceIDInvalid {
		return
	}
	c.pose.Connected = raw.Connected
	c.pose.Valid = raw.Valid
	if !raw.Valid {
		return
	}
	c.pose.Position = raw.Position
	c.pose.Rotation = raw.Rotation
	c.pose.Velocity = raw.Velocity
	c.pose.Acceleration = raw.Acceleration
	c.pose.AngularAcceleration = raw.AngularAcceleration
	c.pose.AngularVelocity = pose.AngularVelocity(raw, c.AngularVelocityFrame(), pose.DeviceSpace)
	c.pose.TimeOffset = timeOffset
}

// TranslateEvents resolves raw input events to action events. Events whose
// type disagrees with the registered input, or whose input is unbound, are
// dropped.
func (c *Controller) TranslateEvents(events []action.InputEvent) []action.ActionEvent {
	out := make([]action.ActionEvent, 0, len(events))
	for _, ev := range events {
		in, ok := c.registry.ClientInput(uint32(ev.ClientIndex))
		if !ok || in.Type != ev.Value.Type {
			metrics.RecordEventDropped(metrics.DropTypeMismatch)
			c.logger.Error("input event does not match registered input, dropping",
				"index", ev.ClientIndex, "event_type", ev.Value.Type, "registered", ok, "registered_type", in.Type)
			continue
		}
		idx := c.registry.ResolveAction(uint32(ev.ClientIndex))
		if idx == action.NoAction {
			metrics.RecordEventDropped(metrics.DropUnbound)
			c.logger.Debug("input not bound to an action", "input", in.Path)
			continue
		}
		out = append(out, action.ActionEvent{ActionIndex: idx, Input: ev})
	}
	return out
}
