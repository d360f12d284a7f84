// Package session runs the per-frame input pipeline for every connected
// controller: device discovery, pose refresh, change detection and dispatch.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/Alia5/xrinput/controller"
	"github.com/Alia5/xrinput/detect"
	"github.com/Alia5/xrinput/device"
	"github.com/Alia5/xrinput/dispatch"
	"github.com/Alia5/xrinput/pose"
	"github.com/Alia5/xrinput/profile"
)

// DeviceCapabilities is what the polling API reports about one device.
type DeviceCapabilities struct {
	ID    uint64
	Class string
	Role  string
	Name  string
}

// Poller is the raw device polling API.
type Poller interface {
	EnumerateDevices(ctx context.Context) ([]DeviceCapabilities, error)
	SampleDeviceState(ctx context.Context, id uint64) (detect.Snapshot, error)
}

// TrackedPose is one prediction from the tracking collaborator.
type TrackedPose struct {
	Body      pose.RigidBody
	Connected bool
	Valid     bool
}

// Tracker predicts device poses offset into the future from now.
type Tracker interface {
	QueryPredictedPose(ctx context.Context, id uint64, offset time.Duration) (TrackedPose, error)
}

type slot struct {
	caps   DeviceCapabilities
	class  *device.Class
	ctrl   *controller.Controller
	handle dispatch.Handle
}

// Session owns one controller per detected device. It is driven from a
// single goroutine through Frame.
type Session struct {
	poller  Poller
	tracker Tracker
	decl    *profile.Declarations

	detector   *detect.Detector
	dispatcher *dispatch.Dispatcher

	slots       map[uint64]*slot
	unsupported map[uint64]string

	maxRetries int
	logger     *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxRetries bounds consecutive failed deliveries per device.
func WithMaxRetries(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithTracker sets the pose source. Without one, poses are never refreshed.
func WithTracker(t Tracker) Option {
	return func(s *Session) { s.tracker = t }
}

// New builds a session over every registered device class.
func New(poller Poller, sink dispatch.Sink, decl *profile.Declarations, opts ...Option) (*Session, error) {
	s := &Session{
		poller:      poller,
		decl:        decl,
		slots:       map[uint64]*slot{},
		unsupported: map[uint64]string{},
		maxRetries:  dispatch.DefaultMaxRetries,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.decl == nil {
		s.decl = &profile.Declarations{}
	}

	det, err := detect.New(device.Tables(), s.logger)
	if err != nil {
		return nil, fmt.Errorf("build detector: %w", err)
	}
	s.detector = det
	s.dispatcher = dispatch.New(sink, det, s.maxRetries, s.logger)
	return s, nil
}

// Frame runs one pass over every device. offset is the pose prediction
// offset handed to the tracker and stored as the pose time offset.
// Per-device failures are collected and returned together; they never stop
// the other devices.
func (s *Session) Frame(ctx context.Context, offset time.Duration) error {
	caps, err := s.poller.EnumerateDevices(ctx)
	if err != nil {
		return fmt.Errorf("enumerate devices: %w", err)
	}
	s.reconcile(caps)

	var errs []error
	for _, id := range slices.Sorted(maps.Keys(s.slots)) {
		sl := s.slots[id]
		if err := s.refreshPose(ctx, sl, offset); err != nil {
			errs = append(errs, err)
		}
		if err := s.processInput(ctx, sl); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Session) reconcile(caps []DeviceCapabilities) {
	seen := make(map[uint64]struct{}, len(caps))
	for _, c := range caps {
		seen[c.ID] = struct{}{}
		if _, ok := s.slots[c.ID]; ok {
			continue
		}
		if err := s.register(c); err != nil {
			if _, logged := s.unsupported[c.ID]; !logged {
				s.logger.Warn("ignoring device", "device", c.ID, "class", c.Class, "error", err)
				s.unsupported[c.ID] = c.Class
			}
		}
	}
	for id, sl := range s.slots {
		if _, ok := seen[id]; ok {
			continue
		}
		sl.ctrl.Retire()
		s.detector.Reset(id)
		s.dispatcher.Forget(id)
		delete(s.slots, id)
	}
	for id := range s.unsupported {
		if _, ok := seen[id]; !ok {
			delete(s.unsupported, id)
		}
	}
}

func (s *Session) register(c DeviceCapabilities) error {
	class := device.GetClass(c.Class)
	if class == nil || !s.detector.HasClass(class.Name) {
		return fmt.Errorf("%w: %q", detect.ErrUnknownClass, c.Class)
	}

	role := c.Role
	if role == "" {
		role = class.DefaultRole
	}
	logger := s.logger.With("class", class.Name)
	ctrl := controller.New(class.AngularVelocityInDeviceSpace, logger)
	if err := ctrl.Register(controller.Identity{ID: c.ID, Role: role, Name: c.Name}, class.Inputs); err != nil {
		return err
	}
	ctrl.SetServerInputs(s.decl.ServerInputs)
	ctrl.SetServerActions(s.decl.Actions)
	bindings, ok := s.decl.ProfileFor(class.Name)
	if !ok {
		logger.Warn("no binding profile for class, all input unbound")
	}
	ctrl.SetProfile(bindings)

	s.detector.Reset(c.ID)
	s.slots[c.ID] = &slot{caps: c, class: class, ctrl: ctrl, handle: dispatch.NewHandle()}
	delete(s.unsupported, c.ID)
	return nil
}

func (s *Session) refreshPose(ctx context.Context, sl *slot, offset time.Duration) error {
	if s.tracker == nil {
		return nil
	}
	tp, err := s.tracker.QueryPredictedPose(ctx, sl.caps.ID, offset)
	if err != nil {
		return fmt.Errorf("pose of device %d: %w", sl.caps.ID, err)
	}
	p := pose.Convert(tp.Body, sl.class.PoseOffset)
	p.Connected = tp.Connected
	p.Valid = tp.Valid
	sl.ctrl.UpdatePose(p, float32(offset.Seconds()))
	return nil
}

func (s *Session) processInput(ctx context.Context, sl *slot) error {
	id := sl.caps.ID
	snap, err := s.poller.SampleDeviceState(ctx, id)
	if err != nil {
		return fmt.Errorf("sample device %d: %w", id, err)
	}
	batches, err := s.detector.Diff(id, sl.class.Name, snap)
	if err != nil {
		return err
	}
	_, err = s.dispatcher.Dispatch(ctx, dispatch.Frame{
		DeviceID:   id,
		Handle:     sl.handle,
		Translator: sl.ctrl,
		Batches:    batches,
		Snapshot:   snap,
	})
	return err
}

// Controller returns the controller and sink handle of device id.
func (s *Session) Controller(id uint64) (*controller.Controller, dispatch.Handle, bool) {
	sl, ok := s.slots[id]
	if !ok {
		return nil, dispatch.Handle{}, false
	}
	return sl.ctrl, sl.handle, true
}

// Devices returns the ids of the registered devices, sorted.
func (s *Session) Devices() []uint64 { return slices.Sorted(maps.Keys(s.slots)) }

// ActionName returns the declared path of an action index.
func (s *Session) ActionName(_ dispatch.Handle, index uint32) string {
	if int(index) < len(s.decl.Actions) {
		return s.decl.Actions[index]
	}
	return fmt.Sprintf("action#%d", index)
}
