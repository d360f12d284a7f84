// Package action resolves client input channels to server-declared actions.
//
// A Registry holds three independently populated namespaces: the inputs a
// client device declares, the inputs the server knows about, and the actions
// the server exposes. BindProfile compiles a symbolic profile
// (input path -> action path) into a dense client index -> action index
// table that is consulted once per input event.
//
// A Registry is not safe for concurrent use. Registration and binding must
// not race with ResolveAction on the same Registry.
package action

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/Alia5/xrinput/internal/metrics"
)

// NoAction is returned by ResolveAction for client inputs without a binding.
//
// Action indices are registration positions, so an action registered first
// also has index 0. Servers reserve that slot for a placeholder action; use
// Lookup to tell a binding to index 0 apart from no binding at all.
const NoAction uint32 = 0

// Input declares one input channel.
type Input struct {
	Path string
	Type ValueType
}

// Descriptor is one registered entry of a namespace.
type Descriptor struct {
	Path  string
	Type  ValueType
	Index uint32
}

// BindResult summarizes one BindProfile call.
type BindResult struct {
	Bound          int
	MissingInputs  []string
	UnknownActions []string
}

// namespace keeps descriptors in registration order plus a path index.
type namespace struct {
	descriptors []Descriptor
	byPath      map[string]uint32
}

func newNamespace(inputs []Input, logger *slog.Logger, kind string) namespace {
	ns := namespace{
		descriptors: make([]Descriptor, len(inputs)),
		byPath:      make(map[string]uint32, len(inputs)),
	}
	for i, in := range inputs {
		ns.descriptors[i] = Descriptor{Path: in.Path, Type: in.Type, Index: uint32(i)}
		if prev, dup := ns.byPath[in.Path]; dup {
			logger.Warn("duplicate path in registration, keeping first index",
				"namespace", kind, "path", in.Path, "kept", prev, "ignored", i)
			continue
		}
		ns.byPath[in.Path] = uint32(i)
	}
	return ns
}

func (n *namespace) lookup(path string) (Descriptor, bool) {
	i, ok := n.byPath[path]
	if !ok {
		return Descriptor{}, false
	}
	return n.descriptors[i], true
}

func (n *namespace) at(i uint32) (Descriptor, bool) {
	if int(i) >= len(n.descriptors) {
		return Descriptor{}, false
	}
	return n.descriptors[i], true
}

// Registry is the per-controller input/action map.
type Registry struct {
	client  namespace
	server  namespace
	actions namespace

	profile map[string]string
	remap   map[uint32]uint32

	logger *slog.Logger
}

// NewRegistry returns an empty registry. A nil logger uses slog.Default().
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		profile: map[string]string{},
		remap:   map[uint32]uint32{},
		logger:  logger,
	}
}

// RegisterClientInputs replaces the client namespace. Indices are slice
// positions. The current bindings are left untouched until the next
// BindProfile.
func (r *Registry) RegisterClientInputs(inputs []Input) {
	r.client = newNamespace(inputs, r.logger, "client")
}

// RegisterServerInputs replaces the server input namespace. Paths also
// declared by the client are type-checked; a mismatch is only reported.
func (r *Registry) RegisterServerInputs(inputs []Input) {
	r.server = newNamespace(inputs, r.logger, "server")
	for _, in := range inputs {
		c, ok := r.client.lookup(in.Path)
		if !ok || c.Type == in.Type {
			continue
		}
		metrics.RecordBindingDefect(metrics.DefectTypeMismatch)
		r.logger.Warn("client and server declare different types for input",
			"path", in.Path, "client", c.Type, "server", in.Type)
	}
}

// RegisterActions replaces the action namespace. Action indices are slice
// positions.
func (r *Registry) RegisterActions(paths []string) {
	inputs := make([]Input, len(paths))
	for i, p := range paths {
		inputs[i] = Input{Path: p}
	}
	r.actions = newNamespace(inputs, r.logger, "action")
}

// BindProfile compiles bindings (client input path -> action path) into a
// new remap table, replacing the previous table and effective profile as a
// whole. Bindings naming an unknown input or action are dropped and
// reported; the rest are still bound.
func (r *Registry) BindProfile(bindings map[string]string) BindResult {
	var res BindResult
	remap := make(map[uint32]uint32, len(bindings))
	profile := make(map[string]string, len(bindings))

	for _, inputPath := range slices.Sorted(maps.Keys(bindings)) {
		actionPath := bindings[inputPath]

		in, ok := r.client.lookup(inputPath)
		if !ok {
			metrics.RecordBindingDefect(metrics.DefectMissingInput)
			r.logger.Warn("bind profile: client has no such input", "input", inputPath)
			res.MissingInputs = append(res.MissingInputs, inputPath)
			continue
		}
		act, ok := r.actions.lookup(actionPath)
		if !ok {
			metrics.RecordBindingDefect(metrics.DefectUnknownAction)
			r.logger.Error("bind profile: server has no such action", "input", inputPath, "action", actionPath)
			res.UnknownActions = append(res.UnknownActions, actionPath)
			continue
		}
		if act.Index == NoAction {
			r.logger.Warn("bind profile: action occupies the reserved index 0 and resolves as unbound",
				"input", inputPath, "action", actionPath)
		}

		r.logger.Debug("profile binding", "input", inputPath, "action", actionPath)
		remap[in.Index] = act.Index
		profile[inputPath] = actionPath
		res.Bound++
	}

	r.remap = remap
	r.profile = profile
	return res
}

// ResolveAction returns the action bound to a client input index, or
// NoAction.
func (r *Registry) ResolveAction(clientIndex uint32) uint32 {
	if a, ok := r.remap[clientIndex]; ok {
		return a
	}
	return NoAction
}

// Lookup reports the bound action index and whether a binding exists.
func (r *Registry) Lookup(clientIndex uint32) (uint32, bool) {
	a, ok := r.remap[clientIndex]
	return a, ok
}

// ClientInput returns the client descriptor registered at index.
func (r *Registry) ClientInput(index uint32) (Descriptor, bool) { return r.client.at(index) }

// ClientInputByPath returns the client descriptor registered for path.
func (r *Registry) ClientInputByPath(path string) (Descriptor, bool) { return r.client.lookup(path) }

// ServerInput returns the server descriptor registered for path.
func (r *Registry) ServerInput(path string) (Descriptor, bool) { return r.server.lookup(path) }

// Action returns the action descriptor registered for path.
func (r *Registry) Action(path string) (Descriptor, bool) { return r.actions.lookup(path) }

// ClientInputs returns the client namespace in index order.
func (r *Registry) ClientInputs() []Descriptor { return slices.Clone(r.client.descriptors) }

// EffectiveProfile returns a copy of the bindings that survived the last
// BindProfile.
func (r *Registry) EffectiveProfile() map[string]string { return maps.Clone(r.profile) }
