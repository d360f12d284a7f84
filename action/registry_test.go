package action_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/xrinput/action"
)

func TestResolveActionUnbound(t *testing.T) {
	type testCase struct {
		name  string
		setup func(r *action.Registry)
	}

	testCases := []testCase{
		{
			name:  "empty registry",
			setup: func(r *action.Registry) {},
		},
		{
			name: "registered but never bound",
			setup: func(r *action.Registry) {
				r.RegisterClientInputs([]action.Input{{Path: "/input/a/click", Type: action.Boolean}})
				r.RegisterActions([]string{"none", "jump"})
			},
		},
		{
			name: "bound with an empty profile",
			setup: func(r *action.Registry) {
				r.RegisterClientInputs([]action.Input{{Path: "/input/a/click", Type: action.Boolean}})
				r.RegisterActions([]string{"none", "jump"})
				r.BindProfile(map[string]string{})
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := action.NewRegistry(nil)
			tc.setup(r)
			for i := uint32(0); i < 128; i++ {
				assert.Equal(t, action.NoAction, r.ResolveAction(i), "index %d", i)
				_, ok := r.Lookup(i)
				assert.False(t, ok)
			}
		})
	}
}

func TestBindProfileRoundTrip(t *testing.T) {
	r := action.NewRegistry(nil)
	r.RegisterClientInputs([]action.Input{{Path: "/input/trigger/value", Type: action.Float32}})
	r.RegisterServerInputs([]action.Input{{Path: "/input/trigger/value", Type: action.Float32}})
	r.RegisterActions([]string{"dummy", "grab"})

	res := r.BindProfile(map[string]string{"/input/trigger/value": "grab"})

	assert.Equal(t, 1, res.Bound)
	assert.Empty(t, res.MissingInputs)
	assert.Empty(t, res.UnknownActions)

	grab, ok := r.Action("grab")
	require.True(t, ok)
	assert.Equal(t, uint32(1), grab.Index)
	assert.Equal(t, grab.Index, r.ResolveAction(0))
	assert.Equal(t, map[string]string{"/input/trigger/value": "grab"}, r.EffectiveProfile())
}

func TestBindToActionZero(t *testing.T) {
	// Index 0 doubles as the unbound sentinel: ResolveAction cannot tell the
	// two apart, Lookup can.
	r := action.NewRegistry(nil)
	r.RegisterClientInputs([]action.Input{
		{Path: "/input/a/click", Type: action.Boolean},
		{Path: "/input/b/click", Type: action.Boolean},
	})
	r.RegisterActions([]string{"grab"})

	res := r.BindProfile(map[string]string{"/input/a/click": "grab"})
	assert.Equal(t, 1, res.Bound)

	assert.Equal(t, action.NoAction, r.ResolveAction(0))
	assert.Equal(t, action.NoAction, r.ResolveAction(1))

	idx, ok := r.Lookup(0)
	assert.True(t, ok)
	assert.Equal(t, uint32(0), idx)

	_, ok = r.Lookup(1)
	assert.False(t, ok)
}

func TestServerInputTypeMismatchIsAdvisory(t *testing.T) {
	r := action.NewRegistry(nil)
	r.RegisterClientInputs([]action.Input{{Path: "/input/x", Type: action.Boolean}})

	assert.NotPanics(t, func() {
		r.RegisterServerInputs([]action.Input{{Path: "/input/x", Type: action.Float32}})
	})

	r.RegisterActions([]string{"none", "press"})
	res := r.BindProfile(map[string]string{"/input/x": "press"})

	assert.Equal(t, 1, res.Bound)
	assert.Equal(t, uint32(1), r.ResolveAction(0))

	c, ok := r.ClientInput(0)
	require.True(t, ok)
	assert.Equal(t, action.Boolean, c.Type, "server registration must not touch the client namespace")
	s, ok := r.ServerInput("/input/x")
	require.True(t, ok)
	assert.Equal(t, action.Float32, s.Type)
}

func TestRebindReplaces(t *testing.T) {
	r := action.NewRegistry(nil)
	r.RegisterClientInputs([]action.Input{
		{Path: "/input/a/click", Type: action.Boolean},
		{Path: "/input/b/click", Type: action.Boolean},
		{Path: "/input/trigger/value", Type: action.Float32},
	})
	r.RegisterActions([]string{"none", "jump", "crouch", "fire"})

	r.BindProfile(map[string]string{
		"/input/a/click": "jump",
		"/input/b/click": "crouch",
	})
	assert.Equal(t, uint32(1), r.ResolveAction(0))
	assert.Equal(t, uint32(2), r.ResolveAction(1))

	r.BindProfile(map[string]string{"/input/trigger/value": "fire"})

	assert.Equal(t, action.NoAction, r.ResolveAction(0))
	assert.Equal(t, action.NoAction, r.ResolveAction(1))
	assert.Equal(t, uint32(3), r.ResolveAction(2))
	assert.Equal(t, map[string]string{"/input/trigger/value": "fire"}, r.EffectiveProfile())
}

func TestBindProfileDefects(t *testing.T) {
	type testCase struct {
		name            string
		bindings        map[string]string
		expectedBound   int
		expectedMissing []string
		expectedUnknown []string
		expectedProfile map[string]string
	}

	testCases := []testCase{
		{
			name: "missing client input is skipped",
			bindings: map[string]string{
				"/input/a/click":        "jump",
				"/input/thumbrest/touch": "rest",
			},
			expectedBound:   1,
			expectedMissing: []string{"/input/thumbrest/touch"},
			expectedProfile: map[string]string{"/input/a/click": "jump"},
		},
		{
			name: "unknown action is skipped",
			bindings: map[string]string{
				"/input/a/click": "jump",
				"/input/b/click": "teleport",
			},
			expectedBound:   1,
			expectedUnknown: []string{"teleport"},
			expectedProfile: map[string]string{"/input/a/click": "jump"},
		},
		{
			name: "every binding broken",
			bindings: map[string]string{
				"/input/nope":    "jump",
				"/input/b/click": "nope",
			},
			expectedMissing: []string{"/input/nope"},
			expectedUnknown: []string{"nope"},
			expectedProfile: map[string]string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := action.NewRegistry(nil)
			r.RegisterClientInputs([]action.Input{
				{Path: "/input/a/click", Type: action.Boolean},
				{Path: "/input/b/click", Type: action.Boolean},
			})
			r.RegisterActions([]string{"none", "jump"})

			res := r.BindProfile(tc.bindings)

			assert.Equal(t, tc.expectedBound, res.Bound)
			assert.Equal(t, tc.expectedMissing, res.MissingInputs)
			assert.Equal(t, tc.expectedUnknown, res.UnknownActions)
			assert.Equal(t, tc.expectedProfile, r.EffectiveProfile())
		})
	}
}

func TestRegisterClientInputsIdempotent(t *testing.T) {
	inputs := []action.Input{
		{Path: "/input/a/click", Type: action.Boolean},
		{Path: "/input/trigger/value", Type: action.Float32},
	}
	r := action.NewRegistry(nil)

	r.RegisterClientInputs(inputs)
	first := r.ClientInputs()
	r.RegisterClientInputs(inputs)

	assert.Equal(t, first, r.ClientInputs())
	d, ok := r.ClientInputByPath("/input/trigger/value")
	require.True(t, ok)
	assert.Equal(t, uint32(1), d.Index)
}

func TestDuplicatePathKeepsFirstIndex(t *testing.T) {
	r := action.NewRegistry(nil)
	r.RegisterClientInputs([]action.Input{
		{Path: "/input/a/click", Type: action.Boolean},
		{Path: "/input/a/click", Type: action.Boolean},
	})

	d, ok := r.ClientInputByPath("/input/a/click")
	require.True(t, ok)
	assert.Equal(t, uint32(0), d.Index)
	assert.Len(t, r.ClientInputs(), 2)
}

func TestParseValueType(t *testing.T) {
	type testCase struct {
		in       string
		expected action.ValueType
		wantErr  bool
	}
	testCases := []testCase{
		{in: "boolean", expected: action.Boolean},
		{in: "Bool", expected: action.Boolean},
		{in: "float32", expected: action.Float32},
		{in: " float ", expected: action.Float32},
		{in: "vector2", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			vt, err := action.ParseValueType(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, vt)
		})
	}
}
