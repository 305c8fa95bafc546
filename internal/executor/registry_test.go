package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct{ name string }

func (f *fakeExecutor) Execute(_ context.Context, _ Request, _ ProgressFunc) (*Result, error) {
	return &Result{SessionID: "ses_fake"}, nil
}

func (f *fakeExecutor) Capabilities() Capabilities {
	return Capabilities{Name: f.name}
}

func TestGet_UnknownName(t *testing.T) {
	t.Parallel()

	_, ok := Get("no-such-agent")
	assert.False(t, ok)
}

func TestAvailable_IsSorted(t *testing.T) {
	t.Parallel()

	Register("zz-"+t.Name(), func(_ map[string]any) (Executor, error) {
		return &fakeExecutor{}, nil
	})
	Register("aa-"+t.Name(), func(_ map[string]any) (Executor, error) {
		return &fakeExecutor{}, nil
	})

	names := Available()
	for i := 1; i < len(names); i++ {
		assert.LessOrEqual(t, names[i-1], names[i])
	}
}

func TestRegister_DuplicatePanics(t *testing.T) {
	t.Parallel()

	name := "dup-" + t.Name()
	Register(name, func(_ map[string]any) (Executor, error) {
		return &fakeExecutor{}, nil
	})

	assert.Panics(t, func() {
		Register(name, func(_ map[string]any) (Executor, error) {
			return &fakeExecutor{}, nil
		})
	})
}

func TestRegisterAndGet_RoundTrip(t *testing.T) {
	t.Parallel()

	name := "roundtrip-" + t.Name()
	Register(name, func(cfg map[string]any) (Executor, error) {
		n, _ := cfg["name"].(string)
		return &fakeExecutor{name: n}, nil
	})

	factory, ok := Get(name)
	require.True(t, ok)

	exec, err := factory(map[string]any{"name": "configured"})
	require.NoError(t, err)
	assert.Equal(t, "configured", exec.Capabilities().Name)
}
