package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factotum/internal/logging"
	"factotum/pkg/schema"
)

type echoAgent struct{ name string }

func (e *echoAgent) Name() string       { return e.name }
func (e *echoAgent) Metadata() Metadata { return Metadata{Name: e.name} }
func (e *echoAgent) Perform(ctx context.Context, params map[string]any) (string, error) {
	return "agent=" + logging.Agent(ctx), nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&echoAgent{name: "echo"}))

	got, ok := r.Get("echo")
	require.True(t, ok)
	assert.Equal(t, "echo", got.Name())

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_DuplicateIsConflict(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&echoAgent{name: "echo"}))

	err := r.Register(&echoAgent{name: "echo"})
	require.Error(t, err)

	var ferr *schema.FactotumError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, schema.ErrCodeConflict, ferr.Code)
}

func TestRegistry_ListSorted(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, r.Register(&echoAgent{name: name}))
	}

	var names []string
	for _, a := range r.List() {
		names = append(names, a.Name())
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)
}

func TestRegistry_DispatchTagsContext(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&echoAgent{name: "echo"}))

	out, err := r.Dispatch(context.Background(), "echo", nil)
	require.NoError(t, err)
	assert.Equal(t, "agent=echo", out)
}

func TestRegistry_DispatchUnknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Dispatch(context.Background(), "ghost", nil)
	require.Error(t, err)

	var ferr *schema.FactotumError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, schema.ErrCodeNotFound, ferr.Code)
	assert.Contains(t, err.Error(), "unknown agent: ghost")
}
