package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/students-form/internal/types"
)

type stubStore struct {
	loadErr error
	saveErr error
}

func (s stubStore) Load(context.Context) (types.Dataset, error) { return types.Dataset{}, s.loadErr }
func (s stubStore) Save(context.Context, types.Dataset) error    { return s.saveErr }

func TestInstrumentedStore(t *testing.T) {
	m := New(prometheus.NewRegistry())
	store := Instrument(stubStore{saveErr: errors.New("rejected")}, m)

	_, err := store.Load(context.Background())
	require.NoError(t, err)
	_, err = store.Load(context.Background())
	require.NoError(t, err)
	assert.Error(t, store.Save(context.Background(), types.Dataset{}))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StoreOps.WithLabelValues("load", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreOps.WithLabelValues("save", "error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.StoreOps.WithLabelValues("save", "ok")))
}

func TestNew_RegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.LoginAttempts.WithLabelValues(LoginOK).Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "students_form_login_attempts_total")
	assert.Contains(t, names, "students_form_active_sessions")
}
