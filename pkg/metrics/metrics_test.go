package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/form/pkg/form"
)

func TestRecorderCountsLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewRecorder(reg)

	c, err := form.New(form.Config{
		ID:       "signup",
		Observer: rec,
		Validator: form.ValidatorFunc(func(_ context.Context, values map[string]any) ([]form.ErrorEntry, error) {
			if values["email"] == nil {
				return []form.ErrorEntry{{Path: "email", Message: "required"}}, nil
			}
			return nil, nil
		}),
	})
	require.NoError(t, err)
	defer c.Dispose()

	_, err = c.Submit(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.SetValues([]form.ValueEntry{{Path: "email", Value: "a@b.co"}, {Path: "name", Value: "A"}}))
	_, err = c.Submit(context.Background())
	require.NoError(t, err)
	c.Reset()

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.valueChanges.WithLabelValues("signup")))
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.valueEntries.WithLabelValues("signup")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.errorSets.WithLabelValues("signup")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.submits.WithLabelValues("signup", "invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.submits.WithLabelValues("signup", "submitted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.resets.WithLabelValues("signup")))
	assert.Equal(t, 1, testutil.CollectAndCount(rec.submitSeconds))

	n, err := testutil.GatherAndCount(reg, "form_submits_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNewRecorderWithoutRegistry(t *testing.T) {
	rec := NewRecorder(nil)
	rec.Reset("f")
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.resets.WithLabelValues("f")))
}
