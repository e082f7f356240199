package sessions

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/brettbedarf/mtpview"
	"github.com/brettbedarf/mtpview/internal/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestInstrumented_CountsOperations(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	inner := &mocks.MockSession{}
	inner.On("DeleteObject", mock.Anything, mtpview.ObjectID(1)).Return(nil)
	inner.On("DeleteObject", mock.Anything, mtpview.ObjectID(2)).Return(errors.New("denied"))
	inner.On("GetObjectInfo", mock.Anything, mtpview.ObjectID(1)).Return(&mtpview.ObjectInfo{Filename: "a"}, nil)
	s := NewInstrumented(inner, metrics)
	ctx := context.Background()

	require.NoError(t, s.DeleteObject(ctx, 1))
	require.Error(t, s.DeleteObject(ctx, 2))
	info, err := s.GetObjectInfo(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "a", info.Filename)

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.operations.WithLabelValues("delete_object", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.operations.WithLabelValues("delete_object", "error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.operations.WithLabelValues("get_object_info", "success")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.duration))

	n, err := testutil.GatherAndCount(reg, "mtpview_session_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestInstrumented_PayloadBytes(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics(nil)
	s := NewInstrumented(newMemory(t, nil), metrics)
	ctx := context.Background()

	noi, err := s.SendObjectInfo(ctx, &mtpview.ObjectInfo{
		Filename:             "a.txt",
		ObjectFormat:         mtpview.FormatText,
		ObjectCompressedSize: 5,
	}, mtpview.AnyStorage, mtpview.Root)
	require.NoError(t, err)
	require.NoError(t, s.SendObject(ctx, strings.NewReader("hello"), 5))

	var buf bytes.Buffer
	require.NoError(t, s.GetObject(ctx, noi.ObjectID, &buf))
	require.NoError(t, s.GetObject(ctx, noi.ObjectID, &buf))

	assert.InDelta(t, 5, testutil.ToFloat64(metrics.payload.WithLabelValues("upload")), 0)
	assert.InDelta(t, 10, testutil.ToFloat64(metrics.payload.WithLabelValues("download")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.operations.WithLabelValues("get_object", "success")), 0)
}

func TestNewMetrics_DuplicateRegistrationPanics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	assert.Panics(t, func() { NewMetrics(reg) })
}
