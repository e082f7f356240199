package sessions

import (
	"context"
	"io"
	"time"

	"github.com/brettbedarf/mtpview"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the session collectors. Create one per registry
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	payload    *prometheus.CounterVec
}

// NewMetrics creates the session collectors and registers them with reg.
// A nil reg leaves them unregistered
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mtpview_session_operations_total",
				Help: "Total number of session operations",
			},
			[]string{"op", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mtpview_session_operation_duration_seconds",
				Help:    "Session operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		payload: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mtpview_session_payload_bytes_total",
				Help: "Total object payload bytes transferred",
			},
			[]string{"direction"},
		),
	}
}

// observe starts timing op and returns the func that records its outcome
func (m *Metrics) observe(op string) func(err error) {
	start := time.Now()
	return func(err error) {
		status := "success"
		if err != nil {
			status = "error"
		}
		m.operations.WithLabelValues(op, status).Inc()
		m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

// Instrumented records metrics for every call to the wrapped session
type Instrumented struct {
	inner   mtpview.Session
	metrics *Metrics
}

func NewInstrumented(s mtpview.Session, m *Metrics) *Instrumented {
	return &Instrumented{inner: s, metrics: m}
}

func (s *Instrumented) GetObjectHandles(ctx context.Context, storage mtpview.StorageID, format mtpview.ObjectFormat, parent mtpview.ObjectID) ([]mtpview.ObjectID, error) {
	done := s.metrics.observe("get_object_handles")
	handles, err := s.inner.GetObjectHandles(ctx, storage, format, parent)
	done(err)
	return handles, err
}

func (s *Instrumented) GetObjectInfo(ctx context.Context, id mtpview.ObjectID) (*mtpview.ObjectInfo, error) {
	done := s.metrics.observe("get_object_info")
	info, err := s.inner.GetObjectInfo(ctx, id)
	done(err)
	return info, err
}

func (s *Instrumented) SetObjectProperty(ctx context.Context, id mtpview.ObjectID, prop mtpview.ObjectProperty, value string) error {
	done := s.metrics.observe("set_object_property")
	err := s.inner.SetObjectProperty(ctx, id, prop, value)
	done(err)
	return err
}

func (s *Instrumented) DeleteObject(ctx context.Context, id mtpview.ObjectID) error {
	done := s.metrics.observe("delete_object")
	err := s.inner.DeleteObject(ctx, id)
	done(err)
	return err
}

func (s *Instrumented) SendObjectInfo(ctx context.Context, info *mtpview.ObjectInfo, storage mtpview.StorageID, parent mtpview.ObjectID) (mtpview.NewObjectInfo, error) {
	done := s.metrics.observe("send_object_info")
	noi, err := s.inner.SendObjectInfo(ctx, info, storage, parent)
	done(err)
	return noi, err
}

func (s *Instrumented) SendObject(ctx context.Context, r io.Reader, size int64) error {
	done := s.metrics.observe("send_object")
	cr := &countingReader{r: r}
	err := s.inner.SendObject(ctx, cr, size)
	s.metrics.payload.WithLabelValues("upload").Add(float64(cr.n))
	done(err)
	return err
}

func (s *Instrumented) GetObject(ctx context.Context, id mtpview.ObjectID, w io.Writer) error {
	done := s.metrics.observe("get_object")
	cw := &countingWriter{w: w}
	err := s.inner.GetObject(ctx, id, cw)
	s.metrics.payload.WithLabelValues("download").Add(float64(cw.n))
	done(err)
	return err
}

func (s *Instrumented) GetDeviceInfo(ctx context.Context) (*mtpview.DeviceInfo, error) {
	done := s.metrics.observe("get_device_info")
	di, err := s.inner.GetDeviceInfo(ctx)
	done(err)
	return di, err
}

func (s *Instrumented) GetStorageIDs(ctx context.Context) ([]mtpview.StorageID, error) {
	done := s.metrics.observe("get_storage_ids")
	ids, err := s.inner.GetStorageIDs(ctx)
	done(err)
	return ids, err
}

func (s *Instrumented) GetStorageInfo(ctx context.Context, storage mtpview.StorageID) (*mtpview.StorageInfo, error) {
	done := s.metrics.observe("get_storage_info")
	si, err := s.inner.GetStorageInfo(ctx, storage)
	done(err)
	return si, err
}

func (s *Instrumented) Close() error {
	return s.inner.Close()
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

var _ mtpview.Session = (*Instrumented)(nil)
