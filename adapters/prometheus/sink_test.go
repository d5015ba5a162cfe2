package prometheus

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/admitme/admitme-server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSinkCountsRejectionsByReason(t *testing.T) {
	sink := NewSinkWithRegistry(prometheus.NewRegistry())
	ctx := context.Background()

	require.NoError(t, sink.Record(ctx, admitme.ActivityEvent{
		EventType: admitme.ActivityEventSessionRejected,
		Reason:    string(admitme.ReasonExpired),
	}))
	require.NoError(t, sink.Record(ctx, admitme.ActivityEvent{
		EventType: admitme.ActivityEventSessionRejected,
		Reason:    string(admitme.ReasonExpired),
	}))
	require.NoError(t, sink.Record(ctx, admitme.ActivityEvent{
		EventType: admitme.ActivityEventLogin,
	}))

	assert.Equal(t, 2.0, testutil.ToFloat64(
		sink.rejected.WithLabelValues(string(admitme.ActivityEventSessionRejected), "expired"),
	))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		sink.events.WithLabelValues(string(admitme.ActivityEventLogin)),
	))
}

func TestSinkHandlerExposesCounters(t *testing.T) {
	sink := NewSinkWithRegistry(prometheus.NewRegistry())
	require.NoError(t, sink.Record(context.Background(), admitme.ActivityEvent{
		EventType: admitme.ActivityEventAccessDenied,
	}))

	rec := httptest.NewRecorder()
	sink.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `admitme_session_rejections_total{event="auth.access.denied",reason="unknown"} 1`)
}
