package metrics_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trillium/shinobi/pkg/bincode"
	"github.com/trillium/shinobi/pkg/metrics"
)

func TestMetrics(t *testing.T) {
	t.Parallel()

	t.Run("it registers every collector with the given registry", func(t *testing.T) {
		t.Parallel()

		// Arrange
		reg := prometheus.NewPedanticRegistry()
		m := metrics.New(reg)

		// Act
		m.SyncsTotal.WithLabelValues("ok").Inc()
		m.RowsSaved.Add(3)
		m.Epoch.Set(600)

		// Assert
		assert.Equal(t, 3.0, testutil.ToFloat64(m.RowsSaved))
		assert.Equal(t, 600.0, testutil.ToFloat64(m.Epoch))
		count, err := testutil.GatherAndCount(reg, "shinobi_syncs_total")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("it counts diagnostics by blob, kind and severity", func(t *testing.T) {
		t.Parallel()

		// Arrange
		m := metrics.New(prometheus.NewRegistry())
		c := bincode.NewCursor([]byte{9, 9}, bincode.WithSink(m.DiagnosticSink("pool")))

		// Act
		_, _ = c.ReadBool()
		_, _ = c.ReadBool()

		// Assert
		got := testutil.ToFloat64(m.DiagnosticsTotal.WithLabelValues("pool", string(bincode.KindInvalidBool), "error"))
		assert.Equal(t, 2.0, got)
	})
}

func TestNewMux(t *testing.T) {
	t.Parallel()

	t.Run("it exposes metrics in the text format", func(t *testing.T) {
		t.Parallel()

		// Arrange
		reg := prometheus.NewRegistry()
		m := metrics.New(reg)
		m.RowsFailed.Inc()
		server := httptest.NewServer(metrics.NewMux(reg))
		defer server.Close()

		// Act
		resp, err := server.Client().Get(server.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)

		// Assert
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), "shinobi_rows_failed_total 1")
	})

	t.Run("it answers the health check", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := httptest.NewServer(metrics.NewMux(prometheus.NewRegistry()))
		defer server.Close()

		// Act
		resp, err := server.Client().Get(server.URL + "/healthz")
		require.NoError(t, err)
		resp.Body.Close()

		// Assert
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})
}

func TestServe(t *testing.T) {
	t.Parallel()

	t.Run("it stops cleanly when the context is cancelled", func(t *testing.T) {
		t.Parallel()

		// Arrange
		addr := freeAddr(t)
		ctx, cancel := context.WithCancel(t.Context())
		done := make(chan error, 1)
		go func() { done <- metrics.Serve(ctx, addr, metrics.NewMux(prometheus.NewRegistry())) }()
		waitForListener(t, addr)

		// Act
		cancel()

		// Assert
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("server did not stop")
		}
	})

	t.Run("it reports a bad address", func(t *testing.T) {
		t.Parallel()

		// Act
		err := metrics.Serve(t.Context(), "not-an-address", http.NotFoundHandler())

		// Assert
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "not-an-address"))
	})
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func waitForListener(t *testing.T, addr string) {
	t.Helper()
	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 5*time.Second, 10*time.Millisecond)
}
