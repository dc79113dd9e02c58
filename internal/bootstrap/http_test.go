package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-auth/config"
)

func TestBuildHTTPHandlerServesHealth(t *testing.T) {
	appCfg := &config.AppConfig{}
	appCfg.HTTP.RequestTimeout = time.Second
	h := BuildHTTPHandler(appCfg, ServiceContainer{}, discardLogger())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestBuildHTTPHandlerCSRF(t *testing.T) {
	appCfg := &config.AppConfig{}
	appCfg.HTTP.CSRFEnabled = true
	h := BuildHTTPHandler(appCfg, ServiceContainer{}, discardLogger())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestShutdownHTTPServerNil(t *testing.T) {
	require.NoError(t, ShutdownHTTPServer(ShutdownConfig{}))
}

func TestWaitForShutdown(t *testing.T) {
	t.Run("server error is returned", func(t *testing.T) {
		errCh := make(chan error, 1)
		boom := errors.New("listen failed")
		errCh <- boom

		err := waitForShutdown(shutdownConfig{
			ctx:    context.Background(),
			quit:   make(chan os.Signal),
			errCh:  errCh,
			logger: discardLogger(),
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("signal stops the server", func(t *testing.T) {
		server := &http.Server{Addr: "127.0.0.1:0", ReadHeaderTimeout: time.Second}
		quit := make(chan os.Signal, 1)
		quit <- os.Interrupt

		err := waitForShutdown(shutdownConfig{
			ctx:        context.Background(),
			quit:       quit,
			errCh:      make(chan error),
			httpServer: server,
			http:       config.HTTPConfig{ShutdownTimeout: time.Second},
			logger:     discardLogger(),
		})
		assert.NoError(t, err)
	})

	t.Run("cancelled context stops", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := waitForShutdown(shutdownConfig{
			ctx:    ctx,
			quit:   make(chan os.Signal),
			errCh:  make(chan error),
			logger: discardLogger(),
		})
		assert.NoError(t, err)
	})
}
