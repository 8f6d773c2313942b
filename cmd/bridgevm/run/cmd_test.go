// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package run

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	bvm "github.com/luxfi/btcbridge/vms/bridgevm"
)

const testAuthToken = "s3cret"

type testHost struct {
	vm       *bvm.VM
	admin    ids.ShortID
	registry *prometheus.Registry
}

func newTestHost(t *testing.T) *testHost {
	require := require.New(t)

	admin := ids.GenerateTestShortID()
	registry := prometheus.NewRegistry()
	factory := &bvm.Factory{
		Log:        log.NewNoOpLogger(),
		Registerer: registry,
	}
	configBytes := fmt.Sprintf(
		`{"adminAddress":%q,"bridgeAddress":%q,"authToken":%q}`,
		admin,
		ids.GenerateTestShortID(),
		testAuthToken,
	)
	vm, err := factory.New(memdb.New(), []byte(configBytes))
	require.NoError(err)
	require.NoError(vm.InitializeBridge(admin))
	t.Cleanup(func() {
		require.NoError(vm.Shutdown(t.Context()))
	})
	return &testHost{
		vm:       vm,
		admin:    admin,
		registry: registry,
	}
}

func (h *testHost) handler(t *testing.T, allowedOrigins []string) http.Handler {
	handler, err := newHandler(t.Context(), h.vm, h.registry, allowedOrigins)
	require.NoError(t, err)
	return handler
}

func newRPCRequest(method string, params string) *http.Request {
	body := fmt.Sprintf(`{"jsonrpc":"2.0","id":1,"method":%q,"params":%s}`, method, params)
	req := httptest.NewRequest(http.MethodPost, bridgeEndpoint, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHandlerRoutes(t *testing.T) {
	require := require.New(t)

	host := newTestHost(t)
	handler := host.handler(t, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, healthEndpoint, nil))
	require.Equal(http.StatusOK, rec.Code)
	require.Contains(rec.Body.String(), `"healthy":true`)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, metricsEndpoint, nil))
	require.Equal(http.StatusOK, rec.Code)
	require.Contains(rec.Body.String(), "txs_accepted")
	require.Contains(rec.Body.String(), "last_processed_height 1")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, newRPCRequest("bridge.getBridgeStatus", "{}"))
	require.Equal(http.StatusOK, rec.Code)
	require.Contains(rec.Body.String(), `"initialized":true`)
}

func TestHandlerRejectsCrossOriginByDefault(t *testing.T) {
	require := require.New(t)

	host := newTestHost(t)
	flagConfig, err := ParseFlags(newFlagSet(), nil)
	require.NoError(err)
	handler := host.handler(t, flagConfig.AllowedOrigins)

	preflight := httptest.NewRequest(http.MethodOptions, bridgeEndpoint, nil)
	preflight.Header.Set("Origin", "https://evil.example")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, preflight)
	require.Equal(http.StatusForbidden, rec.Code)
	require.Empty(rec.Header().Get("Access-Control-Allow-Origin"))

	req := newRPCRequest("bridge.pauseBridge", fmt.Sprintf(`{"caller":%q}`, host.admin))
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Authorization", "Bearer "+testAuthToken)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(http.StatusForbidden, rec.Code)
	require.False(host.vm.GetBridgeStatus().Paused)
}

func TestHandlerAllowsConfiguredOrigin(t *testing.T) {
	require := require.New(t)

	host := newTestHost(t)
	handler := host.handler(t, []string{"https://ops.example"})

	req := newRPCRequest("bridge.getBridgeStatus", "{}")
	req.Header.Set("Origin", "https://ops.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(http.StatusOK, rec.Code)
	require.Equal("https://ops.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = newRPCRequest("bridge.getBridgeStatus", "{}")
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(http.StatusForbidden, rec.Code)
}

func TestHandlerRequiresBearerForMutations(t *testing.T) {
	require := require.New(t)

	host := newTestHost(t)
	handler := host.handler(t, nil)
	params := fmt.Sprintf(`{"caller":%q}`, host.admin)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newRPCRequest("bridge.pauseBridge", params))
	require.Contains(rec.Body.String(), "missing bearer token")
	require.False(host.vm.GetBridgeStatus().Paused)

	req := newRPCRequest("bridge.pauseBridge", params)
	req.Header.Set("Authorization", "Bearer "+testAuthToken)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(http.StatusOK, rec.Code)
	require.True(host.vm.GetBridgeStatus().Paused)
}
