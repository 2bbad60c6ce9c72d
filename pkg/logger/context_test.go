package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newEchoContext() echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestStampEchoChildInheritsFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	c := newEchoContext()
	c.Set(loggerKey, zap.New(core))

	StampEcho(c, zap.Uint("client_id", 7))
	FromEcho(c).Info("scoped line")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 7, entries[0].ContextMap()["client_id"])
}

func TestFromEchoFallsBackToProcessLogger(t *testing.T) {
	c := newEchoContext()
	assert.NotNil(t, FromEcho(c))
}

func TestTenantFieldsSkipsUnsetCoordinates(t *testing.T) {
	agencyID := uint(3)
	fields := TenantFields(&agencyID, nil)
	require.Len(t, fields, 1)
	assert.Equal(t, "agency_id", fields[0].Key)

	assert.Empty(t, TenantFields(nil, nil))
}
