package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upzento/upzento-crm-sub000/pkg/database"
)

func TestReadinessReflectsDatabaseState(t *testing.T) {
	e := setupTest(t)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, ReadinessCheck(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)

	database.DB = nil
	rec = httptest.NewRecorder()
	require.NoError(t, ReadinessCheck(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
