package errors_test

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infraerrors "github.com/originesmedia/og-prerender/infrastructure/errors"
)

func response(code int, body string) *http.Response {
	return &http.Response{
		StatusCode: code,
		Status:     fmt.Sprintf("%d %s", code, http.StatusText(code)),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestParseHTTPError_SuccessIsNil(t *testing.T) {
	assert.NoError(t, infraerrors.ParseHTTPError(response(http.StatusOK, "{}")))
}

func TestParseHTTPError_SanityShape(t *testing.T) {
	err := infraerrors.ParseHTTPError(response(http.StatusBadRequest,
		`{"error":{"description":"param $slug referenced, but not provided","type":"queryParseError"}}`))
	require.Error(t, err)

	assert.Contains(t, err.Error(), "queryParseError: param $slug referenced")

	code, ok := infraerrors.GetHTTPStatusCode(fmt.Errorf("wrapped: %w", err))
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestParseHTTPError_FlatAndPlainBodies(t *testing.T) {
	err := infraerrors.ParseHTTPError(response(http.StatusUnauthorized, `{"error":"Unauthorized","message":"bad token"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unauthorized")

	err = infraerrors.ParseHTTPError(response(http.StatusBadGateway, "upstream down"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream down")
}
