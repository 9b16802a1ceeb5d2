package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type quoteRequest struct {
	Fiat  string `query:"fiat" validate:"omitempty,len=3,alpha"`
	Limit int    `query:"limit" default:"10" validate:"gte=1,lte=100"`
}

func newContext(target string) (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	return echo.New().NewContext(httptest.NewRequest(http.MethodGet, target, nil), rec), rec
}

func TestReadAndValidateRequestAppliesDefaults(t *testing.T) {
	c, _ := newContext("/?fiat=eur")
	req := &quoteRequest{}
	require.Nil(t, ReadAndValidateRequest(c, req))
	assert.Equal(t, "eur", req.Fiat)
	assert.Equal(t, 10, req.Limit)
}

func TestReadAndValidateRequestNamesQueryFields(t *testing.T) {
	c, _ := newContext("/?fiat=EURO&limit=500")
	verr := ReadAndValidateRequest(c, &quoteRequest{})

	errs, ok := verr.([]ValidationError)
	require.True(t, ok)
	require.Len(t, errs, 2)
	assert.Equal(t, ValidationError{
		Code:    "ERR_LEN",
		Field:   "fiat",
		Message: "fiat must be 3 characters",
		Params:  map[string]interface{}{"len": "3"},
	}, errs[0])
	assert.Equal(t, "ERR_LTE", errs[1].Code)
	assert.Equal(t, "limit", errs[1].Field)
}

func TestAppErrorResponse(t *testing.T) {
	c, rec := newContext("/")
	require.NoError(t, AppErrorResponse(c, NotFoundErrorf("fiat %s is not available", "JPY").WithParam("fiat", "JPY")))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body struct {
		Status int        `json:"status"`
		Data   []AppError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusNotFound, body.Status)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "ERR_NOT_FOUND", body.Data[0].Code)
	assert.Equal(t, "JPY", body.Data[0].Params["fiat"])

	c, rec = newContext("/")
	require.NoError(t, AppErrorResponse(c, errors.New("db down")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestFailedDependencyResponse(t *testing.T) {
	c, rec := newContext("/")
	require.NoError(t, FailedDependencyResponse(c))
	assert.Equal(t, http.StatusFailedDependency, rec.Code)
	assert.JSONEq(t, `{"status":424}`, rec.Body.String())
}
