package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	h, err := NewHandler(nil, nil, nil, nil, nil)
	require.NoError(t, err)
	return h
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestSuccessResponseEnvelope(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/workers", nil)

	h.successResponse(rec, req, "获取员工列表成功", map[string]any{"total": 3})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "获取员工列表成功", resp.Message)
	assert.Equal(t, map[string]any{"total": float64(3)}, resp.Data)
}

// 业务失败仍然返回 200，由 success 字段区分
func TestErrorResponseKeepsStatusOK(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)

	h.errorResponse(rec, req, "用户名或密码错误")

	assert.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "用户名或密码错误", resp.Message)
	assert.Nil(t, resp.Data)
}

func TestBadRequestTranslatesValidationErrors(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/workers", nil)

	var payload struct {
		Username string `json:"username" validate:"required"`
	}
	err := h.validate.Struct(payload)
	require.Error(t, err)

	h.badRequest(rec, req, err)

	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "必填")
}

func TestBadRequestFallsBackToErrorText(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/workers", nil)

	h.badRequest(rec, req, errors.New("请求体不是合法的 JSON"))

	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "请求体不是合法的 JSON", resp.Message)
}

func TestInternalServerErrorStatus(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/shifts", nil)

	h.internalServerError(rec, req, errors.New("数据库连接中断"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "服务器内部错误", resp.Message)
}
