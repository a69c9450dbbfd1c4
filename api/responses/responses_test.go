package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/kupilikula/rocketshop-market-backend/pkg/errors"
	"github.com/kupilikula/rocketshop-market-backend/pkg/logger"
	"github.com/kupilikula/rocketshop-market-backend/pkg/types"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body.Error
}

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, map[string]string{"hello": "world"})
	require.Equal(t, http.StatusCreated, w.Code)
	require.JSONEq(t, `{"data":{"hello":"world"}}`, w.Body.String())
}

func TestWriteErrorExposesDomainDetails(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeStock, "insufficient stock").
		WithDetails(map[string]any{"productId": "p-1", "available": 0})
	WriteError(context.Background(), logger.Nop(), w, err)

	require.Equal(t, http.StatusConflict, w.Code)
	body := decodeError(t, w)
	require.Equal(t, string(pkgerrors.CodeStock), body.Code)
	require.Equal(t, map[string]any{"productId": "p-1", "available": float64(0)}, body.Details)
}

func TestWriteErrorHidesInternalDetail(t *testing.T) {
	cases := []error{
		errors.New("boom"),
		pkgerrors.New(pkgerrors.CodeInternalConsistency, "transfer sum 100 != 99").WithDetails(map[string]any{"sum": 100}),
		pkgerrors.Wrap(pkgerrors.CodeUpstream, errors.New("dial tcp"), "razorpay 503"),
	}
	for _, err := range cases {
		w := httptest.NewRecorder()
		WriteError(context.Background(), nil, w, err)
		body := decodeError(t, w)
		require.Nil(t, body.Details)
		require.NotContains(t, body.Message, "100")
		require.NotContains(t, body.Message, "razorpay")
		require.Equal(t, pkgerrors.MetadataFor(pkgerrors.Code(body.Code)).PublicMessage, body.Message)
	}
}

func TestPublicErrorKeepsConflictContext(t *testing.T) {
	err := pkgerrors.New(pkgerrors.CodeConflict, "duplicate checkout in progress").
		WithDetails(map[string]any{"fingerprint": "abc"})
	got := PublicError(err)
	require.Equal(t, "duplicate checkout in progress", got.Message)
	require.Equal(t, map[string]any{"fingerprint": "abc"}, got.Details)
}

func TestWriteErrorEchoesRequestID(t *testing.T) {
	ctx := context.WithValue(context.Background(), chimw.RequestIDKey, "req-42")
	w := httptest.NewRecorder()
	WriteError(ctx, logger.Nop(), w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))

	require.Equal(t, http.StatusNotFound, w.Code)
	require.JSONEq(t, `{"error":{"code":"NOT_FOUND","message":"order not found"},"requestId":"req-42"}`, w.Body.String())
}

func TestWriteSuccessFallsBackOnEncodeFailure(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, map[string]any{"bad": make(chan int)})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, string(pkgerrors.CodeInternal), decodeError(t, w).Code)
}
