// Package responses writes the JSON envelopes every handler returns.
package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	pkgerrors "github.com/kupilikula/rocketshop-market-backend/pkg/errors"
	"github.com/kupilikula/rocketshop-market-backend/pkg/logger"
	"github.com/kupilikula/rocketshop-market-backend/pkg/types"
)

var errUnknown = errors.New("unknown error")

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// PublicError reduces err to what a caller may see. Untyped errors become
// INTERNAL_ERROR, and server-side codes keep only their generic message.
func PublicError(err error) types.APIError {
	if err == nil {
		err = errUnknown
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	meta := pkgerrors.MetadataFor(typed.Code())
	out := types.APIError{Code: string(typed.Code()), Message: meta.PublicMessage}
	if meta.ExposeMessage && typed.Message() != "" {
		out.Message = typed.Message()
	}
	if meta.DetailsAllowed {
		out.Details = typed.Details()
	}
	return out
}

// WriteError logs err with its diagnostics and writes the error envelope.
// 5xx responses log at error level, everything else at warn.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errUnknown
	}
	public := PublicError(err)
	status := pkgerrors.MetadataFor(pkgerrors.Code(public.Code)).HTTPStatus

	if logg != nil {
		ctx = logg.WithFields(ctx, pkgerrors.Diagnose(err).Fields())
		ctx = logg.WithField(ctx, "status", status)
		if status >= http.StatusInternalServerError {
			logg.Error(ctx, "request.error", err)
		} else {
			logg.Warn(ctx, "request.rejected")
		}
	}

	writeJSON(w, status, types.ErrorEnvelope{Error: public, RequestID: chimw.GetReqID(ctx)})
}

// writeJSON encodes before writing the header so an unencodable payload
// still produces a well-formed 500.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(types.ErrorEnvelope{Error: types.APIError{
			Code:    string(pkgerrors.CodeInternal),
			Message: pkgerrors.MetadataFor(pkgerrors.CodeInternal).PublicMessage,
		}})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
