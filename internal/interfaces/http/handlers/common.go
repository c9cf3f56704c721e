package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
	"github.com/ClairePA/ChemistryToolkit/pkg/types/common"
)

// maxBodyBytes caps request bodies when the server does not set its own limit.
const maxBodyBytes = 1 << 20

func parsePagination(r *http.Request) (int, int) {
	page := 1
	pageSize := 20

	if v := r.URL.Query().Get("page"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			page = p
		}
	}
	if v := r.URL.Query().Get("page_size"); v != "" {
		if ps, err := strconv.Atoi(v); err == nil && ps > 0 && ps <= 500 {
			pageSize = ps
		}
	}
	return page, pageSize
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func writeData[T any](w http.ResponseWriter, r *http.Request, statusCode int, data T) {
	resp := common.NewSuccessResponse(data)
	resp.RequestID = chimw.GetReqID(r.Context())
	writeJSON(w, statusCode, resp)
}

// writeAppError maps err to its HTTP status.  Server-side failures keep
// their code but not their message.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatusForCode(errors.GetCode(err))

	resp := common.NewErrorResponse(string(errors.ErrCodeInternal), "internal server error", "")
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		switch {
		case status < http.StatusInternalServerError:
			resp = common.NewErrorResponse(string(appErr.Code), appErr.Message, appErr.Detail)
		default:
			resp = common.NewErrorResponse(string(appErr.Code), errors.DefaultMessageForCode(appErr.Code), "")
		}
	}
	resp.RequestID = chimw.GetReqID(r.Context())
	writeJSON(w, status, resp)
}
