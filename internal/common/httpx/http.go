// Package httpx provides HTTP request/response plumbing shared by all route
// handlers. Handlers return (*Response, error); WrapHttpRsp converts both
// into the platform's JSON envelope: {"success": bool, "data": ...} on
// success and {"success": false, "error": "..."} on failure, with the HTTP
// status taken from the application error.
package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/yarihq/yari-server/internal/common/apperrors"
)

// GetRequestData parses a JSON request body into the provided structure.
// Only POST, PUT and PATCH carry bodies on this API.
func GetRequestData(r *http.Request, data any) error {
	if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
		return ErrReqMethodNotSupported()
	}
	if r.Body == nil {
		log.Ctx(r.Context()).Error().Msg("empty request body")
		return ErrUnableToParseReqData()
	}
	if err := json.NewDecoder(r.Body).Decode(data); err != nil {
		return ErrUnableToParseReqData()
	}
	return nil
}

// Response represents a handler result with status code and payload.
type Response struct {
	StatusCode int
	Location   string
	Response   any
}

// RequestHandler defines the function type all route handlers implement.
type RequestHandler func(r *http.Request) (*Response, error)

// WrapHttpRsp wraps a RequestHandler with envelope encoding and error
// mapping. Application errors carry their own status codes; anything else
// becomes a 500 with a generic message.
func WrapHttpRsp(handler RequestHandler) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rsp, err := handler(r)
		if err != nil {
			if httperror, ok := err.(*Error); ok {
				httperror.Send(w)
			} else if appErr, ok := err.(apperrors.Error); ok {
				statusCode := appErr.StatusCode()
				if statusCode == 0 {
					statusCode = http.StatusInternalServerError
				}
				httperror := &Error{
					StatusCode:  statusCode,
					Description: appErr.ErrorAll(),
				}
				httperror.Send(w)
			} else {
				log.Ctx(r.Context()).Error().Err(err).Msg("unhandled handler error")
				ErrApplicationError().Send(w)
			}
			return
		}
		if rsp == nil {
			ErrApplicationError().Send(w)
			return
		}
		var location []string
		if rsp.Location != "" {
			location = append(location, rsp.Location)
		}
		SendJsonRsp(r.Context(), w, rsp.StatusCode, rsp.Response, location...)
	})
}
