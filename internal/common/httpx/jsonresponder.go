package httpx

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// envelope is the wire shape of every successful response.
type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

// SendJsonRsp sends a success envelope with the given status code and data.
// If location is provided and the status code is 201, the Location header
// is set as well.
func SendJsonRsp(ctx context.Context, w http.ResponseWriter, statusCode int, data any, location ...string) {
	body, err := json.Marshal(&envelope{Success: true, Data: data})
	if err != nil {
		log.Ctx(ctx).Err(err).Msg("unable to marshal response")
		ErrApplicationError().Send(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if statusCode == http.StatusCreated && len(location) > 0 {
		w.Header().Set("Location", location[0])
	}
	w.WriteHeader(statusCode)
	w.Write(body)
}
