package mockregistrar

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"regdemo/go-backend/internal/adapters/acsclient"
	"regdemo/go-backend/pkg/models"
)

const maxRequestBytes = 64 << 10

// Handler serves the registrar over HTTP using the acsclient wire format.
// When appKey is non-empty requests must carry it in the key query parameter.
func (r *Registrar) Handler(appKey string) http.Handler {
	appKey = strings.TrimSpace(appKey)
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+acsclient.CreateUserPath, func(w http.ResponseWriter, req *http.Request) {
		if appKey != "" && req.URL.Query().Get(acsclient.AppKeyParam) != appKey {
			writeFailure(w, http.StatusUnauthorized, "invalid app key")
			return
		}
		var body acsclient.CreateUserRequest
		dec := json.NewDecoder(io.LimitReader(req.Body, maxRequestBytes))
		if err := dec.Decode(&body); err != nil {
			writeFailure(w, http.StatusBadRequest, "invalid request body")
			return
		}
		result, err := r.Register(req.Context(), req.Header.Get(acsclient.IdempotencyHeader), models.RegistrationForm{
			Username:             body.Username,
			Email:                body.Email,
			Password:             body.Password,
			PasswordConfirmation: body.PasswordConfirmation,
			FirstName:            body.FirstName,
			LastName:             body.LastName,
		})
		if err != nil {
			writeFailure(w, statusFor(err), err.Error())
			return
		}
		writeEnvelope(w, http.StatusOK, acsclient.Envelope{
			Meta: acsclient.Meta{Status: acsclient.StatusOK, Code: http.StatusOK, Method: "users/create"},
			Response: &acsclient.UserResponse{
				Users: []acsclient.User{{
					ID:        result.UserID,
					Username:  result.Username,
					Email:     result.Email,
					FirstName: body.FirstName,
					LastName:  body.LastName,
					CreatedAt: result.CreatedAt,
				}},
				RecoveryPhrase: result.RecoveryPhrase,
			},
		})
	})
	return mux
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUsernameTaken), errors.Is(err, ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, ErrThrottled):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrMissingField), errors.Is(err, ErrPasswordMismatch), errors.Is(err, ErrReplayConflict):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeEnvelope(w, status, acsclient.Envelope{
		Meta: acsclient.Meta{Status: acsclient.StatusFail, Code: status, Message: message, Method: "users/create"},
	})
}

func writeEnvelope(w http.ResponseWriter, status int, env acsclient.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
