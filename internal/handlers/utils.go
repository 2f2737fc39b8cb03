package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/keygate/authserver/types"
)

type contextKey string

const contextUserKey contextKey = "user"

// ErrorResponse is the JSON body returned for failures.
type ErrorResponse struct {
	Error string `json:"error"`
}

func withUser(ctx context.Context, user *types.User) context.Context {
	return context.WithValue(ctx, contextUserKey, user)
}

func userFromContext(ctx context.Context) (*types.User, bool) {
	user, ok := ctx.Value(contextUserKey).(*types.User)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
