package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gator-market/apiserver/types"
)

type contextKey string

const contextActorKey contextKey = "actor"

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// DetailResponse is the confirmation envelope for operations that do
// not return a resource.
type DetailResponse struct {
	Detail string `json:"detail"`
}

func withActor(ctx context.Context, actor types.User) context.Context {
	return context.WithValue(ctx, contextActorKey, actor)
}

func actorFromContext(ctx context.Context) (types.User, bool) {
	actor, ok := ctx.Value(contextActorKey).(types.User)
	return actor, ok
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}

// writeUnauthorized emits the uniform 401 with the bearer challenge
// header. The detail never reveals which check failed.
func writeUnauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, detail)
}

// Healthz reports process liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
