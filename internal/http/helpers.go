package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// HeaderUserID is set by the authenticating proxy in front of the API.
const HeaderUserID = "X-User-ID"

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

type userKey struct{}

// withUser rejects requests without a positive X-User-ID with 401.
func (s *Server) withUser(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(strings.TrimSpace(r.Header.Get(HeaderUserID)), 10, 64)
		if err != nil || userID <= 0 {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Missing or invalid user header",
				log.FieldPath, r.URL.Path)
			ErrorResponse(http.StatusUnauthorized, "missing or invalid "+HeaderUserID+" header").Write(w)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userKey{}, userID)))
	})
}

// userFromContext returns the authenticated user. Only valid behind withUser.
func userFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(userKey{}).(int64)
	return id
}

// pathID parses the {id} path segment. ok is false for non-positive or non-numeric ids.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

// parseDateQuery reads an optional YYYY-MM-DD query parameter.
func parseDateQuery(r *http.Request, key string, fallback core.Date) (core.Date, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return fallback, nil
	}
	return core.ParseDate(v)
}

// parseLimit reads ?limit=, defaulting to 100 and capping at 1000.
func parseLimit(r *http.Request) (int, bool) {
	v := strings.TrimSpace(r.URL.Query().Get("limit"))
	if v == "" {
		return defaultListLimit, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, false
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return n, true
}

// sanitizeInput removes control characters except tab and newlines, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
