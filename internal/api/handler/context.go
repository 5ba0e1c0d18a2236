package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/trailhub/trailhub/internal/api/middleware"
	"github.com/trailhub/trailhub/internal/api/models"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// GetUserID retrieves the authenticated user ID from the context.
// This is a convenience wrapper around middleware.GetUserID.
func GetUserID(ctx context.Context) string {
	return middleware.GetUserID(ctx)
}

// getEmail returns the email claim of the authenticated caller, if any.
func getEmail(ctx context.Context) string {
	if identity := middleware.GetIdentity(ctx); identity != nil {
		return identity.Email
	}
	return ""
}

// decodeJSON decodes a bounded JSON body into dst. An empty body leaves dst
// untouched when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if allowEmpty && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// parseLimit reads an optional non-negative integer query parameter.
func parseLimit(r *http.Request, name string) (int, *models.FieldError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &models.FieldError{Field: name, Message: "must be a non-negative integer", Code: "invalid"}
	}
	return n, nil
}
