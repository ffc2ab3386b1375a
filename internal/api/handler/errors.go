package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/mcoot/rpsarbiter/internal/api/apierr"
)

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

// queryInt reads an optional integer query parameter bounded to [lo, hi].
// A missing parameter yields def.
func queryInt(r *http.Request, key string, def, lo, hi int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		return 0, apierr.NewInvalidRequestError(fmt.Sprintf("%s must be between %d and %d", key, lo, hi))
	}
	return n, nil
}
