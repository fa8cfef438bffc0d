package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// ParseID extracts the numeric row ID from the {id} path segment.
// On failure it writes a 400 response and returns false.
func ParseID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (int64, bool) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid id"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return 0, false
	}
	return id, true
}
