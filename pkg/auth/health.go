package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// HealthHandler answers GET /health with the process uptime
func HealthHandler(started time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]interface{}{
			"status":    "OK",
			"timestamp": time.Now().UTC(),
			"uptime":    time.Since(started).Seconds(),
		})
	}
}
