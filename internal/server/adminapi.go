package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ColdDevYT/Star-Chat/internal/admin"
	"github.com/ColdDevYT/Star-Chat/internal/moderation"
)

// newAdminAPI exposes the collaborator surface: read-only access to the
// chat log and report sinks plus the promote/demote authority. Token
// validation happens in the middleware chain before these handlers run.
func newAdminAPI(logger *slog.Logger, authority *admin.Authority, logs *admin.LogSink, reports *admin.ReportSink) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /admin/logs", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logs.Entries())
	})

	mux.HandleFunc("GET /admin/reports", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, reports.Reports())
	})

	mux.HandleFunc("POST /admin/promote", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name string `json:"name"`
			Role string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		role, err := moderation.ParseRole(body.Role)
		if err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		changed := authority.Promote(body.Name, role)
		logger.Info("Admin surface promoted user", slog.String("name", body.Name), slog.String("role", role.String()))
		writeJSON(w, map[string]bool{"changed": changed})
	})

	mux.HandleFunc("POST /admin/demote", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]bool{"changed": authority.Demote(body.Name)})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
