package agent

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chroniclehq/chronicle/internal/store"
)

// Read-only query indirection so REPL and HTTP share one surface and tests
// can stub the store.
var (
	queryStats  = store.ChannelCounts
	queryRecent = store.RecentMessages
	querySearch = store.SearchMessages
)

type messageRow = store.MessageSummary

// NewRouter builds the read-only HTTP query API.
func NewRouter(db *sql.DB, logger *slog.Logger) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/stats", statsHandler(db, logger)).Methods(http.MethodGet)
	r.HandleFunc("/recent", recentHandler(db, logger)).Methods(http.MethodGet)
	r.HandleFunc("/search", searchHandler(db, logger)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

func statsHandler(db *sql.DB, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		counts, err := queryStats(db)
		if err != nil {
			serverError(w, logger, "stats query", err)
			return
		}
		if counts == nil {
			counts = []store.ChannelCount{}
		}
		writeJSON(w, counts)
	}
}

func recentHandler(db *sql.DB, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		limit := parseLimit(req, defaultLimit)
		messages, err := queryRecent(db, limit)
		if err != nil {
			serverError(w, logger, "recent query", err)
			return
		}
		if messages == nil {
			messages = []store.MessageSummary{}
		}
		writeJSON(w, messages)
	}
}

func searchHandler(db *sql.DB, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		term := req.URL.Query().Get("q")
		if term == "" {
			http.Error(w, `missing query parameter "q"`, http.StatusBadRequest)
			return
		}
		limit := parseLimit(req, defaultLimit)
		messages, err := querySearch(db, term, limit)
		if err != nil {
			serverError(w, logger, "search query", err)
			return
		}
		if messages == nil {
			messages = []store.MessageSummary{}
		}
		writeJSON(w, messages)
	}
}

func parseLimit(req *http.Request, fallback int) int {
	raw := req.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func serverError(w http.ResponseWriter, logger *slog.Logger, what string, err error) {
	logger.Error(what+" failed", "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
