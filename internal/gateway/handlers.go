package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// RegisterRoutes registers the REST and WebSocket routes on mux.
func RegisterRoutes(mux *http.ServeMux, svc *Service, hub *Hub, log *slog.Logger, processStart time.Time) {
	if log == nil {
		log = slog.Default()
	}

	// WebSocket progress feed: ?last_seq=N replays newer envelopes,
	// ?tickers=A,B filters.
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("ws upgrade failed", slog.String("error", err.Error()))
			return
		}
		lastSeq, _ := strconv.ParseInt(r.URL.Query().Get("last_seq"), 10, 64)
		var tickers []string
		if raw := r.URL.Query().Get("tickers"); raw != "" {
			tickers = strings.Split(raw, ",")
		}
		hub.Register(conn, lastSeq, tickers)
	})

	// POST /api/backtest runs a batch and returns its outcomes.
	mux.HandleFunc("/api/backtest", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		switch r.Method {
		case http.MethodOptions:
			w.WriteHeader(http.StatusOK)
			return
		case http.MethodPost:
		default:
			writeError(w, http.StatusMethodNotAllowed, "use POST")
			return
		}

		var req BacktestRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
				return
			}
		}

		resp, err := svc.Run(r.Context(), req)
		switch {
		case errors.Is(err, ErrBusy):
			writeError(w, http.StatusConflict, err.Error())
		case err != nil:
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			log.Info("backtest request served",
				slog.String("run_id", resp.RunID),
				slog.Int("tickers", len(resp.Outcomes)),
			)
			writeJSON(w, http.StatusOK, resp)
		}
	})

	// GET /api/results returns the latest batch; ?ticker=X returns that
	// ticker's full result including trades and equity curve.
	mux.HandleFunc("/api/results", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		if ticker := r.URL.Query().Get("ticker"); ticker != "" {
			o, ok := svc.Result(upperTrim(ticker))
			if !ok {
				writeError(w, http.StatusNotFound, "no result for "+ticker)
				return
			}
			writeJSON(w, http.StatusOK, o)
			return
		}
		latest := svc.Latest()
		if latest == nil {
			writeError(w, http.StatusNotFound, "no backtest has run yet")
			return
		}
		writeJSON(w, http.StatusOK, latest)
	})

	// GET /api/runs?limit=N lists journaled runs.
	mux.HandleFunc("/api/runs", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		if svc.cfg.Runs == nil {
			writeError(w, http.StatusNotImplemented, "journal not configured")
			return
		}
		limit := 50
		if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
		runs, err := svc.cfg.Runs.GetRuns(r.Context(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, runs)
	})

	// GET /api/trades?run_id=R&ticker=T returns a journaled ledger.
	mux.HandleFunc("/api/trades", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		if svc.cfg.Runs == nil {
			writeError(w, http.StatusNotImplemented, "journal not configured")
			return
		}
		runID, ticker := r.URL.Query().Get("run_id"), upperTrim(r.URL.Query().Get("ticker"))
		if runID == "" || ticker == "" {
			writeError(w, http.StatusBadRequest, "run_id and ticker are required")
			return
		}
		trades, err := svc.cfg.Runs.GetTrades(r.Context(), runID, ticker)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, trades)
	})

	// GET /api/status is a lightweight liveness view of the service.
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		writeJSON(w, http.StatusOK, map[string]any{
			"running":    svc.Running(),
			"ws_clients": hub.ClientCount(),
			"seq":        hub.Seq(),
			"uptime_sec": int64(time.Since(processStart).Seconds()),
			"ts":         time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
