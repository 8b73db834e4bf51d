package wsbridge

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ivlev/choreo/internal/fault"
)

// StartRequest is decoded from the query of POST /start.
type StartRequest struct {
	Effect    string
	Profile   string
	Variant   string
	Direction string
	Pieces    int
	Text      string
	Loop      bool
}

// RunInfo describes a started run.
type RunInfo struct {
	Run      uint64  `json:"run"`
	Effect   string  `json:"effect"`
	Profile  string  `json:"profile"`
	Seed     int64   `json:"seed"`
	Duration float64 `json:"duration"`
}

// Controls is what the HTTP endpoints drive. Implementations hop onto the
// frame goroutine before touching the controller.
type Controls interface {
	Start(req StartRequest) (RunInfo, error)
	Stop() bool
}

// NewMux wires /ws, /start, /stop and, when metrics is non-nil, /metrics.
func NewMux(hub *Hub, ctl Controls, metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		req, err := parseStart(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		info, err := ctl.Start(req)
		if err != nil {
			http.Error(w, err.Error(), statusOf(err))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(info)
	})
	mux.HandleFunc("/stop", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !ctl.Stop() {
			w.WriteHeader(http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}
	return mux
}

func parseStart(r *http.Request) (StartRequest, error) {
	q := r.URL.Query()
	req := StartRequest{
		Effect:    q.Get("effect"),
		Profile:   q.Get("profile"),
		Variant:   q.Get("variant"),
		Direction: q.Get("direction"),
		Text:      q.Get("text"),
	}
	if v := q.Get("pieces"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, fault.Invalid("pieces %q", v)
		}
		req.Pieces = n
	}
	if v := q.Get("loop"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return req, fault.Invalid("loop %q", v)
		}
		req.Loop = b
	}
	return req, nil
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, fault.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, fault.ErrUnsupportedTarget):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
