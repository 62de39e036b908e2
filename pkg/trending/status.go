package trending

import (
	"context"
	"net/http"

	"polls/pkg/common"
)

type LatestSource interface {
	Latest(ctx context.Context) (*Report, error)
}

type Status struct {
	Running bool    `json:"running"`
	Last    *Report `json:"lastRun"`
}

// StatusHandler serves the last trending cycle and whether the scheduler runs.
type StatusHandler struct {
	Runs    LatestSource
	Updater *Updater
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	last, err := h.Runs.Latest(r.Context())
	if err != nil {
		common.WriteErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	common.WriteRespJSON(w, Status{Running: h.Updater != nil && h.Updater.Running(), Last: last})
}
