package render

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/sugawarayuuta/sonnet"

	"github.com/prisma-monitor/indexer/config"
	"github.com/prisma-monitor/indexer/db"
	"github.com/prisma-monitor/indexer/logging"
)

// ErrBadRequest marks errors caused by invalid request parameters.
var ErrBadRequest = errors.New("bad request")

func JSON(w http.ResponseWriter, r *http.Request, status int, res interface{}) {
	var blob []byte
	var err error
	if pretty, _ := strconv.ParseBool(r.URL.Query().Get("pretty")); pretty {
		blob, err = sonnet.MarshalIndent(res, "", "  ")
	} else {
		blob, err = sonnet.Marshal(res)
	}
	if err != nil {
		Error(w, r, fmt.Errorf("failed to marshal JSON result: %w", err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(append(blob, '\n')); err != nil {
		logging.LoggerFromContext(r.Context()).WithError(err).Warn("can't write response")
	}
}

type errorResult struct {
	Error string `json:"error"`
}

// Error renders err with a status derived from its sentinel.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, db.ErrNotFound), errors.Is(err, config.ErrUnknownChain):
		status = http.StatusNotFound
	}
	logger := logging.LoggerFromContext(r.Context()).WithError(err)
	if status == http.StatusInternalServerError {
		logger.Error("request handling failed")
	} else {
		logger.Debug("request rejected")
	}
	JSON(w, r, status, &errorResult{Error: err.Error()})
}
