// Package api wires the poster together and serves its status over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"feedbackposter/pkg/cursor"
	"feedbackposter/pkg/poster"
)

// CursorReader reads the stored cursor without consuming a pending reset.
type CursorReader interface {
	Peek() (cursor.Cursor, error)
}

// RunHistory reports the most recent scheduled run.
type RunHistory interface {
	LastRun() (poster.LastRun, bool)
}

// Handler serves read-only status. It never writes the cursor.
type Handler struct {
	cursor CursorReader
	runs   RunHistory
	log    logrus.FieldLogger
}

func NewHandler(c CursorReader, runs RunHistory, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{cursor: c, runs: runs, log: logger}
}

type runResponse struct {
	Outcome   poster.Outcome `json:"outcome"`
	Column    string         `json:"column,omitempty"`
	Method    poster.Method  `json:"method,omitempty"`
	Rows      int            `json:"rows"`
	Published int            `json:"published"`
	Skipped   int            `json:"skipped"`
	LastIndex int            `json:"last_index"`
	Error     string         `json:"error,omitempty"`
	Started   time.Time      `json:"started"`
	Finished  time.Time      `json:"finished"`
}

type indexResponse struct {
	LastIndex int          `json:"last_index"`
	NextRow   int          `json:"next_row"`
	LastRun   *runResponse `json:"last_run"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) getIndex(w http.ResponseWriter, r *http.Request) {
	c, err := h.cursor.Peek()
	if err != nil {
		h.log.WithError(err).Error("Could not read cursor")
		sendJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	resp := indexResponse{LastIndex: c.LastIndex, NextRow: c.Next()}
	if h.runs != nil {
		if last, ok := h.runs.LastRun(); ok {
			resp.LastRun = newRunResponse(last)
		}
	}
	sendJSON(w, http.StatusOK, resp)
}

func (h *Handler) getHealth(w http.ResponseWriter, r *http.Request) {
	sendResponse(w, http.StatusOK, []byte(`{"status":"ok"}`))
}

func newRunResponse(last poster.LastRun) *runResponse {
	resp := &runResponse{
		Outcome:   last.Report.Outcome,
		Column:    last.Report.Column,
		Method:    last.Report.Method,
		Rows:      last.Report.Rows,
		Published: last.Report.Published,
		Skipped:   last.Report.Skipped,
		LastIndex: last.Report.LastIndex,
		Started:   last.Started.UTC(),
		Finished:  last.Finished.UTC(),
	}
	if last.Err != nil {
		resp.Error = last.Err.Error()
	}
	return resp
}

func sendJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		sendResponse(w, http.StatusInternalServerError, []byte(`{"error":"encode response"}`))
		return
	}
	sendResponse(w, status, body)
}

func sendResponse(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
