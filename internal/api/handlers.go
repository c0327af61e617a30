package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mattjoyce/msgwebhook/internal/store"
)

// handleLive handles GET /health/live.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, StatusResponse{Status: "live"})
}

// handleReady handles GET /health/ready. The secret check runs first so an
// unconfigured service never touches the store.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.config.Webhook.Secret == "" {
		s.writeError(w, http.StatusServiceUnavailable, "WEBHOOK_SECRET not set")
		return
	}
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Warn("readiness check failed", "error", err)
		s.writeError(w, http.StatusServiceUnavailable, "database not ready")
		return
	}
	s.respondJSON(w, http.StatusOK, StatusResponse{Status: "ready"})
}

// handleListMessages handles GET /messages.
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	q := parseListQuery(r.URL.Query())

	page, err := s.store.List(r.Context(), q)
	if err != nil {
		s.logger.Error("failed to list messages", "error", err)
		addLogFields(r, "error", err.Error())
		s.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	resp := MessagesResponse{
		Data:   make([]MessageItem, 0, len(page.Items)),
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	for _, m := range page.Items {
		resp.Data = append(resp.Data, MessageItem{
			MessageID:  m.ID,
			FromMSISDN: m.FromMSISDN,
			ToMSISDN:   m.ToMSISDN,
			TS:         m.TS,
			Text:       m.Text,
		})
	}

	addLogFields(r, "limit", page.Limit, "offset", page.Offset, "total", page.Total)
	s.respondJSON(w, http.StatusOK, resp)
}

// parseListQuery reads the list parameters. Unparseable numbers fall back
// to their defaults; range clamping is left to store.ListQuery.Normalize.
func parseListQuery(v url.Values) store.ListQuery {
	q := store.ListQuery{
		Limit:  intParam(v, "limit", store.DefaultLimit),
		Offset: intParam(v, "offset", 0),
		From:   v.Get("from"),
		Since:  v.Get("since"),
		Q:      v.Get("q"),
	}
	if q.From == "" {
		q.From = v.Get("from_")
	}
	return q.Normalize()
}

func intParam(v url.Values, key string, fallback int) int {
	raw := v.Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// handleStats handles GET /stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Stats(r.Context())
	if err != nil {
		s.logger.Error("failed to compute stats", "error", err)
		addLogFields(r, "error", err.Error())
		s.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	senders := st.TopSenders
	if senders == nil {
		senders = []store.SenderCount{}
	}
	s.respondJSON(w, http.StatusOK, StatsResponse{
		TotalMessages:     st.TotalMessages,
		SendersCount:      st.SendersCount,
		MessagesPerSender: senders,
		FirstMessageTS:    st.FirstTS,
		LastMessageTS:     st.LastTS,
	})
}

// handleMetrics handles GET /metrics. The export is taken before this
// request is counted.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	body := s.metrics.ExportText()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	s.respondJSON(w, status, ErrorResponse{Detail: detail})
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Debug("write response", "error", err)
	}
}
