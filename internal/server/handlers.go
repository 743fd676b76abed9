package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/joseph-ayodele/deck-anonymizer/internal/common"
	"github.com/joseph-ayodele/deck-anonymizer/internal/llm"
)

const maxBodyBytes = 8 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startTime).Round(time.Second).String(),
	})
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	log := common.LoggerFromContext(r.Context(), s.logger)

	req, err := s.decodeClassify(r)
	if err != nil {
		log.Warn("server.classify.bad_request", "error", err)
		writeError(w, common.HTTPStatus(err), common.PublicMessage(err))
		return
	}
	if len(req.Shapes) == 0 {
		writeJSON(w, http.StatusOK, llm.ClassifyResponse{Classifications: []llm.ResultItem{}})
		return
	}

	start := time.Now()
	resp, err := s.backend.ClassifyBatch(r.Context(), req)
	if err != nil {
		log.Error("server.classify.failed", "shapes", len(req.Shapes), "error", err)
		err = common.UnavailableError("classification failed", err)
		writeError(w, common.HTTPStatus(err), common.PublicMessage(err))
		return
	}
	if resp.Classifications == nil {
		resp.Classifications = []llm.ResultItem{}
	}
	log.Info("server.classify.ok",
		"shapes", len(req.Shapes),
		"classifications", len(resp.Classifications),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) decodeClassify(r *http.Request) (llm.ClassifyRequest, error) {
	var req llm.ClassifyRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return req, common.InvalidInputErrorf("read body: %v", err)
	}
	if len(body) > maxBodyBytes {
		return req, common.InvalidInputErrorf("body exceeds %d bytes", maxBodyBytes)
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, common.InvalidInputErrorf("invalid JSON: %v", err)
	}
	return req, s.validateClassify(req)
}

func (s *Server) validateClassify(req llm.ClassifyRequest) error {
	v := common.NewValidator()
	v.Check(len(req.Shapes) <= s.cfg.MaxShapes, "shapes", len(req.Shapes),
		fmt.Sprintf("at most %d shapes per request", s.cfg.MaxShapes))

	seen := make(map[int]struct{}, len(req.Shapes))
	for i, sh := range req.Shapes {
		field := fmt.Sprintf("shapes[%d]", i)
		if _, dup := seen[sh.ID]; dup {
			v.Check(false, field+".id", sh.ID, "duplicate id")
		}
		seen[sh.ID] = struct{}{}
		v.Check(sh.ID >= 0, field+".id", sh.ID, "must not be negative")
		v.Check((sh.Text != nil) != (len(sh.Paragraphs) > 0), field, sh.ID, "exactly one of text and paragraphs is required")
		if sh.Text != nil {
			v.Field(field+".text", *sh.Text, common.MaxLength(s.cfg.MaxTextLength))
		}
		for j, p := range sh.Paragraphs {
			v.Field(fmt.Sprintf("%s.paragraphs[%d]", field, j), p, common.MaxLength(s.cfg.MaxTextLength))
		}
	}
	return v.Err()
}
