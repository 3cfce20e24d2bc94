package thumbtint

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/thumbtint/thumbtint/internal/kit"
)

// MaxRenderBody caps the HTML accepted by POST /render.
const MaxRenderBody = 16 << 20

// Handler returns the local admin surface:
//
//	GET  /health
//	GET  /pages
//	POST /pages/{id}/run
//	POST /render?url=...   (body: HTML, response: HTML)
//	GET  /stats?page=...
//	     /mcp              (streamable HTTP MCP)
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(kit.HeadToGet)
	r.Use(kit.SecurityHeaders(kit.DefaultHeaders()))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/pages", func(w http.ResponseWriter, r *http.Request) {
		resp, _ := s.pagesEP(r.Context(), &struct{}{})
		writeJSON(w, http.StatusOK, resp)
	})

	r.Post("/pages/{id}/run", func(w http.ResponseWriter, r *http.Request) {
		resp, err := s.runEP(r.Context(), &pageRequest{PageID: chi.URLParam(r, "id")})
		if errors.Is(err, ErrUnknownPage) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusAccepted, resp)
	})

	r.Post("/render", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxRenderBody))
		if err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		resp, err := s.renderEP(r.Context(), &renderRequest{HTML: string(body), URL: r.URL.Query().Get("url")})
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		rr := resp.(*renderResponse)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("X-Thumbtint-Pass", rr.Pass.ID)
		w.Header().Set("X-Thumbtint-Processed", strconv.Itoa(rr.Pass.Processed))
		io.WriteString(w, rr.HTML)
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		resp, err := s.statsEP(r.Context(), &pageRequest{PageID: r.URL.Query().Get("page")})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})

	srv := s.NewMCPServer()
	r.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return srv }, nil))

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
