package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mithrel/craftforum/internal/forum"
	"github.com/mithrel/craftforum/pkg/api"
)

const maxBodyBytes = 1 << 20

// Server serves the forum JSON API.
type Server struct {
	cfg    *viper.Viper
	forum  *forum.Service
	tokens *Tokens
	log    *zap.SugaredLogger
}

func New(cfg *viper.Viper, svc *forum.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:    cfg,
		forum:  svc,
		tokens: NewTokens(cfg.GetString("auth.jwt_secret"), cfg.GetDuration("auth.token_ttl")),
		log:    logger.Sugar(),
	}
}

func (s *Server) Tokens() *Tokens { return s.tokens }

// Router returns an http.Handler with registered routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /v1/boards", s.handleBoards)
	mux.HandleFunc("GET /v1/posts", s.handleListPosts)
	mux.HandleFunc("POST /v1/posts", s.handleCreatePost)
	mux.HandleFunc("GET /v1/posts/{id}", s.handleThread)
	mux.HandleFunc("PATCH /v1/posts/{id}", s.handleUpdatePost)
	mux.HandleFunc("DELETE /v1/posts/{id}", s.handleDeletePost)
	mux.HandleFunc("POST /v1/posts/{id}/comments", s.handleCreateComment)
	mux.HandleFunc("PATCH /v1/comments/{id}", s.handleEditComment)
	mux.HandleFunc("DELETE /v1/comments/{id}", s.handleDeleteComment)
	mux.HandleFunc("POST /v1/markdown/render", s.handleRender)
	mux.HandleFunc("POST /v1/markdown/strip", s.handleStrip)
	return s.accessLog(s.authenticate(mux))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Infow("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &apiError{Status: http.StatusBadRequest, Code: codeBadRequest, Message: fmt.Sprintf("invalid body: %v", err)}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONTagged writes v with an ETag and answers 304 when the client
// already has it.
func writeJSONTagged(w http.ResponseWriter, r *http.Request, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "encode failed"})
		return
	}
	etag := `"` + api.ContentHash(string(b))[:32] + `"`
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(append(b, '\n'))
}

func (s *Server) handleBoards(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"boards": s.forum.Boards()})
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := api.PostQuery{
		Board:   strings.TrimSpace(q.Get("board")),
		Cursor:  q.Get("cursor"),
		Reverse: q.Get("reverse") == "true",
	}
	if ls := strings.TrimSpace(q.Get("limit")); ls != "" {
		n, err := strconv.Atoi(ls)
		if err != nil || n <= 0 {
			writeError(w, s.log, &apiError{Status: http.StatusBadRequest, Code: codeBadRequest, Message: "bad limit"})
			return
		}
		query.Limit = n
	}
	posts, page, err := s.forum.ListPosts(r.Context(), query)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts, "page": page})
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var in forum.NewPost
	if err := decode(w, r, &in); err != nil {
		writeError(w, s.log, err)
		return
	}
	p, err := s.forum.CreatePost(r.Context(), ViewerFrom(r.Context()), in)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleThread(w http.ResponseWriter, r *http.Request) {
	th, err := s.forum.GetThread(r.Context(), ViewerFrom(r.Context()), api.ID(r.PathValue("id")))
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSONTagged(w, r, th)
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	var edit forum.PostEdit
	if err := decode(w, r, &edit); err != nil {
		writeError(w, s.log, err)
		return
	}
	p, err := s.forum.UpdatePost(r.Context(), ViewerFrom(r.Context()), api.ID(r.PathValue("id")), edit)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	if err := s.forum.DeletePost(r.Context(), ViewerFrom(r.Context()), api.ID(r.PathValue("id"))); err != nil {
		writeError(w, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var in forum.NewComment
	if err := decode(w, r, &in); err != nil {
		writeError(w, s.log, err)
		return
	}
	c, err := s.forum.CreateComment(r.Context(), ViewerFrom(r.Context()), api.ID(r.PathValue("id")), in)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

type contentBody struct {
	Content string `json:"content"`
}

func (s *Server) handleEditComment(w http.ResponseWriter, r *http.Request) {
	var in contentBody
	if err := decode(w, r, &in); err != nil {
		writeError(w, s.log, err)
		return
	}
	c, err := s.forum.EditComment(r.Context(), ViewerFrom(r.Context()), api.ID(r.PathValue("id")), in.Content)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	if err := s.forum.DeleteComment(r.Context(), ViewerFrom(r.Context()), api.ID(r.PathValue("id"))); err != nil {
		writeError(w, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var in contentBody
	if err := decode(w, r, &in); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"html": s.forum.Preview(r.Context(), in.Content)})
}

func (s *Server) handleStrip(w http.ResponseWriter, r *http.Request) {
	var in contentBody
	if err := decode(w, r, &in); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": s.forum.StripContent(in.Content)})
}
