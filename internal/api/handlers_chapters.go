package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dgallion1/chaptermap/internal/block"
	"github.com/dgallion1/chaptermap/internal/chapter"
	"github.com/dgallion1/chaptermap/internal/content"
	"github.com/dgallion1/chaptermap/internal/parser"
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type parseRequest struct {
	Content string `json:"content" validate:"required"`
}

type mapRequest struct {
	ChapterID string        `json:"chapterId" validate:"required"`
	Content   string        `json:"content" validate:"required_without=Blocks"`
	Blocks    []block.Block `json:"blocks"`
	Debug     bool          `json:"debug"`
}

type renderRequest struct {
	ChapterID string `json:"chapterId" validate:"required"`
	Content   string `json:"content"`
}

// decodeJSON reads a size-limited JSON body into dst and validates it.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			jsonError(w, fmt.Sprintf("body exceeds max size (%d bytes)", tooBig.Limit), http.StatusRequestEntityTooLarge)
			return false
		}
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		jsonError(w, validationMessage(err), http.StatusBadRequest)
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required", "required_without":
		return fmt.Sprintf("%s is required", fe.Field())
	default:
		return fmt.Sprintf("%s: failed %q check", fe.Field(), fe.Tag())
	}
}

func (s *Server) chapterParser() *parser.ChapterParser {
	return &parser.ChapterParser{}
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	blocks := s.chapterParser().ParseText(req.Content)
	writeJSON(w, http.StatusOK, map[string]any{"blocks": nonNil(blocks)})
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	var req mapRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	blocks := req.Blocks
	if req.Content != "" {
		blocks = s.chapterParser().ParseText(req.Content)
	} else if err := checkBlocks(blocks); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := map[string]any{
		"chapterId": req.ChapterID,
		"blocks":    nonNil(blocks),
		"result":    s.deps.Resolver.Resolve(r.Context(), req.ChapterID, blocks),
	}
	if req.Debug {
		resp["matches"] = nonNil(s.deps.Resolver.Matches(r.Context(), req.ChapterID, blocks))
	}
	writeJSON(w, http.StatusOK, resp)
}

// checkBlocks rejects client supplied blocks the resolver cannot key on.
func checkBlocks(blocks []block.Block) error {
	seen := make(map[string]bool, len(blocks))
	for i, b := range blocks {
		if b.ID == "" {
			return fmt.Errorf("blocks[%d]: id is required", i)
		}
		if seen[b.ID] {
			return fmt.Errorf("blocks[%d]: duplicate id %q", i, b.ID)
		}
		seen[b.ID] = true
		if !b.Type.Valid() {
			return fmt.Errorf("blocks[%d]: unknown type %q", i, b.Type)
		}
	}
	return nil
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	text := req.Content
	if text == "" {
		if s.deps.Content == nil {
			jsonError(w, "content is required", http.StatusBadRequest)
			return
		}
		ch, err := s.deps.Content.Get(req.ChapterID)
		if errors.Is(err, content.ErrNotFound) {
			jsonError(w, "chapter source not found", http.StatusNotFound)
			return
		}
		if err != nil {
			s.log.Error("read chapter source", "chapter", req.ChapterID, "error", err)
			jsonError(w, "failed to read chapter source", http.StatusInternalServerError)
			return
		}
		text = ch.Content
	}

	blocks := s.chapterParser().ParseText(text)
	res := s.deps.Resolver.Resolve(r.Context(), req.ChapterID, blocks)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.deps.Renderer.Render(w, blocks, res); err != nil {
		s.log.Error("render failed", "chapter", req.ChapterID, "error", err)
	}
}

func (s *Server) handleListChapters(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{}

	ids, err := s.deps.Chapters.IDs()
	if err != nil {
		s.log.Warn("listing chapter configs", "error", err)
	}
	resp["configs"] = nonNil(ids)

	if s.deps.Content != nil {
		slugs, err := s.deps.Content.List()
		if err != nil {
			s.log.Warn("listing chapter sources", "error", err)
		}
		resp["sources"] = nonNil(slugs)
		resp["order"] = s.deps.Content.Order()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChapterConfig(w http.ResponseWriter, r *http.Request) {
	id, err := chapter.NormalizeID(r.URL.Query().Get("id"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":     id,
		"config": s.deps.Repository.Get(r.Context(), id),
	})
}

func (s *Server) handleChapterSource(w http.ResponseWriter, r *http.Request) {
	if s.deps.Content == nil {
		jsonError(w, "content directory not configured", http.StatusNotFound)
		return
	}
	id := r.URL.Query().Get("id")
	ch, err := s.deps.Content.Get(id)
	if errors.Is(err, content.ErrNotFound) {
		jsonError(w, "chapter source not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("read chapter source", "chapter", id, "error", err)
		jsonError(w, "failed to read chapter source", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"chapter":    ch,
		"navigation": s.deps.Content.Navigate(ch.Slug),
	})
}

func (s *Server) handleInvalidateCache(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("id")
	if raw == "" {
		s.deps.Repository.Purge()
		s.log.Info("chapter config cache purged")
		writeJSON(w, http.StatusOK, map[string]any{"purged": true})
		return
	}

	id, err := chapter.NormalizeID(raw)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.deps.Repository.Invalidate(id)
	s.log.Info("chapter config invalidated", "chapter", id)
	writeJSON(w, http.StatusOK, map[string]any{"invalidated": id})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// nonNil keeps empty lists as [] rather than null in responses.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
