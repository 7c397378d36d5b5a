package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"pdfchat/internal/app"
	"pdfchat/internal/chat"
	"pdfchat/internal/conversation"
	"pdfchat/internal/httputil"
)

type queryRequest struct {
	Question string `json:"question" validate:"required,min=1,max=2000"`
}

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := deps.Chat.Close(); err != nil {
			deps.Log.Warn("shutdown cleanup failed", "err", err)
		}
	}()

	// A fresh conversation is active from boot; POST /api/conversations
	// rotates it.
	deps.Chat.StartConversation()

	r := httputil.NewRouter(deps.Log)

	r.Post("/api/documents", uploadHandler(deps))
	r.Delete("/api/documents", clearHandler(deps))
	r.Get("/api/stats", statsHandler(deps))
	r.Post("/api/query", queryHandler(deps))
	r.Post("/api/conversations", newConversationHandler(deps))
	r.Post("/api/conversations/save", saveConversationHandler(deps))
	r.Get("/api/messages", messagesHandler(deps))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))

	addr := fmt.Sprintf(":%d", deps.Config.Port)
	deps.Log.Info("server listening", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		deps.Log.Error("server failed", "err", err)
	}
}

func uploadHandler(deps app.Deps) http.HandlerFunc {
	maxFileSize := deps.Config.MaxUploadSize

	return func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("upload too large (max %d bytes)", maxFileSize), nil, http.StatusRequestEntityTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxFileSize)

		if err := r.ParseMultipartForm(maxFileSize); err != nil {
			httputil.Fail(deps.Log, w, "invalid multipart payload", err, http.StatusBadRequest)
			return
		}
		headers := r.MultipartForm.File["files"]
		if len(headers) == 0 {
			headers = r.MultipartForm.File["file"]
		}
		if len(headers) == 0 {
			httputil.Fail(deps.Log, w, "at least one file is required", nil, http.StatusBadRequest)
			return
		}

		var files []chat.File
		for _, header := range headers {
			if header.Size > maxFileSize {
				httputil.Fail(deps.Log, w, fmt.Sprintf("file %s too large (max %d bytes)", header.Filename, maxFileSize), nil, http.StatusRequestEntityTooLarge)
				return
			}
			if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != ".pdf" {
				httputil.Fail(deps.Log, w, fmt.Sprintf("unsupported file type %q (only PDF allowed)", header.Filename), nil, http.StatusBadRequest)
				return
			}
			f, err := header.Open()
			if err != nil {
				httputil.Fail(deps.Log, w, "failed to read upload", err, http.StatusInternalServerError)
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				httputil.Fail(deps.Log, w, "failed to read upload", err, http.StatusInternalServerError)
				return
			}
			files = append(files, chat.File{Name: header.Filename, Data: data})
		}

		result := deps.Chat.ProcessFiles(r.Context(), files)
		httputil.WriteJSON(w, http.StatusOK, result)
	}
}

func clearHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cleared := deps.Chat.Clear(r.Context())
		status := http.StatusOK
		if !cleared {
			status = http.StatusInternalServerError
		}
		httputil.WriteJSON(w, status, map[string]any{"cleared": cleared})
	}
}

func statsHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := deps.Chat.Stats(r.Context())
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to read stats", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, stats)
	}
}

func queryHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req queryRequest
		if err := decodeJSON(r, &req); err != nil {
			httputil.Fail(deps.Log, w, "invalid payload", err, http.StatusBadRequest)
			return
		}
		if err := httputil.Validator.Struct(&req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}

		reply, err := deps.Chat.Answer(r.Context(), req.Question)
		if errors.Is(err, conversation.ErrNoActiveConversation) {
			httputil.Fail(deps.Log, w, "no active conversation", err, http.StatusConflict)
			return
		}
		if err != nil {
			httputil.Fail(deps.Log, w, "query failed", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, reply)
	}
}

func newConversationHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := deps.Chat.StartConversation()
		httputil.WriteJSON(w, http.StatusCreated, map[string]any{"conversation_id": id.String()})
	}
}

func saveConversationHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Chat.SaveConversation(r.Context()); err != nil {
			if errors.Is(err, conversation.ErrNoActiveConversation) {
				httputil.Fail(deps.Log, w, "no active conversation", err, http.StatusConflict)
				return
			}
			httputil.Fail(deps.Log, w, "failed to save conversation", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"saved": true})
	}
}

func messagesHandler(deps app.Deps) http.HandlerFunc {
	const defaultWindow = 20

	return func(w http.ResponseWriter, r *http.Request) {
		n := defaultWindow
		if raw := r.URL.Query().Get("n"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				httputil.Fail(deps.Log, w, "n must be a positive integer", err, http.StatusBadRequest)
				return
			}
			n = parsed
		}
		turns := deps.Chat.RecentMessages(n)
		if turns == nil {
			turns = []conversation.Turn{}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"messages": turns})
	}
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
