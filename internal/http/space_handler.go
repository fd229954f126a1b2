package httpapi

import (
	"net/http"

	"memberhub/internal/service"

	"go.uber.org/zap"
)

// SpaceHandler serves /api/v1/spaces/* and /api/v1/posts/{id}.
type SpaceHandler struct {
	spaces service.SpaceService
	logger *zap.Logger
}

func NewSpaceHandler(spaces service.SpaceService, logger *zap.Logger) *SpaceHandler {
	return &SpaceHandler{spaces: spaces, logger: logger}
}

func (h *SpaceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := ViewerFrom(ctx)
	parts := splitPath(r.URL.Path, "/api/v1/spaces")

	switch {
	// /api/v1/spaces
	case len(parts) == 0:
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		views, err := h.spaces.List(ctx, viewer)
		if err != nil {
			h.logger.Error("ListSpaces failed", zap.Error(err))
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(views))

	// /api/v1/spaces/{slug}
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		v, err := h.spaces.Get(ctx, viewer, parts[0])
		if err != nil {
			h.logger.Error("GetSpace failed", zap.String("slug", parts[0]), zap.Error(err))
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(v))

	// /api/v1/spaces/{slug}/join
	case len(parts) == 2 && parts[1] == "join":
		slug := parts[0]
		switch r.Method {
		case http.MethodPost:
			v, err := h.spaces.Join(ctx, viewer, slug)
			if err != nil {
				h.logger.Error("JoinSpace failed", zap.String("slug", slug), zap.Error(err))
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, Ok(v))
		case http.MethodDelete:
			if err := h.spaces.Leave(ctx, viewer, slug); err != nil {
				h.logger.Error("LeaveSpace failed", zap.String("slug", slug), zap.Error(err))
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, Ok(map[string]any{"joined": false}))
		default:
			methodNotAllowed(w)
		}

	// /api/v1/spaces/{slug}/posts
	case len(parts) == 2 && parts[1] == "posts":
		slug := parts[0]
		switch r.Method {
		case http.MethodGet:
			q := r.URL.Query()
			resp, err := h.spaces.ListPosts(ctx, viewer, slug, parseInt(q.Get("page"), 1), parseInt(q.Get("size"), 0))
			if err != nil {
				h.logger.Error("ListPosts failed", zap.String("slug", slug), zap.Error(err))
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, Ok(resp))
		case http.MethodPost:
			var req service.CreatePostRequest
			if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
				writeError(w, err)
				return
			}
			post, err := h.spaces.CreatePost(ctx, viewer, slug, req)
			if err != nil {
				h.logger.Error("CreatePost failed", zap.String("slug", slug), zap.Error(err))
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, Ok(post))
		default:
			methodNotAllowed(w)
		}

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// Posts: DELETE /api/v1/posts/{id}
func (h *SpaceHandler) Posts(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/api/v1/posts")
	if len(parts) != 1 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	if err := h.spaces.DeletePost(r.Context(), ViewerFrom(r.Context()), parts[0]); err != nil {
		h.logger.Error("DeletePost failed", zap.String("post_id", parts[0]), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"deleted": true}))
}
