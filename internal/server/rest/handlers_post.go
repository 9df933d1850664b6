package rest

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/dmitrijs2005/feedstream/internal/common"
	"github.com/dmitrijs2005/feedstream/internal/server/auth"
	"github.com/dmitrijs2005/feedstream/internal/server/images"
	"github.com/dmitrijs2005/feedstream/internal/server/models"
	"github.com/dmitrijs2005/feedstream/internal/server/services"
)

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page = n
		}
	}

	posts, total, err := s.posts.List(r.Context(), auth.IdentityFromContext(r.Context()), page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if posts == nil {
		posts = []*models.Post{}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Fetched all Posts successfully",
		"posts":      posts,
		"totalItems": total,
	})
}

// savedUpload extracts the multipart image file if the request carries an
// accepted one, stores it, and returns its object key. An empty key means no
// usable file was sent.
func (s *Server) savedUpload(r *http.Request) (string, error) {
	upload, err := images.ExtractUpload(r)
	if err != nil {
		return "", err
	}
	if upload == nil {
		return "", nil
	}
	defer upload.Close()

	key := images.StorageKey(upload.Filename)
	if err := s.images.Save(r.Context(), key, upload.ContentType, upload.File); err != nil {
		return "", err
	}
	return key, nil
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	key, err := s.savedUpload(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	in := services.PostInput{
		Title:    r.FormValue("title"),
		Content:  r.FormValue("content"),
		ImageURL: key,
	}

	post, err := s.posts.Create(r.Context(), auth.IdentityFromContext(r.Context()), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Post Created",
		"post":    post,
	})
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	post, err := s.posts.Get(r.Context(), auth.IdentityFromContext(r.Context()), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"message": "Post Fetched",
		"post":    post,
	})
}

func (s *Server) updatePost(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	key, err := s.savedUpload(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if key == "" {
		// no new file: the client resends the stored key of the current image
		key = r.FormValue("imageUrl")
	}

	in := services.PostInput{
		Title:    r.FormValue("title"),
		Content:  r.FormValue("content"),
		ImageURL: key,
	}

	post, err := s.posts.Update(r.Context(), auth.IdentityFromContext(r.Context()), id, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"message": "Post Updated",
		"post":    post,
	})
}

func (s *Server) deletePost(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.posts.Delete(r.Context(), auth.IdentityFromContext(r.Context()), id); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"message": "Post Deleted"})
}

// uploadImage stores a standalone image ahead of a post mutation. When the
// client replaces an existing image it sends the old key in the "oldPath"
// field; removal of the old object is best effort.
func (s *Server) uploadImage(w http.ResponseWriter, r *http.Request) {
	if err := auth.RequireAuthenticated(auth.IdentityFromContext(r.Context())); err != nil {
		s.writeError(w, r, err)
		return
	}

	key, err := s.savedUpload(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if key == "" {
		s.writeJSON(w, http.StatusOK, map[string]any{"message": "No file provided."})
		return
	}

	if oldPath := r.FormValue("oldPath"); oldPath != "" {
		if err := s.images.Delete(r.Context(), oldPath); err != nil {
			s.logger.Warn(r.Context(), "deleting replaced image failed", "key", oldPath, "error", err)
		}
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "File Uploaded.",
		"filePath": key,
	})
}

// serveImage redirects to a short-lived presigned URL for the stored object.
func (s *Server) serveImage(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	if key == "" {
		s.writeError(w, r, common.ErrorNotFound)
		return
	}

	url, err := s.images.PresignGet(r.Context(), key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}
