package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"RedditSchedulerAPI/middleware"
	"RedditSchedulerAPI/models"
	"RedditSchedulerAPI/services"
	"RedditSchedulerAPI/utils"

	"github.com/gorilla/mux"
)

func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	var req models.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	resp, err := h.dispatcher.Dispatch(r.Context(), userID, req)
	if err != nil {
		var vErr *services.ValidationError
		switch {
		case errors.As(err, &vErr):
			utils.RespondWithError(w, http.StatusBadRequest, vErr.Error())
		case errors.Is(err, services.ErrQuotaExhausted):
			utils.RespondWithError(w, http.StatusPaymentRequired, "No post credits remaining")
		case resp != nil:
			// Immediate publish failed; the failed record was persisted.
			utils.RespondWithJSON(w, http.StatusBadGateway, map[string]interface{}{
				"error": err.Error(),
				"post":  resp.Post,
			})
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Error creating post")
		}
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, resp)
}

func (h *Handler) GetPosts(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	posts, err := h.db.GetUserPosts(userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error fetching posts")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, posts)
}

func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	vars := mux.Vars(r)
	postID := vars["id"]

	post, err := h.db.GetPost(postID)
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Post not found")
		return
	}

	if post.UserID != userID {
		utils.RespondWithError(w, http.StatusForbidden, "Access denied")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, post)
}

// CancelPost transitions a scheduled post to cancelled. Posts already picked
// up by a sweep or in a terminal state cannot be cancelled.
func (h *Handler) CancelPost(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	vars := mux.Vars(r)
	postID := vars["id"]

	cancelled, err := h.db.CancelPost(postID, userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error cancelling post")
		return
	}
	if !cancelled {
		utils.RespondWithError(w, http.StatusConflict, "Post is not in scheduled state")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Post cancelled"})
}

func (h *Handler) GetPostMetrics(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	vars := mux.Vars(r)
	postID := vars["id"]

	post, err := h.db.GetPost(postID)
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Post not found")
		return
	}
	if post.UserID != userID {
		utils.RespondWithError(w, http.StatusForbidden, "Access denied")
		return
	}
	if post.RedditPostID == "" {
		utils.RespondWithError(w, http.StatusNotFound, "Post has no metrics yet")
		return
	}

	metrics, err := h.db.GetMetrics(post.RedditPostID)
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Post has no metrics yet")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, metrics)
}
