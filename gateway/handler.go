package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tst-race/mastodon-transport/transport"
)

// Handler exposes the gateway's control plane over HTTP.
type Handler struct {
	gw *Gateway
}

// NewHandler creates the HTTP handler for a gateway.
func NewHandler(gw *Gateway) *Handler {
	return &Handler{gw: gw}
}

// RegisterRoutes registers the control-plane routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/links", h.handleCreateLink)
		r.Post("/links/load", h.handleLoadLink)
		r.Get("/links", h.handleListLinks)
		r.Delete("/links/{linkID}", h.handleDestroyLink)
		r.Post("/links/{linkID}/messages", h.handleSendMessage)
		r.Post("/fetch", h.handleFetch)
		r.Get("/messages", h.handleMessages)
		r.Get("/status", h.handleStatus)
	})
}

type createLinkRequest struct {
	LinkID string `json:"linkId"`
}

func (h *Handler) handleCreateLink(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	info, err := h.gw.CreateLink(req.LinkID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

type loadLinkRequest struct {
	LinkID  string `json:"linkId"`
	Address string `json:"address"`
}

func (h *Handler) handleLoadLink(w http.ResponseWriter, r *http.Request) {
	var req loadLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Address == "" {
		http.Error(w, "missing address", http.StatusBadRequest)
		return
	}

	info, err := h.gw.LoadLink(req.LinkID, req.Address)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (h *Handler) handleListLinks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.gw.ListLinks())
}

func (h *Handler) handleDestroyLink(w http.ResponseWriter, r *http.Request) {
	linkID := chi.URLParam(r, "linkID")
	if err := h.gw.DestroyLink(linkID); err != nil {
		if errors.Is(err, transport.ErrLinkNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type sendMessageRequest struct {
	// Text is the plain-text payload, typically an encoded fragment.
	Text string `json:"text,omitempty"`
	// Image is the JPEG payload, base64 in JSON.
	Image []byte `json:"image,omitempty"`
}

type sendMessageResponse struct {
	Handle uint64                  `json:"handle"`
	Status transport.PackageStatus `json:"status"`
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	linkID := chi.URLParam(r, "linkID")

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	handle, err := h.gw.SendMessage(linkID, []byte(req.Text), req.Image)
	if err != nil {
		if errors.Is(err, transport.ErrLinkNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		status, _ := h.gw.PackageStatus(handle)
		writeJSON(w, http.StatusBadGateway, sendMessageResponse{Handle: uint64(handle), Status: status})
		return
	}

	status, _ := h.gw.PackageStatus(handle)
	writeJSON(w, http.StatusOK, sendMessageResponse{Handle: uint64(handle), Status: status})
}

type fetchRequest struct {
	LinkID string `json:"linkId"`
}

func (h *Handler) handleFetch(w http.ResponseWriter, r *http.Request) {
	var req fetchRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	if err := h.gw.Fetch(req.LinkID); err != nil {
		if errors.Is(err, transport.ErrLinkNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMessages(w http.ResponseWriter, r *http.Request) {
	messages := h.gw.DrainInbox()
	if messages == nil {
		messages = []InboxMessage{}
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.gw.Status())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
