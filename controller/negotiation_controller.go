package controller

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"gcd-backend/usecase"
)

type NegotiationController struct {
	usecase *usecase.NegotiationUsecase
}

func NewNegotiationController(usecase *usecase.NegotiationUsecase) *NegotiationController {
	return &NegotiationController{usecase: usecase}
}

type simulateReplyRequest struct {
	Body string `json:"body"`
}

type resultResponse struct {
	Result string `json:"result"`
}

// HandleNegotiationAction serves /negotiations/{id}/{action} where
// action is simulate-reply, messages or approve.
func (c *NegotiationController) HandleNegotiationAction(w http.ResponseWriter, r *http.Request) {
	// CORS headers
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	// path: /negotiations/{id}/{action}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 {
		http.Error(w, "Invalid URL", http.StatusBadRequest)
		return
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		http.Error(w, "Invalid negotiation id", http.StatusBadRequest)
		return
	}
	action := parts[2]

	switch action {
	case "simulate-reply":
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req simulateReplyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Body) == "" {
			http.Error(w, "body is required", http.StatusBadRequest)
			return
		}
		result, err := c.usecase.RunReply(r.Context(), id, req.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resultResponse{Result: result})

	case "messages":
		if r.Method != "GET" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		messages, err := c.usecase.ListMessages(id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if messages == nil {
			w.Write([]byte("[]"))
			return
		}
		json.NewEncoder(w).Encode(messages)

	case "approve":
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		result, err := c.usecase.ApprovePendingReview(r.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resultResponse{Result: result})

	default:
		http.Error(w, "Unknown action", http.StatusNotFound)
	}
}
