package handlers

import "net/http"

// APIRoot answers the bare /api probe.
func APIRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, "Llama.io API root", nil)
}

// NotFound is the JSON fallback for every unmatched route and method.
func NotFound(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusNotFound, "Endpoint not found", nil)
}
