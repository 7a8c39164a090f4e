package server

import (
	"net/http"

	"github.com/go-chi/render"
)

// APIResponse is the envelope of every JSON response. Status is 0 on success
// and the HTTP status code otherwise.
type APIResponse struct {
	Status int    `json:"status"`
	Msg    string `json:"msg"`
	Data   any    `json:"data,omitempty"`
}

func ok(w http.ResponseWriter, r *http.Request, data any) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, APIResponse{Status: 0, Msg: "ok", Data: data})
}

func fail(w http.ResponseWriter, r *http.Request, code int, msg string) {
	render.Status(r, code)
	render.JSON(w, r, APIResponse{Status: code, Msg: msg})
}
