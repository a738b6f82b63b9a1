// pkg/response/response.go
package response

import (
	"net/http"

	"partner-payouts/internal/domain"

	"github.com/go-chi/render"
)

type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func JSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	render.Status(r, status)
	render.JSON(w, r, APIResponse{
		Status: "success",
		Data:   data,
	})
}

func Error(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, APIResponse{
		Status:  "error",
		Message: msg,
	})
}

// Partial reports a batch where some items failed, keeping the items that succeeded.
func Partial(w http.ResponseWriter, r *http.Request, msg string, data interface{}) {
	render.Status(r, http.StatusMultiStatus)
	render.JSON(w, r, APIResponse{
		Status:  "partial",
		Message: msg,
		Data:    data,
	})
}

// Raw writes data without the envelope, for callers that own the body shape.
func Raw(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	render.Status(r, status)
	render.JSON(w, r, data)
}

type apiErrorBody struct {
	Error *domain.DubApiError `json:"error"`
}

// APIError writes the dashboard error shape {"error":{"code":..,"message":..}}.
func APIError(w http.ResponseWriter, r *http.Request, err *domain.DubApiError) {
	render.Status(r, err.Status)
	render.JSON(w, r, apiErrorBody{Error: err})
}
