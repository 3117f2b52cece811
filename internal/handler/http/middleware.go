package http

import (
	"mime"
	"net/http"

	"github.com/rdGxd/todo-list/pkg/httputil"
)

// ContentTypeJSON rejects bodies declared as anything other than JSON with
// 415. Requests without a Content-Type header pass through.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if ct := r.Header.Get("Content-Type"); ct != "" {
				mediaType, _, err := mime.ParseMediaType(ct)
				if err != nil || mediaType != "application/json" {
					httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
						Error: &httputil.ErrorResponse{
							Code:    "UNSUPPORTED_MEDIA_TYPE",
							Message: "Content-Type must be application/json",
						},
					})
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}
