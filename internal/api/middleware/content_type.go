package middleware

import (
	"mime"
	"net/http"

	"github.com/indiasafety/safetyindex/internal/api/models"
)

// ContentTypeJSON defaults the response Content-Type to application/json.
// Handlers that stream files set their own type first.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

// RequireContentType rejects write requests whose body is not one of the
// allowed media types. Requests without a Content-Type pass through.
func RequireContentType(allowed ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			if contentType == "" {
				next.ServeHTTP(w, r)
				return
			}

			mediaType, _, err := mime.ParseMediaType(contentType)
			if err == nil {
				for _, a := range allowed {
					if mediaType == a {
						next.ServeHTTP(w, r)
						return
					}
				}
			}

			problem := models.NewProblem(models.ProblemTypeUnsupportedMedia, "Unsupported media type",
				http.StatusUnsupportedMediaType, GetRequestID(r.Context())).
				WithDetail("Content-Type " + contentType + " is not accepted here").
				WithInstance(r.URL.Path)
			problem.Write(w)
		})
	}
}

// RequireJSON accepts only application/json bodies.
func RequireJSON(next http.Handler) http.Handler {
	return RequireContentType("application/json")(next)
}
