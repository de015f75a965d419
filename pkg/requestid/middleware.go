package requestid

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

// Header carries the correlation ID on requests and responses.
const Header = "X-Request-ID"

const maxIDLength = 128

// Client-supplied IDs land in logs, so anything outside this alphabet
// is replaced rather than propagated.
var validID = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Middleware reuses a well-formed X-Request-ID from the client or
// generates one, then exposes it through the request context and the
// response header.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if !acceptable(id) {
			id = uuid.NewString()
		}
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), id)))
	})
}

func acceptable(id string) bool {
	return id != "" && len(id) <= maxIDLength && validID.MatchString(id)
}
