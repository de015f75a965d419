package requestid_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vivhq/viv/pkg/requestid"
)

func serveWithID(t *testing.T, incoming string) (seen string, rec *httptest.ResponseRecorder) {
	t.Helper()

	handler := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestid.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if incoming != "" {
		req.Header.Set(requestid.Header, incoming)
	}
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	return seen, rec
}

func TestMiddleware_GeneratesIDWhenMissing(t *testing.T) {
	t.Parallel()

	seen, rec := serveWithID(t, "")
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(requestid.Header))
}

func TestMiddleware_ReusesWellFormedID(t *testing.T) {
	t.Parallel()

	seen, rec := serveWithID(t, "req-abc_123")
	assert.Equal(t, "req-abc_123", seen)
	assert.Equal(t, "req-abc_123", rec.Header().Get(requestid.Header))
}

func TestMiddleware_ReplacesMalformedID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		id   string
	}{
		{"spaces", "request id"},
		{"slashes", "a/b/c"},
		{"markup", "<script>alert(1)</script>"},
		{"too long", strings.Repeat("a", 129)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			seen, rec := serveWithID(t, tc.id)
			assert.NotEmpty(t, seen)
			assert.NotEqual(t, tc.id, seen)
			assert.Equal(t, seen, rec.Header().Get(requestid.Header))
		})
	}
}

func TestFromContext_EmptyWithoutRequest(t *testing.T) {
	t.Parallel()

	assert.Empty(t, requestid.FromContext(context.Background()))
	ctx := requestid.WithContext(context.Background(), "req-1")
	assert.Equal(t, "req-1", requestid.FromContext(ctx))
}
