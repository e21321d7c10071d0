package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestEtagMatches(t *testing.T) {
	const etag = `"abc"`

	tests := []struct {
		header string
		want   bool
	}{
		{"", false},
		{`"abc"`, true},
		{`W/"abc"`, true},
		{`"x", "abc"`, true},
		{`"x"`, false},
		{"*", true},
	}

	for _, tt := range tests {
		if got := etagMatches(tt.header, etag); got != tt.want {
			t.Fatalf("etagMatches(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}

func TestRespondJSONWithETagChangesWithPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)

	serve := func(payload any) *httptest.ResponseRecorder {
		r := gin.New()
		r.GET("/", func(c *gin.Context) { RespondJSONWithETag(c, http.StatusOK, payload) })

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		return w
	}

	a := serve([]string{"a"})
	b := serve([]string{"a", "b"})

	if a.Header().Get("ETag") == "" || a.Header().Get("ETag") == b.Header().Get("ETag") {
		t.Fatalf("etag must track the payload: %q vs %q", a.Header().Get("ETag"), b.Header().Get("ETag"))
	}
	if a.Body.String() != `["a"]` {
		t.Fatalf("unexpected body %q", a.Body.String())
	}
}
