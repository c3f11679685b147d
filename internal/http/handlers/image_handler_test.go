package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-messenger-backend/internal/realtime"
	"github.com/tbourn/go-messenger-backend/internal/storage"
)

func newImageRouter(t *testing.T, blobs BlobStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := New(nil, nil, nil, blobs, realtime.NewHub(), realtime.NewTypingRegistry())
	r.GET("/images/:id", h.GetImage)
	return r
}

func TestGetImage_ServesStoredBytes(t *testing.T) {
	blobs, err := storage.NewBlobStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("blob store: %v", err)
	}
	payload := []byte("\x89PNG\r\n\x1a\nrest-of-image")
	id, err := blobs.Upload(payload)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	r := newImageRouter(t, blobs)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/images/"+id, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if !bytes.Equal(w.Body.Bytes(), payload) {
		t.Fatalf("body mismatch")
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %q; want image/png", ct)
	}
	if w.Header().Get("ETag") == "" || w.Header().Get("Cache-Control") == "" {
		t.Fatalf("expected immutable caching headers")
	}

	// Conditional revalidation hits 304 without a body.
	req := httptest.NewRequest(http.MethodGet, "/images/"+id, nil)
	req.Header.Set("If-None-Match", `"`+id+`"`)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Fatalf("status=%d; want 304", w.Code)
	}
}

func TestGetImage_Missing(t *testing.T) {
	blobs, err := storage.NewBlobStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("blob store: %v", err)
	}
	r := newImageRouter(t, blobs)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/images/deadbeef", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d; want 404", w.Code)
	}
}

func TestGetImage_NoStoreConfigured(t *testing.T) {
	r := newImageRouter(t, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/images/abc", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d; want 404", w.Code)
	}
}
