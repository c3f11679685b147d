// Image HTTP handler.
//
// Inline message images are stored in a local content-addressed blob store;
// messages reference them by id. GET /images/:id streams the bytes back with
// a sniffed content type. Blob ids are immutable, so responses carry a long
// max-age and an ETag equal to the id itself.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-messenger-backend/internal/storage"
)

// GetImage handles GET /images/:id.
func (h *Handlers) GetImage(c *gin.Context) {
	if h.blobs == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "image not found")
		return
	}
	id := c.Param("id")

	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == `"`+id+`"` {
		c.Status(http.StatusNotModified)
		return
	}

	data, err := h.blobs.Download(id)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "image not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	c.Header("ETag", `"`+id+`"`)
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}
