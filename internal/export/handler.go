package export

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cliptag/backend/internal/sessions"
	"github.com/cliptag/backend/pkg/response"
)

// Handler serves the synchronous CSV download.
type Handler struct {
	store  sessions.Store
	logger *zap.Logger
}

// NewHandler creates a CSV export handler.
func NewHandler(store sessions.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// DownloadCSV handles GET /api/export/csv. The body is built before any byte is
// sent so a storage failure still yields a JSON 500.
func (h *Handler) DownloadCSV(c *gin.Context) {
	list, err := h.store.ListSessions(c.Request.Context())
	if err != nil {
		h.logger.Error("export csv failed", zap.Error(err))
		response.Internal(c, "Failed to export CSV")
		return
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, list); err != nil {
		h.logger.Error("export csv failed", zap.Error(err))
		response.Internal(c, "Failed to export CSV")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+Filename+`"`)
	c.Data(http.StatusOK, ContentType, buf.Bytes())
}
