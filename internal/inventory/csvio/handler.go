package csvio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	custom_error "churchinventory/pkg/errors"
	"churchinventory/pkg/security"

	"github.com/gin-gonic/gin"
)

const maxUploadSize = 10 << 20

type FileImporter interface {
	Import(ctx context.Context, identity security.Identity, kind Kind, r io.Reader) (*ImportResult, error)
}

type FileExporter interface {
	WriteCSV(ctx context.Context, kind Kind, w io.Writer) error
	WriteArchive(ctx context.Context, w io.Writer, timestamp string) error
	Timestamp() string
}

type CSVHandler struct {
	Importer FileImporter
	Exporter FileExporter
}

func NewCSVHandler(i FileImporter, e FileExporter) *CSVHandler {
	return &CSVHandler{Importer: i, Exporter: e}
}

func (h *CSVHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/import/:context", h.Import)
	router.GET("/export", h.Export)
	router.GET("/templates", h.Template)
}

func (h *CSVHandler) Import(c *gin.Context) {
	identity, ok := security.MustIdentity(c)
	if !ok {
		return
	}

	kind, err := ParseKind(c.Param("context"), false)
	if err != nil {
		custom_error.Abort(c, "Invalid import context", err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	file, err := uploadedFile(c)
	if err != nil {
		custom_error.Abort(c, "No file uploaded", custom_error.NewValidationError("csv_file", err.Error()))
		return
	}
	defer file.Close()

	result, err := h.Importer.Import(c.Request.Context(), identity, kind, file)
	if err != nil {
		custom_error.Abort(c, "Import failed", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *CSVHandler) Export(c *gin.Context) {
	kind, err := ParseKind(c.Query("type"), true)
	if err != nil {
		custom_error.Abort(c, "Invalid export type", err)
		return
	}

	timestamp := h.Exporter.Timestamp()
	var buf bytes.Buffer

	if kind == All {
		if err := h.Exporter.WriteArchive(c.Request.Context(), &buf, timestamp); err != nil {
			custom_error.Abort(c, "Export failed", err)
			return
		}
		attachment(c, fmt.Sprintf("export_all_%s.zip", timestamp), "application/zip", buf.Bytes())
		return
	}

	if err := h.Exporter.WriteCSV(c.Request.Context(), kind, &buf); err != nil {
		custom_error.Abort(c, "Export failed", err)
		return
	}
	attachment(c, fileName(kind, "", timestamp, "csv"), "text/csv", buf.Bytes())
}

func (h *CSVHandler) Template(c *gin.Context) {
	kind, err := ParseKind(c.Query("type"), true)
	if err != nil {
		custom_error.Abort(c, "Invalid template type", err)
		return
	}

	timestamp := h.Exporter.Timestamp()
	var buf bytes.Buffer

	if kind == All {
		if err := WriteTemplates(&buf, timestamp); err != nil {
			custom_error.Abort(c, "Could not build templates", err)
			return
		}
		attachment(c, fmt.Sprintf("all_templates_%s.zip", timestamp), "application/zip", buf.Bytes())
		return
	}

	if err := writeCSV(&buf, Template(kind)); err != nil {
		custom_error.Abort(c, "Could not build template", err)
		return
	}
	attachment(c, fileName(kind, "template", timestamp, "csv"), "text/csv", buf.Bytes())
}

func uploadedFile(c *gin.Context) (multipart.File, error) {
	for _, field := range []string{"csv_file", "file"} {
		header, err := c.FormFile(field)
		if err == nil {
			return header.Open()
		}
	}
	return nil, fmt.Errorf("expected a multipart field named csv_file")
}

func attachment(c *gin.Context, name, contentType string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, contentType, data)
}
