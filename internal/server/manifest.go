package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	manifestdomain "github.com/courierlog/payroll/internal/manifest/domain"
	"github.com/courierlog/payroll/internal/period"
)

// resolvePeriod reads an optional period key and falls back to the half-month
// containing the current date.
func (s *Server) resolvePeriod(raw string) (period.Period, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return period.ForDate(s.clock.Now()), nil
	}
	return period.Parse(raw)
}

func (s *Server) IngestManifest(c *gin.Context) {
	p, err := s.resolvePeriod(c.Query("period"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	opened, err := file.Open()
	if err != nil {
		AbortWithError(c, manifestdomain.ErrInvalidManifest)
		return
	}
	defer opened.Close()

	result, err := s.manifestSvc.Ingest(c.Request.Context(), manifestdomain.IngestRequest{
		FileName: file.Filename,
		Period:   p,
		Reader:   opened,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) ListManifestUploads(c *gin.Context) {
	uploads, err := s.manifestSvc.ListUploads(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"uploads": uploads})
}
