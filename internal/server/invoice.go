package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/courierlog/payroll/internal/invoice/domain"
)

func (s *Server) SubmitInvoice(c *gin.Context) {
	paymentID := c.Param("id")
	payment, err := s.paymentSvc.GetByID(c.Request.Context(), paymentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !canAccessDriver(c, payment.DriverCode) {
		AbortWithError(c, ErrForbidden)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	opened, err := file.Open()
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	defer opened.Close()

	var value float64
	if raw := c.PostForm("value"); raw != "" {
		if value, err = strconv.ParseFloat(raw, 64); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
	}

	invoice, err := s.invoiceSvc.Submit(c.Request.Context(), invoicedomain.SubmitRequest{
		PaymentID:   paymentID,
		Number:      c.PostForm("number"),
		Value:       value,
		FileName:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Reader:      opened,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

func (s *Server) ReviewInvoice(c *gin.Context) {
	var req invoicedomain.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.InvoiceID = c.Param("id")

	invoice, err := s.invoiceSvc.Review(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (s *Server) ListInvoices(c *gin.Context) {
	invoices, err := s.invoiceSvc.List(c.Request.Context(), c.Query("driver_code"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

func (s *Server) DownloadInvoice(c *gin.Context) {
	invoice, err := s.invoiceSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !canAccessDriver(c, invoice.DriverCode) {
		AbortWithError(c, ErrForbidden)
		return
	}

	reader, invoice, err := s.invoiceSvc.Open(c.Request.Context(), invoice.ID.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", `attachment; filename="`+invoice.FileName+`"`)
	contentType := invoice.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, -1, contentType, reader, nil)
}
