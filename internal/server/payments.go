package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/courierlog/payroll/internal/payment/domain"
)

func (s *Server) ListPayments(c *gin.Context) {
	var req paymentdomain.ListPaymentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.paymentSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetDriverPayment(c *gin.Context) {
	code := c.Param("code")
	if !canAccessDriver(c, code) {
		AbortWithError(c, ErrForbidden)
		return
	}
	p, err := s.resolvePeriod(c.Param("period"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	payment, err := s.paymentSvc.Get(c.Request.Context(), code, p.Key())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (s *Server) UpdatePaymentStatus(c *gin.Context) {
	var req paymentdomain.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.PaymentID = c.Param("id")

	payment, err := s.paymentSvc.UpdateStatus(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}
