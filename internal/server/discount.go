package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	discountdomain "github.com/courierlog/payroll/internal/discount/domain"
)

func (s *Server) ListDiscountRules(c *gin.Context) {
	rules, err := s.discountSvc.ListRules(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

func (s *Server) CreateDiscountRule(c *gin.Context) {
	var req discountdomain.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	rule, err := s.discountSvc.CreateRule(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

func (s *Server) UpdateDiscountRule(c *gin.Context) {
	var req discountdomain.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.RuleID = c.Param("id")

	rule, err := s.discountSvc.UpdateRule(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (s *Server) DeleteDiscountRule(c *gin.Context) {
	if err := s.discountSvc.DeleteRule(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) CreateDiscount(c *gin.Context) {
	var req discountdomain.CreateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	p, err := s.resolvePeriod(c.Query("period"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	req.Period = p

	discount, err := s.discountSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, discount)
}

func (s *Server) ProcessInstallments(c *gin.Context) {
	p, err := s.resolvePeriod(c.Query("period"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.discountSvc.ProcessInstallments(c.Request.Context(), p)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) ListDriverDiscounts(c *gin.Context) {
	code := c.Param("code")
	if !canAccessDriver(c, code) {
		AbortWithError(c, ErrForbidden)
		return
	}

	discounts, err := s.discountSvc.List(c.Request.Context(), code)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"discounts": discounts})
}
