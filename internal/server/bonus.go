package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	bonusdomain "github.com/courierlog/payroll/internal/bonus/domain"
)

func (s *Server) ListBonusRules(c *gin.Context) {
	rules, err := s.bonusSvc.ListRules(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

func (s *Server) CreateBonusRule(c *gin.Context) {
	var req bonusdomain.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	rule, err := s.bonusSvc.CreateRule(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

func (s *Server) UpdateBonusRule(c *gin.Context) {
	var req bonusdomain.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.RuleID = c.Param("id")

	rule, err := s.bonusSvc.UpdateRule(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (s *Server) DeleteBonusRule(c *gin.Context) {
	if err := s.bonusSvc.DeleteRule(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) ApplyBonuses(c *gin.Context) {
	p, err := s.resolvePeriod(c.Query("period"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.bonusSvc.Apply(c.Request.Context(), bonusdomain.ApplyRequest{
		Period:     p,
		DriverCode: c.Query("driver_code"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) ListDriverBonuses(c *gin.Context) {
	code := c.Param("code")
	if !canAccessDriver(c, code) {
		AbortWithError(c, ErrForbidden)
		return
	}

	grants, err := s.bonusSvc.ListGrants(c.Request.Context(), code, c.Param("period"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bonuses": grants})
}
