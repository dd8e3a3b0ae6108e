package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	ratecarddomain "github.com/courierlog/payroll/internal/ratecard/domain"
)

func (s *Server) ListServiceTypes(c *gin.Context) {
	types, err := s.ratecardSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"service_types": types})
}

func (s *Server) CreateServiceType(c *gin.Context) {
	var req ratecarddomain.CreateServiceTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	created, err := s.ratecardSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) UpdateServiceType(c *gin.Context) {
	code, err := strconv.Atoi(c.Param("code"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	var req ratecarddomain.UpdateServiceTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.Code = code

	updated, err := s.ratecardSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) DeleteServiceType(c *gin.Context) {
	code, err := strconv.Atoi(c.Param("code"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if err := s.ratecardSvc.Delete(c.Request.Context(), code); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
