package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	driverdomain "github.com/courierlog/payroll/internal/driver/domain"
)

func (s *Server) RegisterDriver(c *gin.Context) {
	var req driverdomain.CreateDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	driver, err := s.driverSvc.Register(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, driver)
}

func (s *Server) ListDrivers(c *gin.Context) {
	var req driverdomain.ListDriversRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	drivers, err := s.driverSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"drivers": drivers})
}

func (s *Server) UpdateDriver(c *gin.Context) {
	var req driverdomain.UpdateDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.DriverCode = c.Param("code")

	driver, err := s.driverSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, driver)
}

func (s *Server) ImportDriverRoster(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	opened, err := file.Open()
	if err != nil {
		AbortWithError(c, driverdomain.ErrInvalidRoster)
		return
	}
	defer opened.Close()

	result, err := s.driverSvc.ImportRoster(c.Request.Context(), opened)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
