package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	authdomain "github.com/courierlog/payroll/internal/auth/domain"
	bonusdomain "github.com/courierlog/payroll/internal/bonus/domain"
	discountdomain "github.com/courierlog/payroll/internal/discount/domain"
	driverdomain "github.com/courierlog/payroll/internal/driver/domain"
	invoicedomain "github.com/courierlog/payroll/internal/invoice/domain"
	manifestdomain "github.com/courierlog/payroll/internal/manifest/domain"
	paymentdomain "github.com/courierlog/payroll/internal/payment/domain"
	perioddomain "github.com/courierlog/payroll/internal/period"
	ratecarddomain "github.com/courierlog/payroll/internal/ratecard/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: err.Error(),
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	var missingCols *manifestdomain.MissingColumnsError
	if errors.As(err, &missingCols) {
		return true
	}
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, perioddomain.ErrInvalidKey),
		errors.Is(err, paymentdomain.ErrInvalidPeriod),
		errors.Is(err, paymentdomain.ErrInvalidStatus),
		errors.Is(err, paymentdomain.ErrInvalidDriverCode),
		errors.Is(err, driverdomain.ErrInvalidDriverCode),
		errors.Is(err, driverdomain.ErrInvalidDriverName),
		errors.Is(err, driverdomain.ErrInvalidRoster),
		errors.Is(err, ratecarddomain.ErrInvalidUnitRate),
		errors.Is(err, manifestdomain.ErrEmptyManifest),
		errors.Is(err, manifestdomain.ErrInvalidManifest),
		errors.Is(err, bonusdomain.ErrInvalidRuleName),
		errors.Is(err, bonusdomain.ErrInvalidCondition),
		errors.Is(err, bonusdomain.ErrInvalidBonusType),
		errors.Is(err, bonusdomain.ErrInvalidValue),
		errors.Is(err, discountdomain.ErrInvalidRuleName),
		errors.Is(err, discountdomain.ErrInvalidRuleType),
		errors.Is(err, discountdomain.ErrInvalidRuleCaps),
		errors.Is(err, discountdomain.ErrInvalidTotalValue),
		errors.Is(err, discountdomain.ErrInvalidInstallments),
		errors.Is(err, discountdomain.ErrValueExceedsCap),
		errors.Is(err, discountdomain.ErrTooManyInstallments),
		errors.Is(err, discountdomain.ErrRuleInactive),
		errors.Is(err, invoicedomain.ErrUnsupportedFileType),
		errors.Is(err, authdomain.ErrInvalidUsername),
		errors.Is(err, authdomain.ErrInvalidPassword),
		errors.Is(err, authdomain.ErrInvalidRole):
		return true
	default:
		return false
	}
}

func isUnauthorizedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidToken),
		errors.Is(err, authdomain.ErrUserInactive):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, paymentdomain.ErrPaymentNotFound),
		errors.Is(err, driverdomain.ErrDriverNotFound),
		errors.Is(err, ratecarddomain.ErrUnknownServiceType),
		errors.Is(err, bonusdomain.ErrRuleNotFound),
		errors.Is(err, discountdomain.ErrRuleNotFound),
		errors.Is(err, discountdomain.ErrDiscountNotFound),
		errors.Is(err, invoicedomain.ErrInvoiceNotFound),
		errors.Is(err, invoicedomain.ErrFileMissing),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, driverdomain.ErrDriverExists),
		errors.Is(err, ratecarddomain.ErrServiceTypeExists),
		errors.Is(err, ratecarddomain.ErrServiceTypeInUse),
		errors.Is(err, paymentdomain.ErrInvalidTransition),
		errors.Is(err, bonusdomain.ErrRuleInUse),
		errors.Is(err, discountdomain.ErrRuleInUse),
		errors.Is(err, invoicedomain.ErrAlreadyReviewed),
		errors.Is(err, authdomain.ErrUserExists):
		return true
	default:
		return false
	}
}
