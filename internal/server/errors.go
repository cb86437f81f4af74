package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	billdomain "github.com/tablyhq/tably/internal/bill/domain"
	perioddomain "github.com/tablyhq/tably/internal/billperiod/domain"
	catalogdomain "github.com/tablyhq/tably/internal/catalog/domain"
	"github.com/tablyhq/tably/internal/dispatch"
	organizationdomain "github.com/tablyhq/tably/internal/organization/domain"
	printerdomain "github.com/tablyhq/tably/internal/printersetup/domain"
	"gorm.io/gorm"
)

var (
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

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

func invalidRequestError() error {
	return ErrInvalidRequest
}

func mapError(err error) (int, errorPayload) {
	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: err.Error(),
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, billdomain.ErrInvalidQuantity),
		errors.Is(err, billdomain.ErrInvalidAmount),
		errors.Is(err, billdomain.ErrVoidReasonRequired),
		errors.Is(err, billdomain.ErrCompReasonRequired),
		errors.Is(err, catalogdomain.ErrInvalidModifierSelection),
		errors.Is(err, catalogdomain.ErrModifierNotLinkedToItem),
		errors.Is(err, catalogdomain.ErrPriceUnavailable),
		errors.Is(err, catalogdomain.ErrInvalidDiscountDefinition):
		return true
	}
	return false
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, billdomain.ErrBillClosed),
		errors.Is(err, billdomain.ErrPeriodClosed),
		errors.Is(err, billdomain.ErrMaxOpenBills),
		errors.Is(err, billdomain.ErrRefNumberTaken),
		errors.Is(err, billdomain.ErrItemAlreadyVoided),
		errors.Is(err, billdomain.ErrItemAlreadyComp),
		errors.Is(err, billdomain.ErrIllegalTransition),
		errors.Is(err, perioddomain.ErrPeriodAlreadyOpen),
		errors.Is(err, perioddomain.ErrOpenBillsRemain),
		errors.Is(err, dispatch.ErrDispatchLocked):
		return true
	}
	return false
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, billdomain.ErrBillNotFound),
		errors.Is(err, billdomain.ErrBillItemNotFound),
		errors.Is(err, billdomain.ErrPeriodNotFound),
		errors.Is(err, billdomain.ErrPaymentTypeNotFound),
		errors.Is(err, billdomain.ErrPrintLogNotFound),
		errors.Is(err, perioddomain.ErrNoOpenPeriod),
		errors.Is(err, catalogdomain.ErrItemNotFound),
		errors.Is(err, catalogdomain.ErrModifierNotFound),
		errors.Is(err, catalogdomain.ErrDiscountNotFound),
		errors.Is(err, printerdomain.ErrPrinterNotFound),
		errors.Is(err, organizationdomain.ErrOrganizationNotFound):
		return true
	}
	return false
}
