package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	billdomain "github.com/tablyhq/tably/internal/bill/domain"
	"github.com/tablyhq/tably/internal/dispatch"
	"go.uber.org/zap"
)

type openBillRequest struct {
	PeriodID  snowflake.ID `json:"period_id,string"`
	RefNumber int          `json:"ref_number"`
}

type addItemsRequest struct {
	ItemID       snowflake.ID            `json:"item_id,string"`
	PriceGroupID snowflake.ID            `json:"price_group_id,string"`
	Quantity     int                     `json:"quantity"`
	PrintMessage string                  `json:"print_message"`
	Modifiers    []modifierSelectionBody `json:"modifiers"`
}

type modifierSelectionBody struct {
	ModifierID    snowflake.ID   `json:"modifier_id,string"`
	ModifierItems []snowflake.ID `json:"modifier_items"`
}

type addPaymentRequest struct {
	PaymentTypeID snowflake.ID `json:"payment_type_id,string"`
	Amount        int64        `json:"amount"`
	IsChange      bool         `json:"is_change"`
}

type addDiscountRequest struct {
	DiscountID snowflake.ID `json:"discount_id,string"`
}

type addCallRequest struct {
	Message string `json:"message"`
}

type reasonRequest struct {
	ReasonID *snowflake.ID `json:"reason_id,string,omitempty"`
}

func (s *Server) OpenBill(c *gin.Context) {
	var req openBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	bill, err := s.billSvc.OpenBill(c.Request.Context(), req.PeriodID, req.RefNumber)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": bill})
}

func (s *Server) GetBill(c *gin.Context) {
	billID, ok := parseID(c, "id")
	if !ok {
		return
	}

	detail, err := s.billSvc.GetBill(c.Request.Context(), billID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": detail})
}

func (s *Server) ListBills(c *gin.Context) {
	periodID, ok := parseID(c, "id")
	if !ok {
		return
	}

	rows, err := s.billSvc.ListBills(c.Request.Context(), periodID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (s *Server) BillSummary(c *gin.Context) {
	billID, ok := parseID(c, "id")
	if !ok {
		return
	}

	sum, err := s.billSvc.Summary(c.Request.Context(), billID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sum})
}

func (s *Server) AddItems(c *gin.Context) {
	billID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req addItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	selections := make([]billdomain.ModifierSelection, 0, len(req.Modifiers))
	for _, m := range req.Modifiers {
		selections = append(selections, billdomain.ModifierSelection{
			ModifierID:    m.ModifierID,
			ModifierItems: m.ModifierItems,
		})
	}

	items, err := s.billSvc.AddItems(c.Request.Context(), billID, billdomain.AddItemsRequest{
		ItemID:       req.ItemID,
		PriceGroupID: req.PriceGroupID,
		Quantity:     req.Quantity,
		PrintMessage: strings.TrimSpace(req.PrintMessage),
		Modifiers:    selections,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) AddPayment(c *gin.Context) {
	billID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req addPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.billSvc.AddPayment(c.Request.Context(), billID, billdomain.AddPaymentRequest{
		PaymentTypeID: req.PaymentTypeID,
		Amount:        req.Amount,
		IsChange:      req.IsChange,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) AddDiscount(c *gin.Context) {
	billID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req addDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	discount, err := s.billSvc.AddDiscount(c.Request.Context(), billID, req.DiscountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": discount})
}

func (s *Server) AddCall(c *gin.Context) {
	billID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req addCallRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		AbortWithError(c, invalidRequestError())
		return
	}

	call, err := s.billSvc.AddCall(c.Request.Context(), billID, strings.TrimSpace(req.Message))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	go s.dispatchAsync(billID)
	c.JSON(http.StatusOK, gin.H{"data": call})
}

func (s *Server) VoidItem(c *gin.Context) {
	billID, ok := parseID(c, "id")
	if !ok {
		return
	}
	billItemID, ok := parseID(c, "itemId")
	if !ok {
		return
	}

	// Voiding before store needs no reason, so an empty body is legal.
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.billSvc.VoidItem(c.Request.Context(), billID, billItemID, req.ReasonID); err != nil {
		AbortWithError(c, err)
		return
	}

	go s.dispatchAsync(billID)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) CompItem(c *gin.Context) {
	billID, ok := parseID(c, "id")
	if !ok {
		return
	}
	billItemID, ok := parseID(c, "itemId")
	if !ok {
		return
	}

	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.ReasonID == nil {
		AbortWithError(c, billdomain.ErrCompReasonRequired)
		return
	}

	if err := s.billSvc.CompItem(c.Request.Context(), billID, billItemID, *req.ReasonID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// StoreBill records kitchen acceptance, then kicks a dispatch cycle. The
// store itself reports success regardless of print outcome; transmission
// failures surface only through the derived print badges.
func (s *Server) StoreBill(c *gin.Context) {
	billID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := s.billSvc.StoreBill(c.Request.Context(), billID); err != nil {
		AbortWithError(c, err)
		return
	}

	go s.dispatchAsync(billID)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// PrintBill re-dispatches the bill's pending and errored print logs.
func (s *Server) PrintBill(c *gin.Context) {
	billID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := s.dispatcher.DispatchBill(c.Request.Context(), billID); err != nil {
		AbortWithError(c, err)
		return
	}

	state, err := s.billSvc.PrintState(c.Request.Context(), billID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": state})
}

func (s *Server) CloseBill(c *gin.Context) {
	billID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := s.billSvc.Close(c.Request.Context(), billID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// dispatchAsync runs a dispatch cycle detached from the request. Lock
// contention means another terminal is already printing the bill.
func (s *Server) dispatchAsync(billID snowflake.ID) {
	ctx := context.Background()
	if err := s.dispatcher.DispatchBill(ctx, billID); err != nil && !errors.Is(err, dispatch.ErrDispatchLocked) {
		s.log.Error("background dispatch failed",
			zap.Int64("bill_id", int64(billID)), zap.Error(err))
	}
}
