// Package transferdelivery manages delivery layer of transfers.
package transferdelivery

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-corebank/corebank/internal/domain"
	"github.com/go-corebank/corebank/pkg/web"
)

// Service provides service layer interface needed by transfer delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package transferdelivery
type Service interface {
	Transfer(ctx context.Context, from, to string, amount decimal.Decimal) (domain.TransferTxResult, error)
}

// Handler facilitates transfer delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns transfer handler.
func NewHandler(ts Service) *Handler {
	return &Handler{
		service: ts,
	}
}

type request struct {
	FromAccountNumber string `json:"from_account_number" binding:"required"`
	ToAccountNumber   string `json:"to_account_number" binding:"required"`
	Amount            string `json:"amount" binding:"required"`
}

// Create handles http request to transfer money between two accounts.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req request
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Fail(err.Error(), "INVALID_REQUEST"))

		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Fail(domain.ErrInvalidAmount.Error(), "INVALID_AMOUNT"))

		return
	}

	result, err := h.service.Transfer(ctx, req.FromAccountNumber, req.ToAccountNumber, amount)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(statusOf(err), web.Fail(err.Error(), codeOf(err)))

		return
	}

	gctx.JSON(http.StatusOK, web.OK(result, "Transfer Completed"))
}

func statusOf(err error) int {
	switch err {
	case domain.ErrInvalidAmount, domain.ErrSelfTransfer, domain.ErrInsufficientBalance:
		return http.StatusBadRequest
	case domain.ErrFromAccountNotFound, domain.ErrToAccountNotFound:
		return http.StatusNotFound
	case domain.ErrTransferFailed:
		return http.StatusServiceUnavailable
	}

	return http.StatusInternalServerError
}

func codeOf(err error) string {
	switch err {
	case domain.ErrInvalidAmount:
		return "INVALID_AMOUNT"
	case domain.ErrSelfTransfer:
		return "INVALID_TRANSFER"
	case domain.ErrFromAccountNotFound, domain.ErrToAccountNotFound:
		return "ACCOUNT_NOT_FOUND"
	case domain.ErrInsufficientBalance:
		return "INSUFFICIENT_FUNDS"
	case domain.ErrTransferFailed:
		return "TRANSFER_FAILED"
	}

	return "INTERNAL"
}
