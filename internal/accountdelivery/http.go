// Package accountdelivery manages delivery layer of accounts.
package accountdelivery

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-corebank/corebank/internal/domain"
	"github.com/go-corebank/corebank/pkg/web"
)

// Service provides service layer interface needed by account delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package accountdelivery
type Service interface {
	Create(ctx context.Context, holder string, initialBalance decimal.Decimal) (domain.Account, error)
	Get(ctx context.Context, number string) (domain.Account, error)
	History(ctx context.Context, number string, limit int32) ([]domain.Transaction, error)
	List(ctx context.Context, limit, offset int32) ([]domain.Account, error)
	Deposit(ctx context.Context, number string, amount decimal.Decimal) (domain.Transaction, error)
	Withdraw(ctx context.Context, number string, amount decimal.Decimal) (domain.Transaction, error)
}

// Handler facilitates account delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns account handler.
func NewHandler(as Service) *Handler {
	return &Handler{
		service: as,
	}
}

type createRequest struct {
	HolderName     string `json:"holder_name" binding:"required"`
	InitialBalance string `json:"initial_balance" binding:"required"`
}

// Create handles http request to open a new account.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Fail(err.Error(), "INVALID_REQUEST"))

		return
	}

	balance, err := decimal.NewFromString(req.InitialBalance)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Fail(domain.ErrInvalidAmount.Error(), "INVALID_AMOUNT"))

		return
	}

	account, err := h.service.Create(ctx, req.HolderName, balance)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(statusOf(err), web.Fail(err.Error(), codeOf(err)))

		return
	}

	gctx.JSON(http.StatusOK, web.OK(account, "Account Created"))
}

// Get handles http request to fetch one account by number.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	account, err := h.service.Get(ctx, gctx.Param("number"))
	if err != nil {
		zerolog.Ctx(ctx).Info().Err(err).Send()
		gctx.JSON(statusOf(err), web.Fail(err.Error(), codeOf(err)))

		return
	}

	gctx.JSON(http.StatusOK, web.OK(account, "Success"))
}

type historyRequest struct {
	Limit int32 `form:"limit,default=50" binding:"min=1,max=500"`
}

// History handles http request to list the account's recent ledger entries.
func (h *Handler) History(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req historyRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Fail(err.Error(), "INVALID_REQUEST"))

		return
	}

	items, err := h.service.History(ctx, gctx.Param("number"), req.Limit)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(statusOf(err), web.Fail(err.Error(), codeOf(err)))

		return
	}

	gctx.JSON(http.StatusOK, web.OK(items, "Success"))
}

type listRequest struct {
	PageSize int32 `form:"page_size,default=50" binding:"min=1,max=500"`
	PageID   int32 `form:"page_id,default=1" binding:"min=1"`
}

// List handles http request to list accounts.
func (h *Handler) List(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req listRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Fail(err.Error(), "INVALID_REQUEST"))

		return
	}

	items, err := h.service.List(ctx, req.PageSize, (req.PageID-1)*req.PageSize)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(statusOf(err), web.Fail(err.Error(), codeOf(err)))

		return
	}

	gctx.JSON(http.StatusOK, web.OK(items, "Success"))
}

type amountRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// Deposit handles http request to credit an account.
func (h *Handler) Deposit(gctx *gin.Context) {
	h.mutate(gctx, h.service.Deposit, "Deposit Completed")
}

// Withdraw handles http request to debit an account.
func (h *Handler) Withdraw(gctx *gin.Context) {
	h.mutate(gctx, h.service.Withdraw, "Withdrawal Completed")
}

func (h *Handler) mutate(
	gctx *gin.Context,
	op func(ctx context.Context, number string, amount decimal.Decimal) (domain.Transaction, error),
	msg string,
) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req amountRequest
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

	transaction, err := op(ctx, gctx.Param("number"), amount)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(statusOf(err), web.Fail(err.Error(), codeOf(err)))

		return
	}

	gctx.JSON(http.StatusOK, web.OK(transaction, msg))
}

func statusOf(err error) int {
	switch err {
	case domain.ErrInvalidAmount, domain.ErrInsufficientBalance, domain.ErrAccountExists:
		return http.StatusBadRequest
	case domain.ErrAccountNotFound:
		return http.StatusNotFound
	case domain.ErrOperationFailed:
		return http.StatusServiceUnavailable
	}

	return http.StatusInternalServerError
}

func codeOf(err error) string {
	switch err {
	case domain.ErrInvalidAmount:
		return "INVALID_AMOUNT"
	case domain.ErrInsufficientBalance:
		return "INSUFFICIENT_FUNDS"
	case domain.ErrAccountNotFound:
		return "ACCOUNT_NOT_FOUND"
	case domain.ErrAccountExists:
		return "ACCOUNT_EXISTS"
	case domain.ErrOperationFailed:
		return "OPERATION_FAILED"
	}

	return "INTERNAL"
}
