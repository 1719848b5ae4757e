package transferdelivery

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/go-corebank/corebank/internal/domain"
	"github.com/go-corebank/corebank/pkg/web"
)

func TestCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	amount := decimal.NewFromInt(300)

	testCases := []struct {
		name       string
		body       gin.H
		buildStubs func(service *MockService)
		wantStatus int
		wantCode   string
	}{
		{
			name: "Completed",
			body: gin.H{
				"from_account_number": "100",
				"to_account_number":   "200",
				"amount":              "300",
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Transfer(gomock.Any(), "100", "200", amount).
					Times(1).
					Return(domain.TransferTxResult{}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "MissingField",
			body: gin.H{
				"from_account_number": "100",
				"amount":              "300",
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Times(0)
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name: "UnparsableAmount",
			body: gin.H{
				"from_account_number": "100",
				"to_account_number":   "200",
				"amount":              "three hundred",
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Times(0)
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_AMOUNT",
		},
		{
			name: "NegativeAmount",
			body: gin.H{
				"from_account_number": "100",
				"to_account_number":   "200",
				"amount":              "-300",
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Transfer(gomock.Any(), "100", "200", amount.Neg()).
					Times(1).
					Return(domain.TransferTxResult{}, domain.ErrInvalidAmount)
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_AMOUNT",
		},
		{
			name: "SelfTransfer",
			body: gin.H{
				"from_account_number": "100",
				"to_account_number":   "100",
				"amount":              "300",
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Transfer(gomock.Any(), "100", "100", amount).
					Times(1).
					Return(domain.TransferTxResult{}, domain.ErrSelfTransfer)
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_TRANSFER",
		},
		{
			name: "FromAccountNotFound",
			body: gin.H{
				"from_account_number": "100",
				"to_account_number":   "200",
				"amount":              "300",
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Transfer(gomock.Any(), "100", "200", amount).
					Times(1).
					Return(domain.TransferTxResult{}, domain.ErrFromAccountNotFound)
			},
			wantStatus: http.StatusNotFound,
			wantCode:   "ACCOUNT_NOT_FOUND",
		},
		{
			name: "InsufficientFunds",
			body: gin.H{
				"from_account_number": "100",
				"to_account_number":   "200",
				"amount":              "300",
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Transfer(gomock.Any(), "100", "200", amount).
					Times(1).
					Return(domain.TransferTxResult{}, domain.ErrInsufficientBalance)
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INSUFFICIENT_FUNDS",
		},
		{
			name: "TransferFailed",
			body: gin.H{
				"from_account_number": "100",
				"to_account_number":   "200",
				"amount":              "300",
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Transfer(gomock.Any(), "100", "200", amount).
					Times(1).
					Return(domain.TransferTxResult{}, domain.ErrTransferFailed)
			},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "TRANSFER_FAILED",
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			service := NewMockService(ctrl)
			tc.buildStubs(service)

			handler := NewHandler(service)

			router := gin.New()
			router.POST("/transfers", handler.Create)

			body, err := json.Marshal(tc.body)
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodPost, "/transfers", bytes.NewReader(body))
			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, req)

			require.Equal(t, tc.wantStatus, recorder.Code)

			var resp web.Response
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))

			if tc.wantCode == "" {
				require.True(t, resp.Success)
				require.Equal(t, "Transfer Completed", resp.Message)
				require.Nil(t, resp.Error)
			} else {
				require.False(t, resp.Success)
				require.NotNil(t, resp.Error)
				require.Equal(t, tc.wantCode, resp.Error.Code)
			}
		})
	}
}
