package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/filesystem"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"event-tickets/models"
	"event-tickets/services"
)

type mockTicketAPI struct {
	mock.Mock
}

func (m *mockTicketAPI) Purchase(ctx context.Context, req *models.PurchaseRequest, slip *filesystem.File) (*models.PurchaseResult, error) {
	args := m.Called(ctx, req, slip)
	if result, ok := args.Get(0).(*models.PurchaseResult); ok {
		return result, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTicketAPI) CheckVerification(ctx context.Context, code string) (*models.TicketProjection, error) {
	args := m.Called(ctx, code)
	if projection, ok := args.Get(0).(*models.TicketProjection); ok {
		return projection, args.Error(1)
	}
	return nil, args.Error(1)
}

func newRequestEvent(req *http.Request) (*core.RequestEvent, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	e := &core.RequestEvent{}
	e.Request = req
	e.Response = rec
	return e, rec
}

func multipartPurchase(t *testing.T, fields map[string]string, withSlip bool) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if withSlip {
		part, err := writer.CreateFormFile("bankTransferSlip", "slip.png")
		require.NoError(t, err)
		_, err = part.Write([]byte("fake receipt bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/buy-ticket", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func purchaseFields() map[string]string {
	return map[string]string{
		"buyerName":  "Jan",
		"buyerEmail": "jan@example.com",
		"category":   "General",
		"quantity":   "2",
		"totalPrice": "100",
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestBuyTicketSuccess(t *testing.T) {
	api := &mockTicketAPI{}
	handler := NewTicketHandler(api)

	api.On("Purchase", mock.Anything, mock.MatchedBy(func(req *models.PurchaseRequest) bool {
		return req.BuyerName == "Jan" && req.Category == "General" &&
			req.Quantity == 2 && req.TotalPrice == 100
	}), mock.Anything).Return(&models.PurchaseResult{
		TicketCode: "ABC123XYZ000",
		Message:    services.PurchaseSuccessMessage,
	}, nil)

	e, rec := newRequestEvent(multipartPurchase(t, purchaseFields(), true))
	require.NoError(t, handler.BuyTicket(e))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "ABC123XYZ000", body["ticketCode"])
	api.AssertExpectations(t)
}

func TestBuyTicketErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{
			"validation", &services.ValidationError{Field: "buyerName"},
			http.StatusBadRequest, "Missing required fields",
		},
		{
			"invalid category", services.ErrInvalidCategory,
			http.StatusBadRequest, "Invalid ticket category",
		},
		{
			"sold out", services.ErrSoldOut,
			http.StatusBadRequest, "This ticket category is sold out",
		},
		{
			"insufficient", &services.InsufficientRemainingError{Remaining: 2},
			http.StatusBadRequest, "Only 2 ticket(s) remaining for this category",
		},
		{
			"conflict", services.ErrConflict,
			http.StatusConflict, "Those tickets were just claimed by another purchase. Please try again.",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := &mockTicketAPI{}
			handler := NewTicketHandler(api)
			api.On("Purchase", mock.Anything, mock.Anything, mock.Anything).Return(nil, tc.err)

			e, rec := newRequestEvent(multipartPurchase(t, purchaseFields(), true))
			require.NoError(t, handler.BuyTicket(e))

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantError, decodeBody(t, rec)["error"])
		})
	}
}

func purchaseAttemptLabels(t *testing.T) []map[string]string {
	t.Helper()

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	var series []map[string]string
	for _, family := range families {
		if family.GetName() != "ticket_purchase_attempts_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			series = append(series, labels)
		}
	}
	return series
}

func TestBuyTicketMetricLabelNeverRawCategory(t *testing.T) {
	api := &mockTicketAPI{}
	handler := NewTicketHandler(api)
	api.On("Purchase", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, services.ErrInvalidCategory)

	rawCategory := "totally-made-up-" + t.Name()
	fields := purchaseFields()
	fields["category"] = rawCategory

	e, rec := newRequestEvent(multipartPurchase(t, fields, true))
	require.NoError(t, handler.BuyTicket(e))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	sawSentinel := false
	for _, labels := range purchaseAttemptLabels(t) {
		assert.NotEqual(t, rawCategory, labels["category"])
		if labels["category"] == "unknown" && labels["outcome"] == "invalid_category" {
			sawSentinel = true
		}
	}
	assert.True(t, sawSentinel, "invalid category should be counted under the sentinel label")
}

func TestBuyTicketMissingSlipReachesService(t *testing.T) {
	api := &mockTicketAPI{}
	handler := NewTicketHandler(api)

	// The handler passes a nil slip through; rejecting it is the
	// workflow's job so validation stays in one place.
	api.On("Purchase", mock.Anything, mock.Anything, (*filesystem.File)(nil)).
		Return(nil, &services.ValidationError{Field: "bankTransferSlip"})

	e, rec := newRequestEvent(multipartPurchase(t, purchaseFields(), false))
	require.NoError(t, handler.BuyTicket(e))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	api.AssertExpectations(t)
}

func TestVerifyTicketValid(t *testing.T) {
	api := &mockTicketAPI{}
	handler := NewTicketHandler(api)

	api.On("CheckVerification", mock.Anything, "ABC123XYZ000").Return(&models.TicketProjection{
		BuyerName:  "Jan",
		BuyerEmail: "jan@example.com",
		Quantity:   2,
		TotalPrice: 100,
		TicketCode: "ABC123XYZ000",
		Status:     models.StatusVerified,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/verify-ticket?code=ABC123XYZ000", nil)
	e, rec := newRequestEvent(req)
	require.NoError(t, handler.VerifyTicket(e))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["valid"])

	ticket := body["ticket"].(map[string]any)
	assert.Equal(t, "Jan", ticket["buyerName"])
	assert.Equal(t, "verified", ticket["status"])
}

func TestVerifyTicketErrorMapping(t *testing.T) {
	cases := []struct {
		name            string
		code            string
		err             error
		wantStatus      int
		wantError       string
		wantStatusField string
	}{
		{
			"missing code", "", services.ErrMissingCode,
			http.StatusBadRequest, "No ticket code provided", "",
		},
		{
			"not found", "NOPE", services.ErrTicketNotFound,
			http.StatusNotFound, "Ticket not found", "",
		},
		{
			"pending", "ABC123XYZ000", &services.NotVerifiedError{Status: models.StatusPending},
			http.StatusBadRequest, "Ticket is pending", "pending",
		},
		{
			"rejected", "ABC123XYZ000", &services.NotVerifiedError{Status: models.StatusRejected},
			http.StatusBadRequest, "Ticket is rejected", "rejected",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := &mockTicketAPI{}
			handler := NewTicketHandler(api)
			api.On("CheckVerification", mock.Anything, tc.code).Return(nil, tc.err)

			req := httptest.NewRequest(http.MethodGet, "/api/verify-ticket?code="+tc.code, nil)
			e, rec := newRequestEvent(req)
			require.NoError(t, handler.VerifyTicket(e))

			assert.Equal(t, tc.wantStatus, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, false, body["valid"])
			assert.Equal(t, tc.wantError, body["error"])
			if tc.wantStatusField != "" {
				assert.Equal(t, tc.wantStatusField, body["status"])
			}
		})
	}
}
