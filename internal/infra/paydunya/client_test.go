package paydunya

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"

	"github.com/yanqian/meteo-burkina/internal/domain/payment"
)

func TestCreateInvoiceSendsHeadersAndPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/checkout-invoice/create", r.URL.Path)
		require.Equal(t, "master", r.Header.Get("PAYDUNYA-MASTER-KEY"))
		require.Equal(t, "private", r.Header.Get("PAYDUNYA-PRIVATE-KEY"))
		require.Equal(t, "token", r.Header.Get("PAYDUNYA-TOKEN"))
		require.Equal(t, "test", r.Header.Get("PAYDUNYA-MODE"))

		var body map[string]map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, float64(250), body["invoice"]["total_amount"])
		require.Equal(t, "Abonnement Payant - Conseils Météo", body["invoice"]["description"])
		require.Equal(t, "Vos conseils météo personnalisés", body["store"]["tagline"])
		require.Equal(t, "https://meteo.bf/api/payment/webhook", body["actions"]["callback_url"])
		require.Equal(t, "premium", body["custom_data"]["plan_type"])
		require.Equal(t, "ref-1", body["custom_data"]["reference"])

		_, _ = w.Write([]byte(`{"response_code":"00","response_text":"https://paydunya.com/sandbox-checkout/invoice/test_abc","description":"ok","token":"test_abc"}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	session, err := client.CreateInvoice(context.Background(), payment.Invoice{
		Amount:      250,
		Description: "Abonnement Payant - Conseils Météo",
		Store:       payment.Store{Name: "Conseils Météo App", Tagline: "Vos conseils météo personnalisés"},
		CallbackURL: "https://meteo.bf/api/payment/webhook",
		CancelURL:   "https://meteo.bf/payment/cancel",
		ReturnURL:   "https://meteo.bf/payment/success?plan=plan_premium_001",
		CustomData:  payment.InvoiceData{PlanType: "premium", UserID: "4", PlanDuration: "1 month", Reference: "ref-1"},
	})
	require.NoError(t, err)
	require.Equal(t, "test_abc", session.Token)
	require.Equal(t, "https://paydunya.com/sandbox-checkout/invoice/test_abc", session.CheckoutURL)
}

func TestCreateInvoicePrefersNestedInvoiceURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response_code":"00","response_text":"ok","token":"t","checkout_url":"https://b","response":{"invoice_url":"https://a"}}`))
	}))
	defer srv.Close()

	session, err := newTestClient(srv.URL).CreateInvoice(context.Background(), payment.Invoice{Amount: 1})
	require.NoError(t, err)
	require.Equal(t, "https://a", session.CheckoutURL)
}

func TestCreateInvoiceWithoutURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response_code":"00","response_text":"Invoice created","token":"t"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateInvoice(context.Background(), payment.Invoice{Amount: 1})
	require.ErrorIs(t, err, ErrMissingCheckoutURL)
}

func TestCreateInvoiceRejectedCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response_code":"1001","response_text":"Invalid Masterkey"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateInvoice(context.Background(), payment.Invoice{Amount: 1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "Invalid Masterkey")
}

func TestConfirmInvoiceParsesStringAmount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/checkout-invoice/confirm/test_abc", r.URL.Path)
		_, _ = w.Write([]byte(`{"response_code":"00","response_text":"Transaction Found","status":"Completed","invoice":{"token":"test_abc","total_amount":"250"}}`))
	}))
	defer srv.Close()

	state, err := newTestClient(srv.URL).ConfirmInvoice(context.Background(), "test_abc")
	require.NoError(t, err)
	require.Equal(t, payment.InvoiceCompleted, state.Status)
	require.Equal(t, 250, state.Amount)
	require.Equal(t, "test_abc", state.Token)
}

func TestConfirmInvoiceHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).ConfirmInvoice(context.Background(), "x")
	require.Error(t, err)
	require.Contains(t, err.Error(), "status=500")
}

func TestUnknownInvoiceTokenDoesNotTripBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if strings.HasSuffix(r.URL.Path, "/unknown") {
			http.Error(w, `{"response_code":"1001","response_text":"Invoice not found"}`, http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"response_code":"00","status":"completed","invoice":{"total_amount":250}}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	for i := 0; i < 5; i++ {
		_, err := client.ConfirmInvoice(context.Background(), "unknown")
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		require.Equal(t, http.StatusNotFound, statusErr.Status)
	}

	state, err := client.ConfirmInvoice(context.Background(), "good")
	require.NoError(t, err)
	require.Equal(t, "completed", state.Status)
	require.Equal(t, int32(6), calls.Load())
}

func TestServerErrorsOpenBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	for i := 0; i < 3; i++ {
		_, err := client.ConfirmInvoice(context.Background(), "tok")
		require.Error(t, err)
	}
	_, err := client.ConfirmInvoice(context.Background(), "tok")
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	require.Equal(t, int32(3), calls.Load())
}

func TestLiveModeHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "live", r.Header.Get("PAYDUNYA-MODE"))
		_, _ = w.Write([]byte(`{"response_code":"00","status":"pending","invoice":{"total_amount":450}}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})
	state, err := client.ConfirmInvoice(context.Background(), "tok")
	require.NoError(t, err)
	require.Equal(t, 450, state.Amount)
	require.Equal(t, "tok", state.Token)
}

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL:    baseURL,
		MasterKey:  "master",
		PrivateKey: "private",
		Token:      "token",
		Sandbox:    true,
	})
}
