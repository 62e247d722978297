package gateway

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"kalam-backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPayU(statusURL string) *PayU {
	return NewPayU(&config.Config{
		PayUMerchantKey:  "gtKFFx",
		PayUMerchantSalt: "eCwWELxi",
		PayUBaseURL:      "https://test.payu.in/_payment",
		PayUStatusURL:    statusURL,
		PayURateLimit:    100,
	})
}

func TestCheckout_SignsForwardHash(t *testing.T) {
	p := newPayU("")
	co, err := p.Checkout(CheckoutRequest{
		TxnID:       "txn1",
		Amount:      700,
		ProductInfo: "Kalam order",
		FirstName:   "Asha",
		Email:       "a@x.com",
		UDF:         [10]string{"order-1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "https://test.payu.in/_payment", co.RedirectURL)
	assert.Equal(t, "700.00", co.Params["amount"])
	assert.Equal(t, "order-1", co.Params["udf1"])

	sum := sha512.Sum512([]byte("gtKFFx|txn1|700.00|Kalam order|Asha|a@x.com|order-1||||||||||eCwWELxi"))
	assert.Equal(t, hex.EncodeToString(sum[:]), co.Params["hash"])
}

func TestCheckout_RejectsBadInput(t *testing.T) {
	_, err := newPayU("").Checkout(CheckoutRequest{TxnID: "", Amount: 10})
	assert.Error(t, err)
	_, err = newPayU("").Checkout(CheckoutRequest{TxnID: "t", Amount: 0})
	assert.Error(t, err)
}

func callback(p *PayU, status string) map[string]string {
	payload := map[string]string{
		"key":         "gtKFFx",
		"txnid":       "txn1",
		"amount":      "700.00",
		"productinfo": "Kalam order",
		"firstname":   "Asha",
		"email":       "a@x.com",
		"udf1":        "order-1",
		"status":      status,
		"mihpayid":    "403993715521",
	}
	payload["hash"] = p.CallbackHash(payload)
	return payload
}

func TestVerifyCallback(t *testing.T) {
	p := newPayU("")

	ok := callback(p, "success")
	assert.True(t, p.VerifyCallback(ok, nil))

	sum := sha512.Sum512([]byte("eCwWELxi|success||||||||||order-1|a@x.com|Asha|Kalam order|700.00|txn1|gtKFFx"))
	assert.Equal(t, hex.EncodeToString(sum[:]), ok["hash"])

	tampered := callback(p, "failure")
	tampered["status"] = "success"
	assert.False(t, p.VerifyCallback(tampered, nil))

	amount := callback(p, "success")
	amount["amount"] = "1.00"
	assert.False(t, p.VerifyCallback(amount, nil))

	foreign := callback(p, "success")
	foreign["key"] = "other"
	assert.False(t, p.VerifyCallback(foreign, nil))

	missing := callback(p, "success")
	delete(missing, "hash")
	assert.False(t, p.VerifyCallback(missing, nil))
}

func TestVerifyCallback_AdditionalCharges(t *testing.T) {
	p := newPayU("")
	payload := callback(p, "success")
	payload["additionalCharges"] = "12.00"
	assert.False(t, p.VerifyCallback(payload, nil))

	payload["hash"] = p.CallbackHash(payload)
	assert.True(t, p.VerifyCallback(payload, nil))
}

func TestQueryStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "verify_payment", r.PostForm.Get("command"))
		assert.Equal(t, "txn1", r.PostForm.Get("var1"))
		assert.NotEmpty(t, r.PostForm.Get("hash"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":1,"msg":"1 out of 1 Transactions Fetched Successfully",
			"transaction_details":{"txn1":{"mihpayid":"4039","status":"success","amt":"700.00"}}}`)
	}))
	defer srv.Close()

	res, err := newPayU(srv.URL).QueryStatus(context.Background(), "txn1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, "4039", res.ProviderPaymentID)
	assert.Equal(t, "700.00", res.Amount)
}

func TestQueryStatus_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("var1") == "down" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"status":0,"transaction_details":{}}`)
	}))
	defer srv.Close()

	p := newPayU(srv.URL)
	_, err := p.QueryStatus(context.Background(), "down")
	assert.Error(t, err)

	_, err = p.QueryStatus(context.Background(), "unknown")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.QueryStatus(ctx, "txn1")
	assert.Error(t, err)
}

func TestParseAmountAndOutcome(t *testing.T) {
	n, err := ParseAmount("700.00")
	require.NoError(t, err)
	assert.Equal(t, int64(700), n)

	n, err = ParseAmount("45")
	require.NoError(t, err)
	assert.Equal(t, int64(45), n)

	_, err = ParseAmount("10.50")
	assert.Error(t, err)
	_, err = ParseAmount("abc")
	assert.Error(t, err)

	assert.Equal(t, OutcomeSuccess, ParseOutcome("SUCCESS"))
	assert.Equal(t, OutcomeFailed, ParseOutcome("failure"))
	assert.Equal(t, OutcomePending, ParseOutcome("in progress"))
}
