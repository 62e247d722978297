// Package gateway talks to the hosted-checkout payment provider. Checkout
// forms and callbacks are signed with SHA-512 over pipe-joined fields and the
// merchant salt; status queries go to the provider's verify_payment command.
package gateway

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"kalam-backend/internal/config"

	"golang.org/x/time/rate"
)

const Name = "payu"

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	OutcomePending Outcome = "pending"
)

// Provider is the contract the payment workflow depends on.
type Provider interface {
	Name() string
	Checkout(req CheckoutRequest) (*Checkout, error)
	VerifyCallback(payload map[string]string, headers map[string]string) bool
	QueryStatus(ctx context.Context, txnID string) (*StatusResult, error)
}

type CheckoutRequest struct {
	TxnID       string
	Amount      int64
	ProductInfo string
	FirstName   string
	Email       string
	Phone       string
	UDF         [10]string
	SuccessURL  string
	FailureURL  string
}

// Checkout is what the client posts to RedirectURL.
type Checkout struct {
	RedirectURL string            `json:"redirectUrl"`
	Params      map[string]string `json:"params"`
}

type StatusResult struct {
	TxnID             string
	Outcome           Outcome
	ProviderPaymentID string
	Amount            string
	Raw               map[string]string
}

type PayU struct {
	key       string
	salt      string
	baseURL   string
	statusURL string
	client    *http.Client
	limiter   *rate.Limiter
}

func NewPayU(cfg *config.Config) *PayU {
	return &PayU{
		key:       cfg.PayUMerchantKey,
		salt:      cfg.PayUMerchantSalt,
		baseURL:   cfg.PayUBaseURL,
		statusURL: cfg.PayUStatusURL,
		client:    &http.Client{Timeout: 15 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(cfg.PayURateLimit), 1),
	}
}

func (p *PayU) Name() string {
	return Name
}

func (p *PayU) Checkout(req CheckoutRequest) (*Checkout, error) {
	if req.TxnID == "" || req.Amount <= 0 {
		return nil, fmt.Errorf("checkout needs a txnid and a positive amount")
	}

	params := map[string]string{
		"key":         p.key,
		"txnid":       req.TxnID,
		"amount":      FormatAmount(req.Amount),
		"productinfo": req.ProductInfo,
		"firstname":   req.FirstName,
		"email":       req.Email,
		"phone":       req.Phone,
		"surl":        req.SuccessURL,
		"furl":        req.FailureURL,
	}
	for i, v := range req.UDF {
		params[udf(i)] = v
	}
	params["hash"] = p.RequestHash(params)

	return &Checkout{RedirectURL: p.baseURL, Params: params}, nil
}

// RequestHash signs key|txnid|amount|productinfo|firstname|email|udf1..udf10|salt.
func (p *PayU) RequestHash(f map[string]string) string {
	parts := []string{p.key, f["txnid"], f["amount"], f["productinfo"], f["firstname"], f["email"]}
	for i := 0; i < 10; i++ {
		parts = append(parts, f[udf(i)])
	}
	parts = append(parts, p.salt)
	return sha512Hex(strings.Join(parts, "|"))
}

// CallbackHash signs the reverse sequence
// [additionalCharges|]salt|status|udf10..udf1|email|firstname|productinfo|amount|txnid|key.
func (p *PayU) CallbackHash(f map[string]string) string {
	var parts []string
	if charges := f["additionalCharges"]; charges != "" {
		parts = append(parts, charges)
	}
	parts = append(parts, p.salt, f["status"])
	for i := 9; i >= 0; i-- {
		parts = append(parts, f[udf(i)])
	}
	parts = append(parts, f["email"], f["firstname"], f["productinfo"], f["amount"], f["txnid"], p.key)
	return sha512Hex(strings.Join(parts, "|"))
}

// VerifyCallback recomputes the callback hash and compares in constant time.
// Callbacks addressed to another merchant key are rejected outright.
func (p *PayU) VerifyCallback(payload map[string]string, _ map[string]string) bool {
	got := strings.ToLower(payload["hash"])
	if got == "" || payload["txnid"] == "" {
		return false
	}
	if key := payload["key"]; key != "" && key != p.key {
		return false
	}
	want := p.CallbackHash(payload)
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

type verifyResponse struct {
	Status             int                          `json:"status"`
	Msg                string                       `json:"msg"`
	TransactionDetails map[string]map[string]string `json:"transaction_details"`
}

// QueryStatus asks the provider for the live state of txnID. Calls are
// throttled by the client's limiter and honour ctx.
func (p *PayU) QueryStatus(ctx context.Context, txnID string) (*StatusResult, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("status query throttled: %w", err)
	}

	const command = "verify_payment"
	form := url.Values{}
	form.Set("key", p.key)
	form.Set("command", command)
	form.Set("var1", txnID)
	form.Set("hash", sha512Hex(strings.Join([]string{p.key, command, txnID, p.salt}, "|")))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.statusURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status request: unexpected HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read status response: %w", err)
	}

	var parsed verifyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}

	details, ok := parsed.TransactionDetails[txnID]
	if !ok {
		return nil, fmt.Errorf("status response has no details for %s", txnID)
	}

	amount := details["amt"]
	if amount == "" {
		amount = details["amount"]
	}

	return &StatusResult{
		TxnID:             txnID,
		Outcome:           ParseOutcome(details["status"]),
		ProviderPaymentID: details["mihpayid"],
		Amount:            amount,
		Raw:               details,
	}, nil
}

func ParseOutcome(status string) Outcome {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "success", "captured":
		return OutcomeSuccess
	case "failure", "failed", "bounced", "dropped", "usercancelled":
		return OutcomeFailed
	}
	return OutcomePending
}

// FormatAmount renders whole rupees the way the checkout form carries them.
func FormatAmount(rupees int64) string {
	return strconv.FormatInt(rupees, 10) + ".00"
}

// ParseAmount converts a provider amount string to whole rupees. Amounts
// with a non-zero paise part are rejected.
func ParseAmount(s string) (int64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	paise := math.Round(f * 100)
	if math.Mod(paise, 100) != 0 {
		return 0, fmt.Errorf("amount %q is not whole rupees", s)
	}
	return int64(paise / 100), nil
}

func udf(i int) string {
	return "udf" + strconv.Itoa(i+1)
}

func sha512Hex(s string) string {
	sum := sha512.Sum512([]byte(s))
	return hex.EncodeToString(sum[:])
}
