package paygate

import "encoding/json"

// Validation statuses reported by the gateway.
const (
	StatusValid     = "VALID"
	StatusValidated = "VALIDATED"
)

type SessionRequest struct {
	TotalAmount     float64
	Currency        string
	TransactionID   string
	SuccessURL      string
	FailURL         string
	CancelURL       string
	IPNURL          string
	ProductName     string
	CustomerName    string
	CustomerEmail   string
	CustomerAddress string
	CustomerPhone   string
}

type SessionResponse struct {
	Status         string `json:"status"`
	FailedReason   string `json:"failedreason"`
	SessionKey     string `json:"sessionkey"`
	GatewayPageURL string `json:"GatewayPageURL"`
}

// ValidationResponse is the gateway's verdict on a transaction. TranID is
// authoritative; the callback's own fields are not.
type ValidationResponse struct {
	Status        string `json:"status"`
	TranID        string `json:"tran_id"`
	ValID         string `json:"val_id"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	BankTranID    string `json:"bank_tran_id"`
	CardType      string `json:"card_type"`
	CardIssuer    string `json:"card_issuer"`
	TranDate      string `json:"tran_date"`
	RiskLevel     string `json:"risk_level"`
	RiskTitle     string `json:"risk_title"`
	StoreAmount   string `json:"store_amount"`
	CurrencyType  string `json:"currency_type"`
	ValidatedOn   string `json:"validated_on"`
	GatewayStatus string `json:"APIConnect"`
}

// Success reports whether the gateway considers the transaction settled.
func (v *ValidationResponse) Success() bool {
	return v.Status == StatusValid || v.Status == StatusValidated
}

// Raw returns the response as a JSON blob for storage alongside the payment.
func (v *ValidationResponse) Raw() json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

// Callback is the redirect/IPN payload received from the gateway. Only ValID
// is used, and only to ask the gateway itself for the verdict.
type Callback struct {
	ValID  string `form:"val_id" json:"val_id"`
	TranID string `form:"tran_id" json:"tran_id"`
	Status string `form:"status" json:"status"`
}
