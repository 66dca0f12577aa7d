package payment

// 決済ゲートウェイ（PayMongo互換）のJSON形状

type Billing struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Amount は最小通貨単位（センタボ）
type LineItem struct {
	Name     string `json:"name"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Quantity int    `json:"quantity"`
}

type CheckoutRequest struct {
	Billing            Billing    `json:"billing"`
	LineItems          []LineItem `json:"line_items"`
	PaymentMethodTypes []string   `json:"payment_method_types"`
	SuccessURL         string     `json:"success_url"`
	CancelURL          string     `json:"cancel_url"`
	ReferenceNumber    string     `json:"reference_number,omitempty"`
	Description        string     `json:"description,omitempty"`
	ShowLineItems      bool       `json:"show_line_items"`
	SendEmailReceipt   bool       `json:"send_email_receipt"`
}

type CheckoutSession struct {
	ID            string `json:"id"`
	CheckoutURL   string `json:"checkout_url"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	Reference     string `json:"reference_number,omitempty"`
}

const (
	PaymentStatusPaid   = "paid"
	PaymentStatusUnpaid = "unpaid"
)

var DefaultPaymentMethodTypes = []string{"gcash", "paymaya", "card"}

type envelope[T any] struct {
	Data T `json:"data"`
}

type createAttributes struct {
	Attributes CheckoutRequest `json:"attributes"`
}

type sessionData struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Attributes sessionAttributes `json:"attributes"`
}

type sessionAttributes struct {
	CheckoutURL     string             `json:"checkout_url"`
	Status          string             `json:"status"`
	ReferenceNumber string             `json:"reference_number"`
	Payments        []paymentData      `json:"payments"`
	PaymentIntent   *paymentIntentData `json:"payment_intent"`
}

type paymentData struct {
	ID         string `json:"id"`
	Attributes struct {
		Status string `json:"status"`
	} `json:"attributes"`
}

type paymentIntentData struct {
	ID         string `json:"id"`
	Attributes struct {
		Status string `json:"status"`
	} `json:"attributes"`
}

type errorBody struct {
	Errors []struct {
		Code   string `json:"code"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

func (d sessionData) toSession() CheckoutSession {
	s := CheckoutSession{
		ID:            d.ID,
		CheckoutURL:   d.Attributes.CheckoutURL,
		Status:        d.Attributes.Status,
		PaymentStatus: PaymentStatusUnpaid,
		Reference:     d.Attributes.ReferenceNumber,
	}
	for _, p := range d.Attributes.Payments {
		if p.Attributes.Status == PaymentStatusPaid {
			s.PaymentStatus = PaymentStatusPaid
			break
		}
	}
	if pi := d.Attributes.PaymentIntent; pi != nil && pi.Attributes.Status == "succeeded" {
		s.PaymentStatus = PaymentStatusPaid
	}
	return s
}
