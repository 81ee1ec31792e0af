package models

import (
	"errors"
	"strings"
	"unicode"
)

type PaymentMethod string

const (
	PaymentMethodWhatsApp     PaymentMethod = "WhatsApp"
	PaymentMethodBankTransfer PaymentMethod = "BankTransfer"
	PaymentMethodCreditCard   PaymentMethod = "CreditCard"
)

var ErrUnknownPaymentMethod = errors.New("unknown payment method")

// PaymentSelection is one of WhatsAppPayment, BankTransferPayment or
// CreditCardPayment. The set is closed to this package.
type PaymentSelection interface {
	Method() PaymentMethod
	isPaymentSelection()
}

type WhatsAppPayment struct{}

type BankTransferPayment struct {
	Reference string `json:"reference,omitempty"`
}

type CreditCardPayment struct {
	CardNumber string `json:"cardNumber" validate:"required"`
	ExpiryDate string `json:"expiryDate" validate:"required"`
	CVV        string `json:"cvv" validate:"required"`
	CardName   string `json:"cardName" validate:"required"`
}

func (WhatsAppPayment) Method() PaymentMethod     { return PaymentMethodWhatsApp }
func (BankTransferPayment) Method() PaymentMethod { return PaymentMethodBankTransfer }
func (CreditCardPayment) Method() PaymentMethod   { return PaymentMethodCreditCard }

func (WhatsAppPayment) isPaymentSelection()     {}
func (BankTransferPayment) isPaymentSelection() {}
func (CreditCardPayment) isPaymentSelection()   {}

// PaymentRequest is the flat wire form sent by the storefront. Only the
// fields of the chosen method survive conversion.
type PaymentRequest struct {
	Method     PaymentMethod `json:"method" binding:"required"`
	Reference  string        `json:"reference,omitempty"`
	CardNumber string        `json:"cardNumber,omitempty"`
	ExpiryDate string        `json:"expiryDate,omitempty"`
	CVV        string        `json:"cvv,omitempty"`
	CardName   string        `json:"cardName,omitempty"`
}

// Selection converts the request into its payment variant.
func (r PaymentRequest) Selection() (PaymentSelection, error) {
	switch r.Method {
	case PaymentMethodWhatsApp:
		return WhatsAppPayment{}, nil
	case PaymentMethodBankTransfer:
		return BankTransferPayment{Reference: strings.TrimSpace(r.Reference)}, nil
	case PaymentMethodCreditCard:
		return CreditCardPayment{
			CardNumber: strings.TrimSpace(r.CardNumber),
			ExpiryDate: strings.TrimSpace(r.ExpiryDate),
			CVV:        strings.TrimSpace(r.CVV),
			CardName:   strings.TrimSpace(r.CardName),
		}, nil
	default:
		return nil, ErrUnknownPaymentMethod
	}
}

// PaymentResult is the paymentResult object of an order. Card numbers are
// reduced to their last four digits and the CVV is never included.
type PaymentResult struct {
	Status     string `json:"status"`
	Reference  string `json:"reference,omitempty"`
	CardName   string `json:"cardName,omitempty"`
	CardLast4  string `json:"cardLast4,omitempty"`
	ExpiryDate string `json:"expiryDate,omitempty"`
}

const PaymentStatusPending = "pending"

func NewPaymentResult(sel PaymentSelection) PaymentResult {
	switch p := sel.(type) {
	case WhatsAppPayment:
		return PaymentResult{Status: PaymentStatusPending}
	case BankTransferPayment:
		return PaymentResult{Status: PaymentStatusPending, Reference: p.Reference}
	case CreditCardPayment:
		return PaymentResult{
			Status:     PaymentStatusPending,
			CardName:   p.CardName,
			CardLast4:  lastDigits(p.CardNumber, 4),
			ExpiryDate: p.ExpiryDate,
		}
	default:
		return PaymentResult{}
	}
}

// PaymentSummary is the display form of a selection.
type PaymentSummary struct {
	Method    PaymentMethod `json:"method"`
	Reference string        `json:"reference,omitempty"`
	CardName  string        `json:"cardName,omitempty"`
	CardLast4 string        `json:"cardLast4,omitempty"`
}

func SummarizePayment(sel PaymentSelection) *PaymentSummary {
	switch p := sel.(type) {
	case WhatsAppPayment:
		return &PaymentSummary{Method: p.Method()}
	case BankTransferPayment:
		return &PaymentSummary{Method: p.Method(), Reference: p.Reference}
	case CreditCardPayment:
		return &PaymentSummary{Method: p.Method(), CardName: p.CardName, CardLast4: lastDigits(p.CardNumber, 4)}
	default:
		return nil
	}
}

func lastDigits(s string, n int) string {
	digits := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
		}
	}
	if len(digits) <= n {
		return string(digits)
	}
	return string(digits[len(digits)-n:])
}
