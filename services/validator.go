package services

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"checkout-service/models"

	"github.com/go-playground/validator/v10"
)

// Field keys used in ValidationErrors besides the struct fields.
const (
	FieldCart          = "cart"
	FieldCartItems     = "cartItems"
	FieldPaymentMethod = "paymentMethod"
	FieldPaymentProof  = "paymentProof"
	FieldTotalPrice    = "totalPrice"
)

const (
	MsgCartEmpty        = "Your cart is empty"
	MsgInvalidCartItems = "Your cart contains invalid items"
	MsgPaymentMethod    = "Select a payment method"
	MsgProofRequired    = "Payment proof is required for bank transfer"
	MsgInvalidEmail     = "Enter a valid email address"
	MsgTotalInvalid     = "Order total could not be calculated"
)

var basicEmailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var fieldLabels = map[string]string{
	"fullName":   "Full name",
	"email":      "Email",
	"phone":      "Phone number",
	"address1":   "Address",
	"city":       "City",
	"state":      "State",
	"country":    "Country",
	"cardNumber": "Card number",
	"expiryDate": "Expiry date",
	"cvv":        "CVV",
	"cardName":   "Name on card",
}

// FormValidator checks a checkout form. It never mutates its inputs.
type FormValidator struct {
	validate *validator.Validate
}

func NewFormValidator() *FormValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("basic_email", func(fl validator.FieldLevel) bool {
		return basicEmailPattern.MatchString(fl.Field().String())
	})
	return &FormValidator{validate: v}
}

// Validate runs every rule and returns all violations.
func (v *FormValidator) Validate(address models.ShippingAddress, payment models.PaymentSelection, lines []models.CartLine, proof models.StagedProof) ValidationErrors {
	errs := ValidationErrors{}

	v.collect(errs, address.Normalized())

	if len(lines) == 0 {
		errs[FieldCart] = MsgCartEmpty
	}
	for _, l := range lines {
		if !l.HasProduct() {
			errs[FieldCartItems] = MsgInvalidCartItems
			break
		}
	}

	switch p := payment.(type) {
	case nil:
		errs[FieldPaymentMethod] = MsgPaymentMethod
	case models.WhatsAppPayment:
	case models.BankTransferPayment:
		if !proof.Readied() {
			errs[FieldPaymentProof] = MsgProofRequired
		}
	case models.CreditCardPayment:
		v.collect(errs, p)
	}

	return errs
}

func (v *FormValidator) collect(errs ValidationErrors, s interface{}) {
	err := v.validate.Struct(s)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return
	}
	for _, fe := range fieldErrs {
		errs[fe.Field()] = messageFor(fe)
	}
}

func messageFor(fe validator.FieldError) string {
	label, ok := fieldLabels[fe.Field()]
	if !ok {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "basic_email":
		return MsgInvalidEmail
	default:
		return label + " is invalid"
	}
}
