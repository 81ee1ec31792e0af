package models

import (
	"math"
	"strings"
)

// DeliveryLocation is a named shipping zone with a fixed fee.
type DeliveryLocation struct {
	ID             string  `json:"_id"`
	Name           string  `json:"name"`
	ShippingAmount float64 `json:"shippingAmount"`
	IsActive       bool    `json:"isActive"`
}

// ShippingAddress is collected per checkout session and submitted verbatim.
type ShippingAddress struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required,basic_email"`
	Phone    string `json:"phone" validate:"required"`
	Address1 string `json:"address1" validate:"required"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city" validate:"required"`
	State    string `json:"state" validate:"required"`
	ZipCode  string `json:"zipCode,omitempty"`
	Country  string `json:"country" validate:"required"`
	Note     string `json:"note,omitempty"`
}

// Normalized returns a copy with surrounding whitespace removed from every field.
func (a ShippingAddress) Normalized() ShippingAddress {
	return ShippingAddress{
		FullName: strings.TrimSpace(a.FullName),
		Email:    strings.TrimSpace(a.Email),
		Phone:    strings.TrimSpace(a.Phone),
		Address1: strings.TrimSpace(a.Address1),
		Address2: strings.TrimSpace(a.Address2),
		City:     strings.TrimSpace(a.City),
		State:    strings.TrimSpace(a.State),
		ZipCode:  strings.TrimSpace(a.ZipCode),
		Country:  strings.TrimSpace(a.Country),
		Note:     strings.TrimSpace(a.Note),
	}
}

// PriceBreakdown is derived from the live cart and the selected delivery location.
type PriceBreakdown struct {
	ItemsPrice       float64 `json:"itemsPrice"`
	ShippingPrice    float64 `json:"shippingPrice"`
	TaxPrice         float64 `json:"taxPrice"`
	TotalPrice       float64 `json:"totalPrice"`
	LocationResolved bool    `json:"locationResolved"`
}

// Finite reports whether every amount is a real number.
func (p PriceBreakdown) Finite() bool {
	for _, v := range []float64{p.ItemsPrice, p.ShippingPrice, p.TaxPrice, p.TotalPrice} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// OrderItem is a cart line as the Order API expects it.
type OrderItem struct {
	Product  string  `json:"product"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Image    string  `json:"image,omitempty"`
}

// OrderDraft is the POST /orders payload. It is built right before submission
// and never stored.
type OrderDraft struct {
	OrderItems      []OrderItem     `json:"orderItems"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	PaymentResult   PaymentResult   `json:"paymentResult"`
	ItemsPrice      float64         `json:"itemsPrice"`
	TaxPrice        float64         `json:"taxPrice"`
	ShippingPrice   float64         `json:"shippingPrice"`
	TotalPrice      float64         `json:"totalPrice"`
}

// CreatedOrder is the part of the Order API response the checkout needs.
type CreatedOrder struct {
	ID          string `json:"_id"`
	OrderNumber string `json:"orderNumber"`
}

// SelectLocationRequest is the payload for PUT /checkout/sessions/:id/delivery-location.
type SelectLocationRequest struct {
	LocationID string `json:"locationId"`
}

// AuthContext identifies the shopper behind a request. A request without a
// bearer token is a guest checkout.
type AuthContext struct {
	UserID  string
	GuestID string
	Role    string
	Token   string
}

func (a AuthContext) IsGuest() bool { return a.UserID == "" }

// OwnerKey namespaces carts, sessions and locks per shopper.
func (a AuthContext) OwnerKey() string {
	if a.IsGuest() {
		return "guest:" + a.GuestID
	}
	return "user:" + a.UserID
}
