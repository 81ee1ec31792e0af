package services

import "checkout-service/models"

// DefaultTaxRate is applied to every order. Tax is currently disabled.
const DefaultTaxRate = 0.0

// Subtotal sums price x quantity over all lines.
func Subtotal(lines []models.CartLine) float64 {
	var sum float64
	for _, l := range lines {
		sum += l.UnitPrice * float64(l.Quantity)
	}
	return sum
}

// ShippingFor returns the fee of the matching location, or 0 when no
// location is selected or the id is unknown.
func ShippingFor(locationID string, locations []models.DeliveryLocation) float64 {
	amount, _ := lookupShipping(locationID, locations)
	return amount
}

func lookupShipping(locationID string, locations []models.DeliveryLocation) (float64, bool) {
	if locationID == "" {
		return 0, false
	}
	for _, loc := range locations {
		if loc.ID == locationID {
			return loc.ShippingAmount, true
		}
	}
	return 0, false
}

func TaxFor(subtotal, rate float64) float64 {
	return subtotal * rate
}

// Total is an exact sum. Rounding is left to display.
func Total(subtotal, shipping, tax float64) float64 {
	return subtotal + shipping + tax
}

// Calculate prices the given lines against the selected location.
func Calculate(lines []models.CartLine, locationID string, locations []models.DeliveryLocation, taxRate float64) models.PriceBreakdown {
	subtotal := Subtotal(lines)
	shipping, resolved := lookupShipping(locationID, locations)
	tax := TaxFor(subtotal, taxRate)
	return models.PriceBreakdown{
		ItemsPrice:       subtotal,
		ShippingPrice:    shipping,
		TaxPrice:         tax,
		TotalPrice:       Total(subtotal, shipping, tax),
		LocationResolved: resolved,
	}
}
