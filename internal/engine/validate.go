package engine

import "order-matching-engine/internal/models"

// validate checks an OrderRequest against spec section 4.1's rules and
// returns every problem found, not just the first: required fields are
// reported as a set, as spec mandates.
func validate(req OrderRequest) *ValidationError {
	verr := &ValidationError{}

	if req.User == "" {
		verr.Missing = append(verr.Missing, "user")
	}
	if req.ClientID == "" {
		verr.Missing = append(verr.Missing, "client_id")
	}
	if req.Side == "" {
		verr.Missing = append(verr.Missing, "side")
	} else if req.Side != models.SideBuy && req.Side != models.SideSell {
		verr.add("side must be BUY or SELL")
	}
	if req.Type == "" {
		verr.Missing = append(verr.Missing, "order_type")
	} else if req.Type != models.TypeLimit && req.Type != models.TypeMarket {
		verr.add("order_type must be LIMIT or MARKET")
	}

	if req.Quantity.IsZero() {
		verr.Missing = append(verr.Missing, "quantity")
	} else if req.Quantity.IsNegative() {
		verr.add("quantity must be a positive integer")
	} else if !req.Quantity.Equal(req.Quantity.Truncate(0)) {
		verr.add("quantity must be an integer")
	}

	if req.Type == models.TypeLimit {
		if req.Price == nil {
			verr.Missing = append(verr.Missing, "price")
		} else if req.Price.IsNegative() || req.Price.IsZero() {
			verr.add("price must be a positive integer")
		} else if !req.Price.Equal(req.Price.Truncate(0)) {
			verr.add("price must be an integer")
		}
	}
	// A MARKET order carrying a price is not an error: the field is
	// simply ignored, the same way the rest of a request's extra fields
	// are ignored.

	return verr
}
