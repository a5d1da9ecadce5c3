package handler

import "github.com/marketplace/storefront/internal/core/forms"

// echoValidator lets Echo's c.Validate share the storefront's form rules.
type echoValidator struct{}

// NewValidator returns a validator ready to be assigned to echo.Echo.Validator.
func NewValidator() *echoValidator {
	return &echoValidator{}
}

// Validate satisfies the echo.Validator interface.
func (echoValidator) Validate(i any) error {
	return forms.Validate(i)
}
