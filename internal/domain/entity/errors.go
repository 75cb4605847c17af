package entity

import "errors"

var (
	// ErrFetchFailed is wrapped by every failure of the remote rate API, whatever the cause
	ErrFetchFailed = errors.New("exchange rate fetch failed")

	// ErrUnresolvableCurrency is returned when the target currency is missing from the resolved rates
	ErrUnresolvableCurrency = errors.New("unresolvable target currency")

	// ErrConversionFailed is returned when rates could not be resolved for a conversion
	ErrConversionFailed = errors.New("conversion failed")

	// ErrInvalidAmount is returned for amounts that are not finite numbers
	ErrInvalidAmount = errors.New("invalid amount")
)
