package service

import "errors"

var (
	ErrInvalidCoupon      = errors.New("coupon is invalid or has expired")
	ErrEmptyCart          = errors.New("cart is empty, nothing to checkout")
	ErrForbidden          = errors.New("you are not allowed to perform this action")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrPaymentUnavailable = errors.New("payment provider is unavailable, try again later")
)
