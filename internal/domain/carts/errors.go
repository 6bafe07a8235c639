package carts

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindBackend
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindBackend:
		return "backend"
	default:
		return "unknown"
	}
}

const (
	ErrMsgCompanyRequired      = "company context could not be resolved"
	ErrMsgProductIDRequired    = "product id is required"
	ErrMsgQuantityPositive     = "quantity must be positive"
	ErrMsgQuantityNegative     = "quantity cannot be negative"
	ErrMsgItemNotInCart        = "item not in cart"
	ErrMsgCouponCodeRequired   = "coupon code is required"
	ErrMsgCouponAlreadyApplied = "coupon already applied"
	ErrMsgCouponNotApplied     = "coupon not applied to this cart"
	ErrMsgCartEmpty            = "cart is empty"
)

var ErrVersionConflict = errors.New("cart was modified concurrently")

// Error is the failure outcome of a cart operation. Message is safe to show to
// the user.
type Error struct {
	Kind    Kind
	Op      Op
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewValidation(op Op, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: message}
}

func NewValidationf(op Op, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

func NewNotFound(op Op, message string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: message}
}

func NewBackend(op Op, err error) *Error {
	return &Error{Kind: KindBackend, Op: op, Message: fmt.Sprintf("%s failed, please try again", op), Err: err}
}

// KindOf classifies any error; errors not produced by this package count as
// backend failures.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindBackend
}
