package service

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindStoreUnavailable Kind = iota
	KindNotFound
	KindInvalidOperation
	KindConflictRetryable
)

// Messages surfaced to clients.
const (
	ErrMsgProductNotFound   = "product not found"
	ErrMsgOwnProduct        = "you cannot add your own products to cart"
	ErrMsgItemNotInCart     = "item not in cart"
	ErrMsgQuantityPositive  = "quantity must be at least 1"
	ErrMsgQuantityTooLarge  = "quantity exceeds the per-item limit"
	ErrMsgCartEmpty         = "cart is empty"
	ErrMsgNoAvailableItems  = "no available items in cart"
	ErrMsgOrderNotFound     = "order not found"
	ErrMsgStoreUnavailable  = "store unavailable"
	ErrMsgConcurrentChange  = "cart was modified concurrently, please retry"
	ErrMsgUserRequired      = "user id is required"
	ErrMsgProductIDRequired = "product id is required"
	ErrMsgInvalidProduct    = "title and a positive price are required"
	ErrMsgPriceScale        = "price must be below 1e12 with at most 2 decimal places"
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NOT_FOUND"
	case KindInvalidOperation:
		return "INVALID_OPERATION"
	case KindConflictRetryable:
		return "CONFLICT_RETRYABLE"
	default:
		return "STORE_UNAVAILABLE"
	}
}

// Error is returned by every Service operation. Err carries the underlying
// cause, if any, and is never shown to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func NewNotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func NewInvalidOperation(message string) *Error {
	return &Error{Kind: KindInvalidOperation, Message: message}
}

func NewInvalidOperationf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidOperation, Message: fmt.Sprintf(format, args...)}
}

func NewConflictRetryable(err error) *Error {
	return &Error{Kind: KindConflictRetryable, Message: ErrMsgConcurrentChange, Err: err}
}

func NewStoreUnavailable(err error) *Error {
	return &Error{Kind: KindStoreUnavailable, Message: ErrMsgStoreUnavailable, Err: err}
}

// KindOf classifies err. Anything that is not an *Error is treated as a
// store failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStoreUnavailable
}
