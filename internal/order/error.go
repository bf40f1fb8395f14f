package order

import "errors"

var (
	ErrInvalidInput  = errors.New("invalid order data")
	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidStatus = errors.New("invalid status")
	ErrPersistence   = errors.New("order persistence failed")
	ErrUserMismatch  = errors.New("userId does not match the signed-in user")
)
