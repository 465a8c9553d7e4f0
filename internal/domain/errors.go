package domain

import "errors"

var (
	ErrItemNameTaken     = errors.New("item name already taken")
	ErrUnknownItem       = errors.New("unknown inventory item")
	ErrInsufficientStock = errors.New("insufficient stock")
)
