package cart

import "errors"

var (
	ErrDuplicateItem        = errors.New("item already in cart")
	ErrGroupNameRequired    = errors.New("group name is required")
	ErrNodeNotFound         = errors.New("cart node not found")
	ErrConfirmationRequired = errors.New("removing a group requires confirmation")
	ErrCartNotFound         = errors.New("cart not found")
	ErrItemUnavailable      = errors.New("book has no available copies")
	ErrCartClaimed          = errors.New("cart checkout already in progress")
)
