package checkout

import "errors"

var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrNoMember         = errors.New("no member selected")
	ErrMemberIneligible = errors.New("member cannot borrow")
	ErrQuotaExceeded    = errors.New("borrowing quota exceeded")
	ErrNotConfirmed     = errors.New("checkout not confirmed")
	ErrBookUnavailable  = errors.New("book unavailable")
)
