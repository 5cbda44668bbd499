package enums

// BookAvailability is derived from a book's copy counters.
type BookAvailability string

const (
	BookAvailabilityFull        BookAvailability = "FULLY_AVAILABLE"
	BookAvailabilityPartial     BookAvailability = "PARTIALLY_AVAILABLE"
	BookAvailabilityUnavailable BookAvailability = "UNAVAILABLE"
)

// String implements fmt.Stringer.
func (a BookAvailability) String() string {
	return string(a)
}

// DeriveBookAvailability maps copy counters to an availability status.
func DeriveBookAvailability(available, total int) BookAvailability {
	switch {
	case available <= 0:
		return BookAvailabilityUnavailable
	case available >= total:
		return BookAvailabilityFull
	default:
		return BookAvailabilityPartial
	}
}
