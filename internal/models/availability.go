package models

// Availability is the tier reported for a restaurant or a spot.
type Availability string

const (
	Available    Availability = "AVAILABLE"
	Possible     Availability = "POSSIBLE"
	NotAvailable Availability = "NOT_AVAILABLE"
	Closed       Availability = "CLOSED"
)
