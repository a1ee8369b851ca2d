package domain

import "fmt"

// MonthID is the VIEWS month index: month 1 is January 1980 and ids increase
// by one per calendar month. It is the system's only time axis; range filters
// are defined by ordinary integer ordering over MonthID.
type MonthID int

// NewMonthID encodes a (year, month) pair as a MonthID.
func NewMonthID(year, month int) MonthID {
	return MonthID((year-1980)*12 + month)
}

// Year returns the calendar year the id falls in.
func (m MonthID) Year() int {
	return 1980 + int(m-1)/12
}

// Month returns the calendar month, 1-12.
func (m MonthID) Month() int {
	return int(m-1)%12 + 1
}

// Valid reports whether the id is in the representable range (>= 1).
// Valid ids may still be absent from the loaded data; absence is not an error.
func (m MonthID) Valid() bool {
	return m >= 1
}

// String renders the id as "YYYY-MM", e.g. MonthID(548).String() == "2025-08".
func (m MonthID) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year(), m.Month())
}
