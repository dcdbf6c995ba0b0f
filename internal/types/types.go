// README: Common value objects shared across modules.
package types

// ID is an opaque identifier (32-char hex from the ID generator).
type ID string

// Money is an amount in minor currency units (e.g. cents).
type Money struct {
    Amount   int64
    Currency string
}

// Point is a WGS84 coordinate.
type Point struct {
    Lat float64
    Lng float64
}
