// Package method defines the inventory cost valuation methods.
// It is a leaf package so both the product catalog and the valuation engine
// can reference it.
package method

// Method represents the inventory cost valuation method.
type Method string

const (
	// FIFO consumes the oldest layer costs first.
	FIFO Method = "FIFO"

	// LIFO consumes the newest layer costs first.
	LIFO Method = "LIFO"
)

// Default is the valuation method assumed when a product does not specify one.
const Default = FIFO

// IsValid checks if the method is one of the supported values.
func (m Method) IsValid() bool {
	switch m {
	case FIFO, LIFO:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (m Method) String() string {
	return string(m)
}
