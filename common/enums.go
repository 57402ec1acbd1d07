// The only reason this package exists is because error kinds and a couple of
// enums are needed by both configuration and processing packages, and config
// must not depend on processing.
package common

import (
	"fmt"
	"strings"
)

// Order of gallery entries.
type Order int

const (
	// OrderDescending reverses what API returns. Galleries are usually
	// browsed newest first while chapters are read oldest first.
	OrderDescending Order = iota
	// OrderAscending keeps API order.
	OrderAscending
)

var orderNames = map[Order]string{
	OrderDescending: "descending",
	OrderAscending:  "ascending",
}

func (o Order) String() string {
	if name, ok := orderNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Order(%d)", int(o))
}

// ParseOrder converts name to Order.
func ParseOrder(name string) (Order, error) {
	for o, n := range orderNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return o, nil
		}
	}
	return OrderDescending, fmt.Errorf("%w: %q is not a valid order", ErrInvalidInput, name)
}

// OrderNames returns list of known order names.
func OrderNames() []string {
	return []string{OrderDescending.String(), OrderAscending.String()}
}

// MarshalYAML keeps configuration dumps readable.
func (o Order) MarshalYAML() (any, error) {
	return o.String(), nil
}

// UnmarshalText allows Order to be used directly in configuration.
func (o *Order) UnmarshalText(text []byte) error {
	v, err := ParseOrder(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}
