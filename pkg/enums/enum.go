// Package enums holds the string enums shared by the API, storage and events.
// Values match the Postgres enum types created by the migrations.
package enums

import (
	"fmt"
	"slices"
)

func parse[T ~string](kind string, valid []T, raw string) (T, error) {
	if i := slices.Index(valid, T(raw)); i >= 0 {
		return valid[i], nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
