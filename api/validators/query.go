package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// IntRange bounds an integer query parameter.
type IntRange struct {
	Default, Min, Max int
}

// ParseQueryInt reads key from the query string, falling back to the range
// default when it is absent.
func ParseQueryInt(r *http.Request, key string, bounds IntRange) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return bounds.Default, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, queryError(key, "must be an integer")
	}
	if value < bounds.Min || value > bounds.Max {
		return 0, queryError(key, "must be between "+strconv.Itoa(bounds.Min)+" and "+strconv.Itoa(bounds.Max))
	}
	return value, nil
}

// ParseLimit reads the conventional "limit" parameter.
func ParseLimit(r *http.Request, def, max int) (int, error) {
	return ParseQueryInt(r, "limit", IntRange{Default: def, Min: 1, Max: max})
}

func queryError(key, msg string) error {
	return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid query parameter %q", key).
		WithDetails(map[string]string{key: msg})
}
