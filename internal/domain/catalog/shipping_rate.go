package catalog

import (
	"strings"
	"unicode"

	"github.com/marmoleria/backend/internal/domain/shared/valueobject"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ShippingRate is the delivery tariff of a destination city
type ShippingRate struct {
	City     string
	BaseFee  valueobject.Money
	PerKgFee valueobject.Money
}

// NormalizeCity folds case, accents and inner whitespace so that "Bogotá",
// "BOGOTA" and " bogota " resolve to the same shipping zone.
func NormalizeCity(city string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, city)
	if err != nil {
		folded = city
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}
