package enums

// OfferType identifies the discount formula an offer applies.
type OfferType string

const (
	OfferTypeBuyNGetKFree   OfferType = "buy_n_get_k_free"
	OfferTypePercentageOff  OfferType = "percentage_off"
	OfferTypeFixedAmountOff OfferType = "fixed_amount_off"
)

// offerTypes is listed in application order.
var offerTypes = set[OfferType]{OfferTypeBuyNGetKFree, OfferTypePercentageOff, OfferTypeFixedAmountOff}

func (o OfferType) String() string { return string(o) }

func (o OfferType) IsValid() bool { return offerTypes.has(o) }

// Priority orders offers for sequential application; lower runs first and
// unknown types run last.
func (o OfferType) Priority() int {
	for i, t := range offerTypes {
		if t == o {
			return i + 1
		}
	}
	return len(offerTypes) + 1
}

func ParseOfferType(value string) (OfferType, error) {
	return offerTypes.parse("offer type", value)
}
