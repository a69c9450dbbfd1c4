package enums

// PaymentProvider names the gateway that holds an order's payment intent.
type PaymentProvider string

const (
	PaymentProviderRazorpay PaymentProvider = "razorpay"
	PaymentProviderStripe   PaymentProvider = "stripe"
)

var paymentProviders = set[PaymentProvider]{PaymentProviderRazorpay, PaymentProviderStripe}

func (p PaymentProvider) String() string { return string(p) }

func (p PaymentProvider) IsValid() bool { return paymentProviders.has(p) }

func ParsePaymentProvider(value string) (PaymentProvider, error) {
	return paymentProviders.parse("payment provider", value)
}
