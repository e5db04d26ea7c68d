package provider

// Provider identifies a third-party payment processor.
type Provider string

const (
	Wave        Provider = "wave"
	OrangeMoney Provider = "orange_money"
	MTNMoney    Provider = "mtn_money"
	Paystack    Provider = "paystack"
	Stripe      Provider = "stripe"
	Flutterwave Provider = "flutterwave"
)

func (p Provider) Valid() bool {
	_, ok := channelByProvider[p]
	return ok
}

// Channel is the customer-facing payment rail.
type Channel string

const (
	ChannelMobileMoney Channel = "mobile_money"
	ChannelCard        Channel = "card"
)

func (c Channel) Valid() bool {
	_, ok := providersByChannel[c]
	return ok
}

// Channel compatibility. Order matters for delegated routing: the first
// active owner credential in this order wins.
var providersByChannel = map[Channel][]Provider{
	ChannelMobileMoney: {Wave, OrangeMoney, MTNMoney},
	ChannelCard:        {Paystack, Stripe, Flutterwave},
}

var channelByProvider = func() map[Provider]Channel {
	m := make(map[Provider]Channel)
	for ch, ps := range providersByChannel {
		for _, p := range ps {
			m[p] = ch
		}
	}
	return m
}()

// ProvidersForChannel returns the compatible providers in routing order.
func ProvidersForChannel(ch Channel) []Provider {
	ps := providersByChannel[ch]
	out := make([]Provider, len(ps))
	copy(out, ps)
	return out
}

// Supports reports whether a provider can serve a channel.
func Supports(p Provider, ch Channel) bool {
	return channelByProvider[p] == ch
}
