package enums

// StatusSource records which channel observed a transaction status.
type StatusSource string

const (
	StatusSourceCheckout StatusSource = "checkout"
	StatusSourceWebhook  StatusSource = "webhook"
	StatusSourcePoll     StatusSource = "poll"
)

func (s StatusSource) String() string {
	return string(s)
}
