package adapter

// SignatureVerifier checks that a payment confirmation was issued by the gateway.
type SignatureVerifier interface {
	Verify(orderID, paymentID, signature string) bool
}
