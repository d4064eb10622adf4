package checkout

type OrderCreationError struct {
	Err error
}

func (e OrderCreationError) Error() string {
	return e.Err.Error()
}

func (e OrderCreationError) Unwrap() error {
	return e.Err
}

func (e OrderCreationError) OrderCreationFailed() bool {
	return true
}

type PaymentClaimError struct {
	Err error
}

func (e PaymentClaimError) Error() string {
	return e.Err.Error()
}

func (e PaymentClaimError) Unwrap() error {
	return e.Err
}

func (e PaymentClaimError) PaymentClaimFailed() bool {
	return true
}
