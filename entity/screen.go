package entity

type Screen string

const (
	ScreenInformation Screen = "information"
	ScreenPayment     Screen = "payment"
	ScreenSummary     Screen = "summary"
)

var Screens = []Screen{ScreenInformation, ScreenPayment, ScreenSummary}

func (s Screen) Label() string {
	switch s {
	case ScreenInformation:
		return "Information"
	case ScreenPayment:
		return "Payment"
	case ScreenSummary:
		return "Summary"
	default:
		return string(s)
	}
}
