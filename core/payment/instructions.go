package payment

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Instructions tell the user how to pay manually and what to submit after.
type Instructions struct {
	CourseTitle     string         `json:"courseTitle"`
	Amount          int            `json:"amount"`
	Currency        string         `json:"currency"`
	FormattedAmount string         `json:"formattedAmount"`
	ReceiverID      string         `json:"receiverId"`
	Steps           []string       `json:"steps"`
	Methods         []MethodOption `json:"methods"`
}

var printer = message.NewPrinter(language.English)

// FormatAmount renders an INR amount with thousands separators.
func FormatAmount(amount int) string {
	return printer.Sprintf("₹%d", amount)
}

func NewInstructions(receiverID, courseTitle string, amount int) Instructions {
	formatted := FormatAmount(amount)
	return Instructions{
		CourseTitle:     courseTitle,
		Amount:          amount,
		Currency:        CurrencyINR,
		FormattedAmount: formatted,
		ReceiverID:      receiverID,
		Steps: []string{
			"Open your preferred payment app (GooglePay/PhonePe)",
			"Send " + formatted + " to: " + receiverID,
			"Copy the transaction ID from your app",
			"Enter the details below to confirm payment",
		},
		Methods: Methods,
	}
}
