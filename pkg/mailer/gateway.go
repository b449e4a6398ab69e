package mailer

// MailGateway defines the interface for delivering login codes by mail
type MailGateway interface {
	// SendOTP sends a login code to the given address.
	// Returns an error if the send failed
	SendOTP(toEmail, code string, expiryMinutes int) error

	// GetName returns the name of the mail gateway implementation
	GetName() string
}
