package mailer

import (
	"github.com/sirupsen/logrus"
)

// DevGateway logs login codes instead of sending mail. Used in development
// mode, where the code is also returned in the API response.
type DevGateway struct {
	logger *logrus.Logger
}

// NewDevGateway creates a new development mail gateway
func NewDevGateway(logger *logrus.Logger) *DevGateway {
	return &DevGateway{logger: logger}
}

// SendOTP logs the code instead of delivering it
func (g *DevGateway) SendOTP(toEmail, code string, expiryMinutes int) error {
	g.logger.WithFields(logrus.Fields{
		"to":             toEmail,
		"code":           code,
		"expiry_minutes": expiryMinutes,
	}).Info("DEV mail gateway: OTP not actually sent")
	return nil
}

// GetName returns the gateway name
func (g *DevGateway) GetName() string {
	return "dev"
}
