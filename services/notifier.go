package services

import (
	"fmt"
	"log"
	"strings"

	"github.com/kendall-kelly/linen-ops-api/config"
	"github.com/kendall-kelly/linen-ops-api/models"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Notifier delivers high-severity alerts to people outside the app
type Notifier interface {
	Notify(alert models.SystemAlert) error
}

// MessageSender is the part of the Twilio REST client the notifier uses
type MessageSender interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioNotifier sends one SMS per recipient through Twilio
type TwilioNotifier struct {
	sender     MessageSender
	from       string
	recipients []string
}

// NoopNotifier only logs; used when Twilio is not configured
type NoopNotifier struct{}

// Notify logs the alert
func (NoopNotifier) Notify(alert models.SystemAlert) error {
	log.Printf("Alert %d (%s/%s) not sent: SMS notifications are disabled", alert.ID, alert.Type, alert.Severity)
	return nil
}

var notifierInstance Notifier = NoopNotifier{}

// InitNotifier picks the Twilio notifier when credentials and recipients
// are configured, and the no-op notifier otherwise
func InitNotifier(cfg *config.Config) Notifier {
	if cfg == nil || !cfg.TwilioEnabled() {
		notifierInstance = NoopNotifier{}
		return notifierInstance
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.TwilioAccountSID,
		Password: cfg.TwilioAuthToken,
	})
	notifierInstance = NewTwilioNotifier(client.Api, cfg.TwilioFromNumber, cfg.AlertRecipients)
	log.Printf("SMS alert notifications enabled for %d recipient(s)", len(cfg.AlertRecipients))
	return notifierInstance
}

// GetNotifier returns the configured notifier
func GetNotifier() Notifier {
	return notifierInstance
}

// SetNotifier replaces the notifier (primarily for testing)
func SetNotifier(n Notifier) {
	notifierInstance = n
}

// NewTwilioNotifier creates a notifier sending from one number to recipients
func NewTwilioNotifier(sender MessageSender, from string, recipients []string) *TwilioNotifier {
	return &TwilioNotifier{sender: sender, from: from, recipients: recipients}
}

// Notify sends the alert to every recipient and reports the failures
func (n *TwilioNotifier) Notify(alert models.SystemAlert) error {
	body := alertMessage(alert)
	var failed []string
	for _, to := range n.recipients {
		params := &twilioApi.CreateMessageParams{}
		params.SetTo(to)
		params.SetFrom(n.from)
		params.SetBody(body)

		resp, err := n.sender.CreateMessage(params)
		if err != nil {
			log.Printf("Failed to send alert %d to %s: %v", alert.ID, to, err)
			failed = append(failed, to)
			continue
		}
		if resp != nil && resp.Sid != nil {
			log.Printf("Alert %d sent to %s, SID: %s", alert.ID, to, *resp.Sid)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to notify %s", strings.Join(failed, ", "))
	}
	return nil
}

func alertMessage(alert models.SystemAlert) string {
	msg := fmt.Sprintf("[%s] %s alert: %s", strings.ToUpper(alert.Severity), alert.Type, alert.Message)
	if alert.Component != "" {
		msg += " (" + alert.Component + ")"
	}
	return msg
}
