package services

import (
	"errors"
	"testing"

	"github.com/kendall-kelly/linen-ops-api/config"
	"github.com/kendall-kelly/linen-ops-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type fakeSender struct {
	sent   []*twilioApi.CreateMessageParams
	failTo string
}

func (f *fakeSender) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.sent = append(f.sent, params)
	if params.To != nil && *params.To == f.failTo {
		return nil, errors.New("unreachable")
	}
	sid := "SM123"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

func TestTwilioNotifierSendsToEveryRecipient(t *testing.T) {
	sender := &fakeSender{}
	notifier := NewTwilioNotifier(sender, "+15550000000", []string{"+15551111111", "+15552222222"})

	err := notifier.Notify(models.SystemAlert{ID: 4, Type: models.AlertTunnel, Severity: models.SeverityCritical, Message: "tunnel jammed", Component: "tunnel-2"})
	require.NoError(t, err)
	require.Len(t, sender.sent, 2)

	first := sender.sent[0]
	assert.Equal(t, "+15551111111", *first.To)
	assert.Equal(t, "+15550000000", *first.From)
	assert.Equal(t, "[CRITICAL] tunnel alert: tunnel jammed (tunnel-2)", *first.Body)
}

func TestTwilioNotifierReportsFailedRecipients(t *testing.T) {
	sender := &fakeSender{failTo: "+15552222222"}
	notifier := NewTwilioNotifier(sender, "+15550000000", []string{"+15551111111", "+15552222222"})

	err := notifier.Notify(models.SystemAlert{Type: models.AlertSystem, Severity: models.SeverityHigh, Message: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "+15552222222")
	assert.Len(t, sender.sent, 2, "a failed recipient does not stop the others")
}

func TestInitNotifier(t *testing.T) {
	previous := GetNotifier()
	defer SetNotifier(previous)

	assert.IsType(t, NoopNotifier{}, InitNotifier(nil))
	assert.IsType(t, NoopNotifier{}, InitNotifier(&config.Config{TwilioAccountSID: "AC1"}))

	n := InitNotifier(&config.Config{
		TwilioAccountSID: "AC1",
		TwilioAuthToken:  "secret",
		TwilioFromNumber: "+15550000000",
		AlertRecipients:  []string{"+15551111111"},
	})
	assert.IsType(t, &TwilioNotifier{}, n)
	assert.Same(t, n, GetNotifier())
}
