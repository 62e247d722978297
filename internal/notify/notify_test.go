package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct{ to, subject, body string }

type recordingMailer struct {
	sent []sentMail
	err  error
}

func (m *recordingMailer) Send(to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

type chanConsumer struct {
	bodies  [][]byte
	handled chan error
}

func (c *chanConsumer) Consume(ctx context.Context, handler func([]byte) error) error {
	go func() {
		for _, b := range c.bodies {
			c.handled <- handler(b)
		}
	}()
	return nil
}

func TestRender(t *testing.T) {
	subject, body, err := Render(Message{
		Type: TypeRegistrationConfirmed,
		Name: "Asha",
		Data: map[string]string{"events": "Hackathon\nQuiz", "orderId": "o-1", "amount": "700"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Registration confirmed", subject)
	assert.Contains(t, body, "Hello Asha")
	assert.Contains(t, body, "  - Hackathon\n")
	assert.Contains(t, body, "  - Quiz\n")
	assert.Contains(t, body, "Rs. 700")

	_, body, err = Render(Message{Type: TypePasswordReset, Data: map[string]string{"link": "https://x/reset?t=1", "expiresIn": "1h0m0s"}})
	require.NoError(t, err)
	assert.Contains(t, body, "https://x/reset?t=1")

	_, _, err = Render(Message{Type: "bogus"})
	assert.Error(t, err)
}

func TestDirectPublisher(t *testing.T) {
	m := &recordingMailer{}
	p := DirectPublisher{Mailer: m}

	require.NoError(t, p.Publish(context.Background(), Message{Type: TypeOrderFailed, To: "a@x.com", Data: map[string]string{"orderId": "o-1"}}))
	require.Len(t, m.sent, 1)
	assert.Equal(t, "a@x.com", m.sent[0].to)
	assert.Equal(t, "Payment failed", m.sent[0].subject)
}

func TestReader(t *testing.T) {
	good, _ := json.Marshal(Message{Type: TypePasswordReset, To: "a@x.com", Data: map[string]string{"link": "l"}})
	consumer := &chanConsumer{
		bodies:  [][]byte{good, []byte("{not json"), []byte(`{"type":"bogus","to":"a@x.com"}`)},
		handled: make(chan error, 3),
	}
	m := &recordingMailer{}

	r := NewReader(consumer, m)
	require.NoError(t, r.Start(context.Background()))

	assert.NoError(t, <-consumer.handled)
	assert.Error(t, <-consumer.handled)
	assert.Error(t, <-consumer.handled)
	r.Stop()

	require.Len(t, m.sent, 1)
	assert.Equal(t, "Reset your password", m.sent[0].subject)
}

func TestReader_MailerFailure(t *testing.T) {
	r := NewReader(&chanConsumer{}, &recordingMailer{err: errors.New("smtp down")})
	body, _ := json.Marshal(Message{Type: TypeOrderFailed, To: "a@x.com"})
	assert.Error(t, r.Handle(body))
}

func TestSMTPMailer_RejectsHeaderInjection(t *testing.T) {
	m := &SMTPMailer{addr: "localhost:1", from: "noreply@kalam.test"}
	assert.Error(t, m.Send("a@x.com\r\nBcc: evil@x.com", "hi", "body"))
}
