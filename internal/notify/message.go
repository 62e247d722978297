// Package notify carries user-facing notifications from the request path to
// the mailer, through RabbitMQ when configured and directly otherwise.
package notify

import (
	"context"
	"fmt"
	"strings"
)

const (
	TypeRegistrationConfirmed = "registration_confirmed"
	TypePasswordReset         = "password_reset"
	TypeOrderFailed           = "order_failed"
)

type Message struct {
	Type string            `json:"type"`
	To   string            `json:"to"`
	Name string            `json:"name"`
	Data map[string]string `json:"data,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Render turns a message into a mail subject and plain-text body.
func Render(msg Message) (string, string, error) {
	greeting := "Hello"
	if msg.Name != "" {
		greeting = "Hello " + msg.Name
	}

	switch msg.Type {
	case TypeRegistrationConfirmed:
		var b strings.Builder
		fmt.Fprintf(&b, "%s,\n\nYour payment was received and your registrations are confirmed:\n", greeting)
		for _, name := range strings.Split(msg.Data["events"], "\n") {
			if name != "" {
				fmt.Fprintf(&b, "  - %s\n", name)
			}
		}
		fmt.Fprintf(&b, "\nOrder: %s\nAmount paid: Rs. %s\n\nShow the QR ticket from your dashboard at the venue.\n",
			msg.Data["orderId"], msg.Data["amount"])
		return "Registration confirmed", b.String(), nil

	case TypePasswordReset:
		body := fmt.Sprintf("%s,\n\nUse the link below to reset your password. It expires in %s.\n\n%s\n\n"+
			"If you did not ask for this, ignore this mail.\n", greeting, msg.Data["expiresIn"], msg.Data["link"])
		return "Reset your password", body, nil

	case TypeOrderFailed:
		body := fmt.Sprintf("%s,\n\nThe payment for order %s did not go through. "+
			"The events are back in your cart so you can try again.\n", greeting, msg.Data["orderId"])
		return "Payment failed", body, nil
	}

	return "", "", fmt.Errorf("unknown notification type %q", msg.Type)
}
