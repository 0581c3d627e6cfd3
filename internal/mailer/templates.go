package mailer

import (
	"fmt"
	"html"
)

// MagicLink builds the sign-in email.
func MagicLink(to, link string) Message {
	return Message{
		To:      to,
		Subject: "Your Sanctuari sign-in link",
		Text:    fmt.Sprintf("Use this link to sign in:\n\n%s\n\nIf you didn't request this, ignore this email.", link),
		HTML: fmt.Sprintf(`<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
<h2>Sign in to Sanctuari</h2>
<p><a href="%s">Click here to sign in</a></p>
<p>If you didn't request this, ignore this email.</p>
</div>`, html.EscapeString(link)),
	}
}

// Invitation builds the email sent to an RFQ recipient.
func Invitation(to, recipientName, companyName, rfqNumber, link string) Message {
	greeting := "Hello"
	if recipientName != "" {
		greeting = "Hello " + recipientName
	}
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Request for quotation %s from %s", rfqNumber, companyName),
		Text: fmt.Sprintf("%s,\n\n%s has invited you to quote on %s.\n\nView the request: %s\n",
			greeting, companyName, rfqNumber, link),
		HTML: fmt.Sprintf(`<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
<p>%s,</p>
<p><strong>%s</strong> has invited you to quote on <strong>%s</strong>.</p>
<p><a href="%s">View the request</a></p>
</div>`, html.EscapeString(greeting), html.EscapeString(companyName), html.EscapeString(rfqNumber), html.EscapeString(link)),
	}
}

// Broadcast builds the email that relays a client message to a recipient.
func Broadcast(to, companyName, rfqNumber, message string) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Update on %s from %s", rfqNumber, companyName),
		Text:    message,
		HTML:    fmt.Sprintf("<p>%s</p>", html.EscapeString(message)),
	}
}
