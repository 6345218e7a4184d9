package mail

import (
	"fmt"
	"html"
	"time"
)

const brand = "Campus Gate"

func PassIssuedMessage(to, name, deviceName, pin string, expiresAt *time.Time, qrPNG, pdf []byte) Message {
	expiry := "until it is used"
	if expiresAt != nil {
		expiry = "until " + expiresAt.Format("02 Jan 2006 15:04")
	}

	body := fmt.Sprintf(`
		<h2>Your gate pass is ready</h2>
		<p>Hello %s,</p>
		<p>A gate pass was issued for <strong>%s</strong>.</p>
		<p>PIN: <strong style="font-size:20px;letter-spacing:4px">%s</strong></p>
		<p>The pass is valid %s and can be used once. The QR code and a printable pass are attached.</p>
		<p>If you did not request this pass, contact campus security.</p>
		<p>%s</p>
	`, html.EscapeString(name), html.EscapeString(deviceName), pin, expiry, brand)

	msg := Message{
		To:       to,
		Subject:  brand + ": gate pass for " + deviceName,
		HTMLBody: body,
	}
	if len(qrPNG) > 0 {
		msg.Attachments = append(msg.Attachments, Attachment{Filename: "gate-pass-qr.png", ContentType: "image/png", Data: qrPNG})
	}
	if len(pdf) > 0 {
		msg.Attachments = append(msg.Attachments, Attachment{Filename: "gate-pass.pdf", ContentType: "application/pdf", Data: pdf})
	}
	return msg
}

func AlertMessage(to, text string) Message {
	return Message{
		To:      to,
		Subject: brand + " Alert",
		HTMLBody: fmt.Sprintf(`
		<h3>Device movement detected</h3>
		<p>%s</p>
		<p>%s</p>
	`, html.EscapeString(text), brand),
	}
}
