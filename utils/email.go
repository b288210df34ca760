package utils

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"github.com/jordan-wright/email"
)

// SendTransferMail sends a terminal-state notification for a transfer job.
func SendTransferMail(to, jobID, state, shareLink, errMsg string) error {
	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")
	user := os.Getenv("SMTP_USER")
	pass := os.Getenv("SMTP_PASS")
	from := os.Getenv("SMTP_FROM")
	if host == "" || port == "" || user == "" || pass == "" || from == "" {
		return errors.New("smtp config missing")
	}

	e := email.NewEmail()
	e.From = from
	e.To = []string{to}
	e.Subject = fmt.Sprintf("Transfer %s: %s", jobID, state)

	var body strings.Builder
	body.WriteString("<h2>Transfer " + state + "</h2>")
	body.WriteString("<p>Job ID: " + jobID + "</p>")
	if shareLink != "" {
		body.WriteString(`<p>Share link: <a href="` + shareLink + `">` + shareLink + `</a></p>`)
	}
	if errMsg != "" {
		body.WriteString("<p>Error: " + errMsg + "</p>")
	}
	e.HTML = []byte(body.String())

	addr := host + ":" + port
	auth := smtp.PlainAuth("", user, pass, host)
	tlsConfig := &tls.Config{ServerName: host}
	useTLS := strings.EqualFold(os.Getenv("SMTP_TLS"), "true") ||
		os.Getenv("SMTP_TLS") == "1" ||
		port == "465"
	useStartTLS := strings.EqualFold(os.Getenv("SMTP_STARTTLS"), "true") ||
		os.Getenv("SMTP_STARTTLS") == "1"

	if useTLS {
		return e.SendWithTLS(addr, auth, tlsConfig)
	}
	if useStartTLS {
		return e.SendWithStartTLS(addr, auth, tlsConfig)
	}
	return e.Send(addr, auth)
}
