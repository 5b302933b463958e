package services

import (
	"fmt"
	"log"
	"net/smtp"
	"os"
	"strings"
)

// MailService sends notification mails for claim lifecycle events. It is
// disabled (all sends become no-ops) when the SMTP environment variables are
// not fully configured.
type MailService struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	Enabled  bool
}

func NewMailService() *MailService {
	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")
	user := os.Getenv("SMTP_USER")
	pass := os.Getenv("SMTP_PASS")
	from := os.Getenv("SMTP_FROM")

	enabled := host != "" && port != "" && user != "" && pass != "" && from != ""
	if !enabled {
		log.Println("MailService disabled: missing SMTP environment variables")
	}

	return &MailService{
		Host:     host,
		Port:     port,
		Username: user,
		Password: pass,
		From:     from,
		Enabled:  enabled,
	}
}

func (s *MailService) sendAsync(to []string, subject string, body string) {
	if !s.Enabled {
		return
	}

	go func() {
		auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
		addr := fmt.Sprintf("%s:%s", s.Host, s.Port)

		mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
		msg := []byte(fmt.Sprintf("To: %s\r\n"+
			"From: Campus Lost & Found <%s>\r\n"+
			"Subject: %s\r\n"+
			"%s\r\n%s", strings.Join(to, ","), s.From, subject, mime, body))

		if err := smtp.SendMail(addr, auth, s.From, to, msg); err != nil {
			log.Printf("Failed to send mail %q to %v: %v", subject, to, err)
		}
	}()
}

// SendClaimReceived notifies an item owner that someone claimed their listing.
func (s *MailService) SendClaimReceived(ownerEmail, itemTitle, claimerName, itemLink string) {
	subject := fmt.Sprintf("New claim on your listing: %s", itemTitle)
	body := fmt.Sprintf(
		`<p>%s submitted a claim on your listing <a href="%s">%s</a>.</p>
<p>An administrator will review it shortly.</p>`,
		claimerName, itemLink, itemTitle)
	s.sendAsync([]string{ownerEmail}, subject, body)
}

// SendClaimDecision notifies a claimer that their claim was approved or rejected.
func (s *MailService) SendClaimDecision(claimerEmail, itemTitle string, approved bool, itemLink string) {
	decision := "rejected"
	if approved {
		decision = "approved"
	}
	subject := fmt.Sprintf("Your claim on %q was %s", itemTitle, decision)
	body := fmt.Sprintf(
		`<p>Your claim on <a href="%s">%s</a> was %s.</p>`,
		itemLink, itemTitle, decision)
	s.sendAsync([]string{claimerEmail}, subject, body)
}
