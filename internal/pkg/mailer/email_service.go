package mailer

import (
	"fmt"
	"html"

	"conflict-resolution-be/internal/pkg/logger"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendInvitation(toEmail, inviterEmail, conflictTitle, link string) error
	SendInterviewCompleted(toEmail, conflictTitle, completionMessage, link string) error
}

// Sender delivers a composed message. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type emailService struct {
	sender      Sender
	senderEmail string
	senderName  string
	logger      logger.ILogger
}

func NewEmailService(host string, port int, username, password, senderEmail, senderName string, log logger.ILogger) IEmailService {
	return NewEmailServiceWithSender(gomail.NewDialer(host, port, username, password), senderEmail, senderName, log)
}

func NewEmailServiceWithSender(sender Sender, senderEmail, senderName string, log logger.ILogger) IEmailService {
	return &emailService{
		sender:      sender,
		senderEmail: senderEmail,
		senderName:  senderName,
		logger:      log,
	}
}

func (s *emailService) newMessage(toEmail, subject, body string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)
	return m
}

func (s *emailService) send(kind, toEmail string, m *gomail.Message) error {
	if err := s.sender.DialAndSend(m); err != nil {
		s.logger.Error("MAILER", "Failed to send email", map[string]interface{}{
			"kind":  kind,
			"to":    toEmail,
			"error": err.Error(),
		})
		return err
	}
	s.logger.Info("MAILER", "Email sent", map[string]interface{}{"kind": kind, "to": toEmail})
	return nil
}

func (s *emailService) SendInvitation(toEmail, inviterEmail, conflictTitle, link string) error {
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>You have been invited to resolve a conflict</h2>
			<p>%s invited you to share your perspective on <strong>%s</strong>.</p>
			<a href="%s" style="background-color: #007BFF; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">Join the conversation</a>
			<p>Or copy this link:</p>
			<p>%s</p>
		</div>
	`, html.EscapeString(inviterEmail), html.EscapeString(conflictTitle), link, link)

	return s.send("invitation", toEmail, s.newMessage(toEmail, "Invitation: "+conflictTitle, body))
}

func (s *emailService) SendInterviewCompleted(toEmail, conflictTitle, completionMessage, link string) error {
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Your interview is complete</h2>
			<p>The interview for <strong>%s</strong> has finished.</p>
			<blockquote style="border-left: 4px solid #4CAF50; padding-left: 12px;">%s</blockquote>
			<p><a href="%s">Continue to the analysis</a></p>
		</div>
	`, html.EscapeString(conflictTitle), html.EscapeString(completionMessage), link)

	return s.send("interview_completed", toEmail, s.newMessage(toEmail, "Interview complete: "+conflictTitle, body))
}
