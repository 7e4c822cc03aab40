package auth

import "log"

// Mailer delivers reset and verification tokens to users. Real delivery is
// handled outside this service; the default implementation only logs, which
// is also what keeps the token out of the HTTP response.
type Mailer interface {
	SendPasswordReset(email, token string)
	SendEmailVerification(email, token string)
}

// LogMailer writes would-be emails to the server log.
type LogMailer struct{}

func (LogMailer) SendPasswordReset(email, token string) {
	log.Printf("[mailer] password reset for %s token=%s", email, token)
}

func (LogMailer) SendEmailVerification(email, token string) {
	log.Printf("[mailer] email verification for %s token=%s", email, token)
}
