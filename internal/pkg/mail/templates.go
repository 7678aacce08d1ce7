package mail

import (
	"fmt"
	"time"
)

// Mailer is the email surface consumed by the notification dispatcher.
type Mailer interface {
	SendInviteMail(to, name, inviteLink string, expiresAt time.Time, accessDays int) error
	SendRejectionMail(to, name, reason string) error
	SendExpiryWarningMail(to, name string) error
}

// SMTPMailer implements Mailer on top of SendMail.
type SMTPMailer struct{}

// NewSMTPMailer returns the production mailer.
func NewSMTPMailer() *SMTPMailer {
	return &SMTPMailer{}
}

// SendInviteMail delivers the group invite link with plan duration and expiry.
func (m *SMTPMailer) SendInviteMail(to, name, inviteLink string, expiresAt time.Time, accessDays int) error {
	subject := "Pagamento aprovado - seu acesso ao grupo"
	body := fmt.Sprintf(`
		<h2>Olá, %s!</h2>
		<p>Seu pagamento foi aprovado e seu acesso foi liberado por <strong>%d dias</strong>.</p>
		<p>Entre no grupo pelo link abaixo:</p>
		<p><a href="%s">%s</a></p>
		<p>Seu acesso é válido até <strong>%s</strong>.</p>
		<p>O link é de uso único. Se ele expirar, fale com o suporte.</p>
	`, name, accessDays, inviteLink, inviteLink, expiresAt.Format("02/01/2006"))

	return SendMail(to, subject, body)
}

// SendExpiryWarningMail tells a member their group access has lapsed. No
// invite link is included; a renewal payment produces a fresh one.
func (m *SMTPMailer) SendExpiryWarningMail(to, name string) error {
	subject := "Seu acesso ao grupo venceu"
	body := fmt.Sprintf(`
		<h2>Olá, %s</h2>
		<p>Seu acesso ao grupo venceu.</p>
		<p>Renove seu plano para voltar a participar. Assim que o pagamento for aprovado, você receberá um novo link de convite.</p>
	`, name)

	return SendMail(to, subject, body)
}

// SendRejectionMail delivers a rejection notice. No invite link is included.
func (m *SMTPMailer) SendRejectionMail(to, name, reason string) error {
	subject := "Pagamento não aprovado"
	body := fmt.Sprintf(`
		<h2>Olá, %s</h2>
		<p>Infelizmente seu pagamento não pôde ser aprovado.</p>
		<p>Motivo: <strong>%s</strong></p>
		<p>Se você acredita que isso é um engano, responda este email ou fale com o suporte.</p>
	`, name, reason)

	return SendMail(to, subject, body)
}
