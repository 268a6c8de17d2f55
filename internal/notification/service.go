package notification

import (
	"fmt"
	"os"

	"GrievancePortal/internal/config"
)

// Service composes the outbound emails of the portal and hands them to
// the configured transport. Delivery failure is reported to the caller;
// nothing is queued or retried.
type Service struct {
	mailer config.Mailer
}

func NewService(mailer config.Mailer) *Service {
	return &Service{mailer: mailer}
}

func frontendURL() string {
	url := os.Getenv("FRONTEND_URL")
	if url == "" {
		url = "http://localhost:3000"
	}
	return url
}

func (s *Service) SendOTP(to, code string) error {
	subject := "Grievance Portal - OTP Verification"
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
			<h2>OTP Verification</h2>
			<p>Your One-Time Password (OTP) for verification is:</p>
			<div style="background-color: #f5f5f5; padding: 10px; text-align: center; font-size: 24px; font-weight: bold; letter-spacing: 5px;">%s</div>
			<p>This OTP will expire in 10 minutes.</p>
			<p>If you didn't request this OTP, please ignore this email.</p>
		</div>`, code)
	return s.mailer.Send(to, subject, body)
}

func (s *Service) SendVerificationEmail(to, token string) error {
	subject := "Grievance Portal - Email Verification"
	link := fmt.Sprintf("%s/api/auth/verify-email/%s", backendURL(), token)
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
			<h2>Email Verification</h2>
			<p>Click the link below to verify your email address. The link is valid for 24 hours.</p>
			<p style="text-align: center;"><a href="%s">Verify Email</a></p>
		</div>`, link)
	return s.mailer.Send(to, subject, body)
}

func backendURL() string {
	url := os.Getenv("BACKEND_URL")
	if url == "" {
		url = "http://localhost:8080"
	}
	return url
}

// statusMessage phrases a status for the notification body.
func statusMessage(status string) string {
	switch status {
	case "pending":
		return "received and is pending review"
	case "in-progress":
		return "assigned and is in progress"
	case "resolved":
		return "resolved successfully"
	case "rejected":
		return "reviewed and cannot be processed"
	default:
		return "updated"
	}
}

func (s *Service) SendStatusUpdate(to, trackingID, subject, status string) error {
	mailSubject := fmt.Sprintf("Grievance Portal - Status Update for Grievance %s", trackingID)
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
			<h2>Grievance Status Update</h2>
			<p>Your grievance <strong>%s</strong> (%s) has been %s.</p>
			<p style="text-align: center;">
				<a href="%s/track-grievance?id=%s">Track Your Grievance</a>
			</p>
			<p>If you have any questions, please reply to this email.</p>
		</div>`, trackingID, subject, statusMessage(status), frontendURL(), trackingID)
	return s.mailer.Send(to, mailSubject, body)
}

func (s *Service) SendReminder(to, trackingID, message string) error {
	mailSubject := fmt.Sprintf("Grievance Portal - Reminder for Grievance %s", trackingID)
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
			<h2>Grievance Reminder</h2>
			<p>This is a reminder that grievance <strong>%s</strong> is still open.</p>
			<p>%s</p>
			<p style="text-align: center;">
				<a href="%s/track-grievance?id=%s">Track Your Grievance</a>
			</p>
		</div>`, trackingID, message, frontendURL(), trackingID)
	return s.mailer.Send(to, mailSubject, body)
}
