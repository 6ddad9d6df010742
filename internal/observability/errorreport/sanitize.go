package errorreport

import (
	"regexp"

	"github.com/getsentry/sentry-go"
)

var (
	// Slack webhook secrets follow the team and bot ids.
	slackWebhookPattern = regexp.MustCompile(`(hooks\.slack\.com/services/[A-Z0-9]+/[A-Z0-9]+/)[A-Za-z0-9]+`)

	// Service-account keys can surface in JSON decode errors.
	privateKeyPattern = regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----[^-]*-----END [A-Z ]*PRIVATE KEY-----`)

	bearerPattern = regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9._~+/-]+=*`)

	// userinfo in URLs (DSNs, proxies)
	userinfoPattern = regexp.MustCompile(`://([^:/@\s]+):([^@\s]+)@`)
)

// SanitizeError returns the error message with secrets masked.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return Sanitize(err.Error())
}

// Sanitize masks webhook secrets, private keys, bearer tokens and URL
// passwords in msg.
func Sanitize(msg string) string {
	msg = slackWebhookPattern.ReplaceAllString(msg, "${1}****")
	msg = privateKeyPattern.ReplaceAllString(msg, "****PRIVATE KEY****")
	msg = bearerPattern.ReplaceAllString(msg, "${1}****")
	msg = userinfoPattern.ReplaceAllString(msg, "://$1:****@")
	return msg
}

// scrubEvent masks the message and exception values of an event.
func scrubEvent(event *sentry.Event) *sentry.Event {
	if event == nil {
		return nil
	}
	event.Message = Sanitize(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = Sanitize(event.Exception[i].Value)
	}
	return event
}
