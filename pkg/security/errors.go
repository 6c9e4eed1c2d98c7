package security

import (
	"strings"
)

// User-facing messages produced by ToUserMessage.
const (
	MsgInvalidCredentials = "Incorrect email or password"
	MsgEmailInUse         = "This email is already registered"
	MsgWeakPassword       = "Password is too weak, use a stronger one"
	MsgInvalidEmail       = "Invalid email"
	MsgTooManyRequests    = "Too many attempts, try again later"
	MsgPermissionDenied   = "You do not have permission to perform this action"
	MsgNetwork            = "Connection error, check your internet"
	MsgGeneric            = "Something went wrong, try again"
)

// errorRules is checked in order; the first rule with a matching substring wins.
var errorRules = []struct {
	needles []string
	message string
}{
	{[]string{"auth/user-not-found", "auth/wrong-password", "auth/invalid-credential",
		"email_not_found", "invalid_password", "invalid_login_credentials"}, MsgInvalidCredentials},
	{[]string{"auth/email-already-in-use", "email_exists"}, MsgEmailInUse},
	{[]string{"auth/weak-password", "weak_password"}, MsgWeakPassword},
	{[]string{"auth/invalid-email", "invalid_email"}, MsgInvalidEmail},
	{[]string{"auth/too-many-requests", "too_many_attempts_try_later", "rate limited"}, MsgTooManyRequests},
	{[]string{"permission-denied", "permission_denied"}, MsgPermissionDenied},
	{[]string{"network"}, MsgNetwork},
}

// ToUserMessage maps err to one fixed, non-technical sentence. Nothing from the
// error text is ever copied into the result. A nil error yields "".
func ToUserMessage(err error) string {
	if err == nil {
		return ""
	}

	msg := strings.ToLower(err.Error())
	for _, rule := range errorRules {
		for _, needle := range rule.needles {
			if strings.Contains(msg, needle) {
				return rule.message
			}
		}
	}

	return MsgGeneric
}
