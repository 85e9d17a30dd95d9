package logger

import "strings"

// RedactEmail masks an email address for safe logging.
// "john.doe@example.com" → "jo***@example.com"
// Short local parts (≤2 chars) are fully masked: "ab@example.com" → "***@example.com"
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	name := parts[0]
	if len(name) > 2 {
		return name[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}

// RedactPhone masks a phone number, keeping only the last two digits.
// "+15551234567" → "**********67"
func RedactPhone(phone string) string {
	if len(phone) <= 2 {
		return "**"
	}
	return strings.Repeat("*", len(phone)-2) + phone[len(phone)-2:]
}

// RedactRecipient masks a recipient address of unknown kind. Anything with
// an "@" is treated as an email, everything else as a phone number.
func RedactRecipient(addr string) string {
	if strings.Contains(addr, "@") {
		return RedactEmail(addr)
	}
	return RedactPhone(addr)
}
