package logger

import (
	"regexp"
	"strings"
)

// RedactPhone masks a phone number for safe logging, keeping the last four
// digits: "+15550123456" -> "***3456".
func RedactPhone(phone string) string {
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits < 4 {
		return "***"
	}
	if len(phone) <= 4 {
		return "***" + phone
	}
	return "***" + phone[len(phone)-4:]
}

// RedactEndpoint truncates a push endpoint URL to its host, dropping the
// per-device token in the path.
func RedactEndpoint(endpoint string) string {
	idx := strings.Index(endpoint, "://")
	if idx < 0 {
		return "***"
	}
	rest := endpoint[idx+3:]
	if slash := strings.Index(rest, "/"); slash >= 0 {
		return endpoint[:idx+3] + rest[:slash] + "/***"
	}
	return endpoint
}

var phoneRegex = regexp.MustCompile(`\+?[0-9][0-9 ()-]{6,}[0-9]`)

func redactPIIValue(key, val string) string {
	key = strings.ToLower(key)
	if strings.Contains(key, "phone") || strings.Contains(key, "number") {
		return RedactPhone(val)
	}
	if strings.Contains(key, "endpoint") {
		return RedactEndpoint(val)
	}
	return phoneRegex.ReplaceAllStringFunc(val, RedactPhone)
}
