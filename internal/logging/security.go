// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package logging

import (
	"regexp"
	"strings"
)

// secretParamPattern matches credential-bearing query or form parameters.
// Moodle places wstoken in the form body and upload.php puts token in the query.
var secretParamPattern = regexp.MustCompile(`(?i)\b(wstoken|token|api_key|apikey|password|_password|access_token|sakai\.session)=([^&\s"']+)`)

// bearerPattern matches Authorization header values that leak into error strings.
var bearerPattern = regexp.MustCompile(`(?i)\b(bearer)\s+[A-Za-z0-9\-\._~\+/]+=*`)

const redacted = "[REDACTED]"

// RedactSecrets replaces credential values in URLs, form bodies and error
// strings with [REDACTED].
//
//	RedactSecrets("https://lms/upload.php?token=abc&itemid=0")
//	// "https://lms/upload.php?token=[REDACTED]&itemid=0"
func RedactSecrets(s string) string {
	if s == "" {
		return s
	}
	s = secretParamPattern.ReplaceAllString(s, "${1}="+redacted)
	return bearerPattern.ReplaceAllString(s, "${1} "+redacted)
}

// RedactValue strips every literal occurrence of secret from s.
// Secrets shorter than 4 characters are left alone to avoid mangling normal text.
func RedactValue(s, secret string) string {
	if len(secret) < 4 {
		return s
	}
	return strings.ReplaceAll(s, secret, redacted)
}

// SanitizeToken masks a token, showing only first and last 4 characters.
// Example: "0123456789abcdef0123" -> "0123...0123"
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// sensitiveKeys are parameter names whose values are never logged verbatim.
var sensitiveKeys = map[string]bool{
	"wstoken":       true,
	"token":         true,
	"access_token":  true,
	"api_key":       true,
	"apikey":        true,
	"password":      true,
	"_password":     true,
	"secret":        true,
	"authorization": true,
	"session":       true,
	"sakai.session": true,
}

// SanitizeValue sanitizes a value based on its key name.
func SanitizeValue(key, value string) string {
	if sensitiveKeys[strings.ToLower(key)] {
		return SanitizeToken(value)
	}
	return truncateString(value, 200)
}

// truncateString truncates a string to a maximum length.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
