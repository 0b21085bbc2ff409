package utils

import (
	"database/sql"
	"strings"
)

// ToNullString maps an empty string to SQL NULL.
func ToNullString(str string) sql.NullString {
	if str == "" {
		return sql.NullString{
			String: str,
			Valid:  false,
		}
	}
	return sql.NullString{
		String: str,
		Valid:  true,
	}
}

// FromNullString returns "" for SQL NULL.
func FromNullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// MaskEmail keeps the first character of the local part and the domain,
// e.g. "a***@example.com". Used in log lines.
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
