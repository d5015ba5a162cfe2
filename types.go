package admitme

import (
	"fmt"
	"time"
)

// Logger is the logging contract used across the package. Arguments after
// the message are key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetTokenExpiration() time.Duration
	GetContextKey() string
	GetTokenLookup() string
	GetCookieName() string
	GetStoreTimeout() time.Duration
	IsProduction() bool
	ExposeToken() bool
	UserLookupRequiresSession() bool
}

// defLogger is the fallback when no logger is wired. It drops debug output.
type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Print("[ERR] ADMITME " + format(msg, args))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Print("[WRN] ADMITME " + format(msg, args))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Print("[INF] ADMITME " + format(msg, args))
}

func (d defLogger) Debug(msg string, args ...any) {}

func format(msg string, args []any) string {
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			msg += fmt.Sprintf(" %v=%v", args[i], args[i+1])
		} else {
			msg += fmt.Sprintf(" %v", args[i])
		}
	}
	return newline(msg)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
