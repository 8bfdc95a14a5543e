package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Failure kinds reported in logs and the sender failure metric.
const (
	KindTimeout   = "timeout"
	KindCanceled  = "canceled"
	KindDNS       = "dns"
	KindDial      = "dial"
	KindTLS       = "tls"
	KindForbidden = "forbidden"
	KindFlood     = "flood"
	Kind4xx       = "http_4xx"
	Kind5xx       = "http_5xx"
	KindUnknown   = "unknown"
)

var tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// Classify maps a failed Bot API call onto a failure kind.
// Forbidden covers recipients who blocked the bot or never started it,
// which is the usual reason a broadcast entry fails.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if code := apiStatus(err); code != 0 {
		return statusKind(code)
	}

	var dnsErr *net.DNSError
	var opErr *net.OpError
	var netErr net.Error
	var alert tls.AlertError
	switch {
	case errors.As(err, &dnsErr):
		if dnsErr.IsTimeout {
			return KindTimeout
		}
		return KindDNS
	case errors.As(err, &netErr) && netErr.Timeout():
		return KindTimeout
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return KindDial
	case errors.As(err, &alert):
		return KindTLS
	}
	return KindUnknown
}

func statusKind(code int) string {
	switch {
	case code == http.StatusForbidden:
		return KindForbidden
	case code == http.StatusTooManyRequests:
		return KindFlood
	case code >= 500:
		return Kind5xx
	case code >= 400:
		return Kind4xx
	}
	return KindUnknown
}

// apiStatus extracts the Bot API status code from telebot errors, falling back
// to the "(code)" suffix telebot appends to unmapped descriptions.
func apiStatus(err error) int {
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var floodErr tele.FloodError
	if errors.As(err, &floodErr) {
		return http.StatusTooManyRequests
	}
	var groupErr tele.GroupError
	if errors.As(err, &groupErr) {
		return http.StatusBadRequest
	}

	msg := strings.TrimSpace(err.Error())
	if !strings.HasSuffix(msg, ")") {
		return 0
	}
	open := strings.LastIndexByte(msg, '(')
	if open < 0 {
		return 0
	}
	code, convErr := strconv.Atoi(msg[open+1 : len(msg)-1])
	if convErr != nil || code < 100 || code > 599 {
		return 0
	}
	return code
}

// redact strips bot tokens from error text before it reaches the logs.
func redact(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}
