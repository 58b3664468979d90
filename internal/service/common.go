// Package service implements the business rules of the platform on top of
// the repositories.
package service

import (
	"strings"
	"time"
	"unicode"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"techanswers/internal/mail"
)

// MailQueue accepts messages for asynchronous delivery.
type MailQueue interface {
	Enqueue(msg mail.Message) error
}

// Actor identifies the caller of an operation. The zero value is an anonymous visitor.
type Actor struct {
	UserID       int64
	IsAdmin      bool
	IsSuperAdmin bool
}

func (a Actor) Authenticated() bool { return a.UserID > 0 }

type clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

func enqueueMail(logger *logrus.Logger, queue MailQueue, msg mail.Message, err error) {
	if err != nil {
		logger.Errorf("render mail: %v", err)
		return
	}
	if queue == nil {
		return
	}
	if err := queue.Enqueue(msg); err != nil {
		logger.WithField("to", msg.To).Warnf("enqueue mail: %v", err)
	}
}

func defaultLogger(logger *logrus.Logger) *logrus.Logger {
	if logger == nil {
		return logrus.StandardLogger()
	}
	return logger
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify lowercases s, strips diacritics and joins alphanumeric runs with '-'.
func Slugify(s string) string {
	plain, _, err := transform.String(stripMarks, s)
	if err != nil {
		plain = s
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case r == 'œ':
			b.WriteString("oe")
			dash = false
		case r == 'æ':
			b.WriteString("ae")
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func pageBounds(page, limit, defaultLimit, maxLimit int) (int, int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if page <= 0 {
		page = 1
	}
	return page, limit, (page - 1) * limit
}
