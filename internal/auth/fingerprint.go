package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
)

// Fingerprint identifies a client device from the request headers and its IP.
func Fingerprint(userAgent, acceptLanguage, acceptEncoding, ip string) string {
	h := sha256.New()
	h.Write([]byte(userAgent))
	h.Write([]byte("|"))
	h.Write([]byte(acceptLanguage))
	h.Write([]byte("|"))
	h.Write([]byte(acceptEncoding))
	h.Write([]byte("|"))
	h.Write([]byte(ip))
	return hex.EncodeToString(h.Sum(nil))
}

// RequestFingerprint is Fingerprint over the headers of r.
func RequestFingerprint(r *http.Request, ip string) string {
	return Fingerprint(
		r.Header.Get("User-Agent"),
		r.Header.Get("Accept-Language"),
		r.Header.Get("Accept-Encoding"),
		ip,
	)
}
