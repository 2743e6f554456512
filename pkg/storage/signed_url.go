package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrTokenMalformed = errors.New("download token malformed")
	ErrTokenSignature = errors.New("download token signature mismatch")
	ErrTokenExpired   = errors.New("download token expired")
)

// DownloadToken identifies a stored export file for a limited time.
type DownloadToken struct {
	ExportID  string
	Path      string
	ExpiresAt time.Time
}

// SignedURLSigner issues HMAC-SHA256 signed download tokens of the form
// base64(exportID).unix.base64(path).base64(mac).
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign returns a token for exportID/path valid for the signer TTL.
func (s *SignedURLSigner) Sign(exportID, path string) (string, DownloadToken, error) {
	if exportID == "" || path == "" {
		return "", DownloadToken{}, ErrTokenMalformed
	}
	if len(s.secret) == 0 {
		return "", DownloadToken{}, errors.New("signing secret missing")
	}
	tok := DownloadToken{ExportID: exportID, Path: path, ExpiresAt: s.now().Add(s.ttl).Truncate(time.Second)}
	enc := base64.RawURLEncoding
	body := strings.Join([]string{
		enc.EncodeToString([]byte(exportID)),
		strconv.FormatInt(tok.ExpiresAt.Unix(), 10),
		enc.EncodeToString([]byte(path)),
	}, ".")
	return body + "." + enc.EncodeToString(s.mac(body)), tok, nil
}

// Verify checks the signature and, unless allowExpired, the expiry.
func (s *SignedURLSigner) Verify(token string, allowExpired bool) (DownloadToken, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return DownloadToken{}, ErrTokenMalformed
	}
	enc := base64.RawURLEncoding
	sig, err := enc.DecodeString(parts[3])
	if err != nil {
		return DownloadToken{}, ErrTokenMalformed
	}
	body := strings.Join(parts[:3], ".")
	if !hmac.Equal(sig, s.mac(body)) {
		return DownloadToken{}, ErrTokenSignature
	}

	id, err := enc.DecodeString(parts[0])
	if err != nil {
		return DownloadToken{}, ErrTokenMalformed
	}
	exp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return DownloadToken{}, ErrTokenMalformed
	}
	path, err := enc.DecodeString(parts[2])
	if err != nil {
		return DownloadToken{}, ErrTokenMalformed
	}

	tok := DownloadToken{ExportID: string(id), Path: string(path), ExpiresAt: time.Unix(exp, 0)}
	if !allowExpired && s.now().After(tok.ExpiresAt) {
		return tok, ErrTokenExpired
	}
	return tok, nil
}

func (s *SignedURLSigner) mac(body string) []byte {
	m := hmac.New(sha256.New, s.secret)
	_, _ = m.Write([]byte(body))
	return m.Sum(nil)
}
