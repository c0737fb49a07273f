// Package otp implements the phone verification step.
package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"math/big"
	"regexp"

	"bharatkyc/internal/kyc/models"
	dErrors "bharatkyc/pkg/domain-errors"
)

var phonePattern = regexp.MustCompile(`^[0-9]{10}$`)

const (
	codeMin = 100000
	codeMax = 999999
)

// Generator produces one-time codes.
type Generator interface {
	Generate() (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func() (string, error)

func (f GeneratorFunc) Generate() (string, error) { return f() }

// CryptoGenerator draws codes uniformly from 100000..999999 using crypto/rand.
type CryptoGenerator struct{}

func (CryptoGenerator) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", err
	}
	return big.NewInt(0).Add(n, big.NewInt(codeMin)).String(), nil
}

// HashCode returns the hex SHA-256 of a code.
func HashCode(code string) string {
	h := sha256.Sum256([]byte(code))
	return hex.EncodeToString(h[:])
}

// CodeEqual compares a provided code against a stored hash in constant time.
func CodeEqual(provided, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashCode(provided)), []byte(storedHash)) == 1
}

// ValidatePhone checks for exactly ten ASCII digits.
func ValidatePhone(phone string) error {
	if !phonePattern.MatchString(phone) {
		return models.NewNoticeError(dErrors.CodeValidation, "phone must be 10 digits",
			"otp.invalidPhone", "", nil)
	}
	return nil
}

// Session is the step's state: the phone it was sent to and the hash of the
// expected code. Not safe for concurrent use.
type Session struct {
	phone    string
	codeHash string
	verified bool
}

// NewSession mounts the step with nothing sent.
func NewSession() *Session {
	return &Session{}
}

// Issued is a generated code that has not replaced the expected one yet.
type Issued struct {
	Phone string
	Code  string
}

// Issue validates the phone and generates a fresh code. The session keeps
// expecting the previous code until Commit, so a failed delivery does not
// invalidate a code the user already has.
func (s *Session) Issue(phone string, gen Generator) (Issued, error) {
	if err := ValidatePhone(phone); err != nil {
		return Issued{}, err
	}
	code, err := gen.Generate()
	if err != nil {
		return Issued{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate otp")
	}
	return Issued{Phone: phone, Code: code}, nil
}

// Commit makes a delivered code the expected one, replacing any previous code.
func (s *Session) Commit(issued Issued) {
	s.phone = issued.Phone
	s.codeHash = HashCode(issued.Code)
	s.verified = false
}

// Verify compares code with the expected one. There is no attempt limit and
// no expiry.
func (s *Session) Verify(code string) error {
	if s.codeHash == "" || !CodeEqual(code, s.codeHash) {
		return models.NewNoticeError(dErrors.CodeValidation, "invalid otp",
			"otp.invalidOtp", "", nil)
	}
	s.verified = true
	return nil
}

// Sent reports whether a code has been issued.
func (s *Session) Sent() bool { return s.codeHash != "" }

// Verified reports whether the last issued code was confirmed.
func (s *Session) Verified() bool { return s.verified }

// Phone is the number the last code was issued for.
func (s *Session) Phone() string { return s.phone }

// MaskPhone keeps the last four digits.
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	masked := make([]byte, len(phone))
	for i := range phone {
		if i < len(phone)-4 {
			masked[i] = 'X'
		} else {
			masked[i] = phone[i]
		}
	}
	return string(masked)
}
