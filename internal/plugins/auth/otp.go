package auth

import (
	"crypto/subtle"
	"time"

	"github.com/xlzd/gotp"
)

// otpSecretLength is the base32 secret length handed to authenticator apps.
const otpSecretLength = 32

// otpStep is the TOTP time step. Verify accepts the current step and one on
// either side to absorb clock drift between server and phone.
const (
	otpStep   = 30 * time.Second
	otpWindow = 1
)

// OTPVerifier checks time-based one-time passwords for the admin login.
type OTPVerifier interface {
	Verify(secret, code string) bool
	NewSecret() string
	ProvisioningURI(email, secret string) string
}

// totpVerifier implements OTPVerifier with RFC 6238 TOTP (6 digits, 30s).
type totpVerifier struct {
	issuer string
	now    func() time.Time
}

// NewTOTPVerifier creates a verifier whose provisioning URIs name issuer.
func NewTOTPVerifier(issuer string) OTPVerifier {
	return &totpVerifier{issuer: issuer, now: time.Now}
}

// Verify reports whether code matches secret within the drift window. An
// empty secret or code never verifies.
func (v *totpVerifier) Verify(secret, code string) bool {
	if secret == "" || code == "" {
		return false
	}
	totp := gotp.NewDefaultTOTP(secret)
	now := v.now()
	matched := 0
	for i := -otpWindow; i <= otpWindow; i++ {
		expected := totp.At(int(now.Add(time.Duration(i) * otpStep).Unix()))
		matched |= subtle.ConstantTimeCompare([]byte(expected), []byte(code))
	}
	return matched == 1
}

// NewSecret generates a fresh base32 TOTP secret.
func (v *totpVerifier) NewSecret() string {
	return gotp.RandomSecret(otpSecretLength)
}

// ProvisioningURI returns the otpauth:// URI for enrolling secret.
func (v *totpVerifier) ProvisioningURI(email, secret string) string {
	return gotp.NewDefaultTOTP(secret).ProvisioningUri(email, v.issuer)
}
