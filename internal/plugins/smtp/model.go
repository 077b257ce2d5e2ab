// Package smtp sends outbound email, currently the password reset mail.
// Settings come from the environment at startup; nothing is stored in the
// database.
package smtp

import (
	"fmt"
	"strings"
	"time"
)

// Encryption modes.
const (
	EncryptionStartTLS = "starttls"
	EncryptionSSL      = "ssl"
	EncryptionNone     = "none"
)

// dialTimeout bounds connecting to the mail server.
const dialTimeout = 10 * time.Second

// Settings holds the SMTP server and sender identity.
type Settings struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
	Encryption  string // "starttls", "ssl", or "none".
}

// addr returns host:port.
func (s Settings) addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// headerSafe drops CR and LF so user-influenced values cannot inject
// headers.
var headerSafe = strings.NewReplacer("\r", "", "\n", "")
