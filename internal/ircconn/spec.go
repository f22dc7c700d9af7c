// Package ircconn builds the connection specification and opens the chat
// connection the rest of the bot talks through.
package ircconn

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/samvad-hq/outage-bot/internal/config"
	"golang.org/x/term"
)

// Spec is everything needed to connect, resolved once at startup.
type Spec struct {
	Host        string
	Port        int
	TLS         bool
	TLSInsecure bool
	Channel     string
	Nick        string
	Username    string
	Gecos       string
	Account     string
	Password    string
	Certificate *CertificateBundle
	QuitMessage string
}

// PasswordPrompter asks the operator for the account password.
type PasswordPrompter func(prompt string) (string, error)

// TerminalPrompt reads a password from stdin without echo.
func TerminalPrompt(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// BuildSpec resolves the connection spec from config. The certificate file,
// when configured, is split before anything else so a bad bundle fails
// before any prompt or dial. The password is prompted for only when an
// account is set without a password or a certificate.
func BuildSpec(cfg config.IRC, prompt PasswordPrompter) (Spec, error) {
	spec := Spec{
		Host:        strings.TrimSpace(cfg.Host),
		Port:        cfg.Port,
		TLS:         cfg.TLS,
		TLSInsecure: cfg.TLSInsecure,
		Channel:     strings.TrimSpace(cfg.Channel),
		Nick:        strings.TrimSpace(cfg.Nick),
		Username:    strings.TrimSpace(cfg.Username),
		Gecos:       cfg.Gecos,
		Account:     strings.TrimSpace(cfg.Account),
		Password:    cfg.Password,
		QuitMessage: cfg.QuitMessage,
	}

	if path := strings.TrimSpace(cfg.ClientCertFile); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Spec{}, fmt.Errorf("read client certificate: %w", err)
		}
		bundle, err := SplitPEM(raw)
		if err != nil {
			return Spec{}, fmt.Errorf("client certificate %s: %w", path, err)
		}
		if !spec.TLS {
			return Spec{}, errors.New("irc.client_cert_file requires irc.tls")
		}
		spec.Certificate = &bundle
	}

	if spec.Host == "" {
		return Spec{}, errors.New("irc.host is required")
	}
	if spec.Nick == "" {
		return Spec{}, errors.New("irc.nick is required")
	}
	if spec.Channel == "" {
		return Spec{}, errors.New("irc.channel is required")
	}
	if spec.Username == "" {
		spec.Username = spec.Nick
	}
	if spec.Gecos == "" {
		spec.Gecos = spec.Nick
	}

	if spec.Account != "" && spec.Password == "" && spec.Certificate == nil {
		if prompt == nil {
			return Spec{}, errors.New("irc.password is required for irc.account")
		}
		pw, err := prompt(fmt.Sprintf("Enter account password for %s@%s: ", spec.Account, spec.Host))
		if err != nil {
			return Spec{}, err
		}
		spec.Password = pw
	}
	return spec, nil
}

// TLSConfig returns the client TLS settings, or nil for plaintext.
func (s Spec) TLSConfig() (*tls.Config, error) {
	if !s.TLS {
		return nil, nil
	}
	cfg := &tls.Config{
		ServerName:         s.Host,
		InsecureSkipVerify: s.TLSInsecure,
		MinVersion:         tls.VersionTLS12,
	}
	if s.Certificate != nil {
		pair, err := tls.X509KeyPair([]byte(s.Certificate.Certificate), []byte(s.Certificate.PrivateKey))
		if err != nil {
			return nil, fmt.Errorf("load client key pair: %w", err)
		}
		cfg.Certificates = []tls.Certificate{pair}
	}
	return cfg, nil
}

// SASLMechanism picks EXTERNAL for certificate auth, PLAIN for an account
// password, or "" when no SASL should be attempted.
func (s Spec) SASLMechanism() string {
	switch {
	case s.Certificate != nil:
		return "EXTERNAL"
	case s.Account != "" && s.Password != "":
		return "PLAIN"
	default:
		return ""
	}
}
