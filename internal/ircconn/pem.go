package ircconn

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrMalformedBundle marks a client certificate file that cannot be split.
var ErrMalformedBundle = errors.New("malformed client certificate bundle")

// CertificateBundle holds the two PEM blocks of a client certificate file,
// each including its BEGIN and END lines.
type CertificateBundle struct {
	PrivateKey  string
	Certificate string
}

var pemBoundary = regexp.MustCompile(`-----(BEGIN|END) ([A-Z0-9 ]+)-----`)

type blockKind int

const (
	kindUnknown blockKind = iota
	kindKey
	kindCert
)

func classify(label string) blockKind {
	switch label {
	case "PRIVATE KEY", "RSA PRIVATE KEY", "EC PRIVATE KEY", "ENCRYPTED PRIVATE KEY":
		return kindKey
	case "CERTIFICATE":
		return kindCert
	default:
		return kindUnknown
	}
}

type openBlock struct {
	label string
	kind  blockKind
	from  int
}

// SplitPEM scans data once for the private key and certificate blocks. Only
// one block may be open at a time and each END must repeat the label of its
// BEGIN. The key must start at offset 0; a repeated or missing block is an
// error. Blocks of other types are skipped.
func SplitPEM(data []byte) (CertificateBundle, error) {
	var (
		bundle CertificateBundle
		open   *openBlock
	)

	for _, m := range pemBoundary.FindAllSubmatchIndex(data, -1) {
		marker := string(data[m[2]:m[3]])
		label := string(data[m[4]:m[5]])

		if marker == "BEGIN" {
			if open != nil {
				return CertificateBundle{}, fmt.Errorf("%w: BEGIN %s inside open %s block", ErrMalformedBundle, label, open.label)
			}
			kind := classify(label)
			if kind == kindKey && m[0] != 0 {
				return CertificateBundle{}, fmt.Errorf("%w: private key must start at offset 0, found at %d", ErrMalformedBundle, m[0])
			}
			open = &openBlock{label: label, kind: kind, from: m[0]}
			continue
		}

		if open == nil {
			return CertificateBundle{}, fmt.Errorf("%w: END %s without BEGIN", ErrMalformedBundle, label)
		}
		if label != open.label {
			return CertificateBundle{}, fmt.Errorf("%w: END %s closes BEGIN %s", ErrMalformedBundle, label, open.label)
		}
		block := string(data[open.from:m[1]])
		switch open.kind {
		case kindKey:
			if bundle.PrivateKey != "" {
				return CertificateBundle{}, fmt.Errorf("%w: duplicate %s block", ErrMalformedBundle, label)
			}
			bundle.PrivateKey = block
		case kindCert:
			if bundle.Certificate != "" {
				return CertificateBundle{}, fmt.Errorf("%w: duplicate %s block", ErrMalformedBundle, label)
			}
			bundle.Certificate = block
		}
		open = nil
	}

	if open != nil {
		return CertificateBundle{}, fmt.Errorf("%w: unterminated %s block", ErrMalformedBundle, open.label)
	}
	if bundle.PrivateKey == "" {
		return CertificateBundle{}, fmt.Errorf("%w: no private key block", ErrMalformedBundle)
	}
	if bundle.Certificate == "" {
		return CertificateBundle{}, fmt.Errorf("%w: no certificate block", ErrMalformedBundle)
	}
	return bundle, nil
}
