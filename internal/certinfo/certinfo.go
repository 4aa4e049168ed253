// Package certinfo inspects the TLS certificate a server presents,
// independently of any application-level client.
package certinfo

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"math/big"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// FallbackDays is the remaining lifetime assumed when a certificate's
// expiry cannot be determined.
const FallbackDays = 90

// Source records which strategy produced a days-remaining value.
type Source int

const (
	SourceParsed Source = iota + 1
	SourceText
	SourceFallback
)

func (s Source) String() string {
	switch s {
	case SourceParsed:
		return "parsed"
	case SourceText:
		return "text"
	case SourceFallback:
		return "fallback"
	}
	return "unknown"
}

// Info describes a server's leaf certificate.
type Info struct {
	Subject            string
	Issuer             string
	SerialNumber       string
	SignatureAlgorithm string
	NotBefore          time.Time
	NotAfter           time.Time
	DaysRemaining      int
	Valid              bool
	Source             Source
}

// Field returns a certificate attribute by case-insensitive name.
func (i *Info) Field(name string) (any, bool) {
	if i == nil {
		return nil, false
	}
	switch strings.ToLower(name) {
	case "subject":
		return i.Subject, true
	case "issuer":
		return i.Issuer, true
	case "serial", "serialnumber":
		return i.SerialNumber, true
	case "algorithm", "signaturealgorithm":
		return i.SignatureAlgorithm, true
	case "notbefore":
		if i.NotBefore.IsZero() {
			return nil, false
		}
		return i.NotBefore.UTC().Format(time.RFC3339), true
	case "notafter":
		if i.NotAfter.IsZero() {
			return nil, false
		}
		return i.NotAfter.UTC().Format(time.RFC3339), true
	case "daysremaining", "expiresindays":
		return int64(i.DaysRemaining), true
	case "valid", "isvalid":
		return i.Valid, true
	}
	return nil, false
}

// Inspector performs raw TLS handshakes to read peer certificates.
type Inspector struct {
	dialer *net.Dialer
	now    func() time.Time
}

// NewInspector creates an inspector. Connection setup is bounded by the
// caller's context.
func NewInspector() *Inspector {
	return &Inspector{
		dialer: &net.Dialer{},
		now:    time.Now,
	}
}

// Inspect handshakes with host:port and describes the leaf certificate.
// Verification is disabled so expired or self-signed certificates can
// still be reported.
func (in *Inspector) Inspect(ctx context.Context, host string, port int) (*Info, error) {
	d := tls.Dialer{
		NetDialer: in.dialer,
		Config: &tls.Config{
			ServerName:         host,
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: true, //nolint:gosec // G402: inspection must read invalid certificates too
		},
	}

	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("tls handshake %s:%d: %w", host, port, err)
	}
	defer conn.Close()

	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		return nil, errors.New("unexpected connection type")
	}
	certs := tlsConn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return nil, fmt.Errorf("tls handshake %s:%d: no peer certificate", host, port)
	}

	return Describe(certs[0], in.now()), nil
}

// Describe builds an Info for cert as seen at now.
func Describe(cert *x509.Certificate, now time.Time) *Info {
	days, valid, src := Expiry(cert.Raw, now)
	return &Info{
		Subject:            cert.Subject.String(),
		Issuer:             cert.Issuer.String(),
		SerialNumber:       formatSerial(cert.SerialNumber),
		SignatureAlgorithm: cert.SignatureAlgorithm.String(),
		NotBefore:          cert.NotBefore,
		NotAfter:           cert.NotAfter,
		DaysRemaining:      days,
		Valid:              valid,
		Source:             src,
	}
}

// Expiry computes whole days until the certificate in der expires.
// Strategies, in order: the parsed NotAfter time; the notAfter text read
// straight from the DER validity field, compared as UTC dates; a fixed
// FallbackDays assumption. Positive means the certificate is still valid.
func Expiry(der []byte, now time.Time) (days int, valid bool, src Source) {
	if cert, err := x509.ParseCertificate(der); err == nil && !cert.NotAfter.IsZero() {
		days = int(cert.NotAfter.Sub(now) / (24 * time.Hour))
		return days, days > 0, SourceParsed
	}

	if notAfter, err := rawNotAfter(der); err == nil {
		days = int(utcDate(notAfter).Sub(utcDate(now)) / (24 * time.Hour))
		return days, days > 0, SourceText
	}

	return FallbackDays, true, SourceFallback
}

func utcDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Layouts for the two ASN.1 time encodings allowed in a validity period.
const (
	utcTimeLayout         = "060102150405Z0700"
	generalizedTimeLayout = "20060102150405Z0700"
)

// rawNotAfter walks Certificate -> TBSCertificate -> Validity and parses
// the notAfter field as text. It tolerates certificates that the x509
// package rejects for reasons unrelated to the validity period.
func rawNotAfter(der []byte) (time.Time, error) {
	input := cryptobyte.String(der)
	var cert, tbs, validity cryptobyte.String
	if !input.ReadASN1(&cert, cbasn1.SEQUENCE) ||
		!cert.ReadASN1(&tbs, cbasn1.SEQUENCE) ||
		!tbs.SkipOptionalASN1(cbasn1.Tag(0).Constructed().ContextSpecific()) ||
		!tbs.SkipASN1(cbasn1.INTEGER) ||
		!tbs.SkipASN1(cbasn1.SEQUENCE) ||
		!tbs.SkipASN1(cbasn1.SEQUENCE) ||
		!tbs.ReadASN1(&validity, cbasn1.SEQUENCE) {
		return time.Time{}, errors.New("malformed certificate structure")
	}

	var notBefore, notAfter cryptobyte.String
	var beforeTag, afterTag cbasn1.Tag
	if !validity.ReadAnyASN1(&notBefore, &beforeTag) || !validity.ReadAnyASN1(&notAfter, &afterTag) {
		return time.Time{}, errors.New("malformed validity")
	}

	text := string(notAfter)
	switch afterTag {
	case cbasn1.UTCTime:
		t, err := time.Parse(utcTimeLayout, text)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse notAfter %q: %w", text, err)
		}
		// RFC 5280: two-digit years 50-99 are 19xx. Go maps 69-99 to 19xx
		// and 00-68 to 20xx.
		if t.Year() >= 2050 {
			t = t.AddDate(-100, 0, 0)
		}
		return t, nil
	case cbasn1.GeneralizedTime:
		t, err := time.Parse(generalizedTimeLayout, text)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse notAfter %q: %w", text, err)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unsupported notAfter tag %d", afterTag)
}

func formatSerial(n *big.Int) string {
	if n == nil {
		return ""
	}
	return strings.ToUpper(n.Text(16))
}
