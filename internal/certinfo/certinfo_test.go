package certinfo

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"strconv"
	"testing"
	"time"
)

func newTestCert(t *testing.T, notAfter time.Time) (tls.Certificate, *x509.Certificate) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(0xBEEF),
		Subject:      pkix.Name{CommonName: "uptimewatch.test"},
		NotBefore:    notAfter.Add(-365 * 24 * time.Hour),
		NotAfter:     notAfter,
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse certificate: %v", err)
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}, cert
}

func startTLSListener(t *testing.T, cert tls.Certificate) (string, int) {
	t.Helper()
	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.(*tls.Conn).Handshake()
			conn.Close()
		}
	}()

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return host, port
}

func TestExpiry_Parsed(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	_, cert := newTestCert(t, now.Add(30*24*time.Hour+time.Hour))

	days, valid, src := Expiry(cert.Raw, now)
	if src != SourceParsed {
		t.Errorf("source = %v, want %v", src, SourceParsed)
	}
	if days != 30 {
		t.Errorf("days = %d, want 30", days)
	}
	if !valid {
		t.Error("valid = false, want true")
	}
}

func TestExpiry_Expired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	_, cert := newTestCert(t, now.Add(-48*time.Hour))

	days, valid, _ := Expiry(cert.Raw, now)
	if days != -2 {
		t.Errorf("days = %d, want -2", days)
	}
	if valid {
		t.Error("valid = true, want false for expired certificate")
	}
}

func TestExpiry_ExpiresToday(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	_, cert := newTestCert(t, now.Add(6*time.Hour))

	days, valid, _ := Expiry(cert.Raw, now)
	if days != 0 {
		t.Errorf("days = %d, want 0", days)
	}
	if valid {
		t.Error("valid = true, want false when less than a day remains")
	}
}

func TestExpiry_TextFallback(t *testing.T) {
	now := time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC)
	_, cert := newTestCert(t, time.Date(2025, 6, 11, 1, 0, 0, 0, time.UTC))

	// Trailing bytes make x509 reject the DER while the validity field
	// is still readable.
	der := append(append([]byte{}, cert.Raw...), 0x00)
	if _, err := x509.ParseCertificate(der); err == nil {
		t.Fatal("expected x509 to reject DER with trailing data")
	}

	days, valid, src := Expiry(der, now)
	if src != SourceText {
		t.Errorf("source = %v, want %v", src, SourceText)
	}
	// Compared as UTC dates: June 1 -> June 11.
	if days != 10 {
		t.Errorf("days = %d, want 10", days)
	}
	if !valid {
		t.Error("valid = false, want true")
	}
}

func TestExpiry_Unparseable(t *testing.T) {
	days, valid, src := Expiry([]byte("definitely not DER"), time.Now())
	if src != SourceFallback {
		t.Errorf("source = %v, want %v", src, SourceFallback)
	}
	if days != FallbackDays || !valid {
		t.Errorf("Expiry() = (%d, %v), want (%d, true)", days, valid, FallbackDays)
	}
}

func TestRawNotAfter_MatchesParsed(t *testing.T) {
	tests := []struct {
		name     string
		notAfter time.Time
	}{
		{"utc time", time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"generalized time", time.Date(2055, 7, 8, 9, 10, 11, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, cert := newTestCert(t, tt.notAfter)
			got, err := rawNotAfter(cert.Raw)
			if err != nil {
				t.Fatalf("rawNotAfter: %v", err)
			}
			if !got.Equal(tt.notAfter) {
				t.Errorf("rawNotAfter = %v, want %v", got, tt.notAfter)
			}
		})
	}
}

func TestInspector_Inspect(t *testing.T) {
	now := time.Now()
	tlsCert, _ := newTestCert(t, now.Add(45*24*time.Hour+time.Hour))
	host, port := startTLSListener(t, tlsCert)

	in := NewInspector()
	in.now = func() time.Time { return now }

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	info, err := in.Inspect(ctx, host, port)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if info.DaysRemaining != 45 {
		t.Errorf("DaysRemaining = %d, want 45", info.DaysRemaining)
	}
	if !info.Valid {
		t.Error("Valid = false, want true")
	}
	if info.Subject != "CN=uptimewatch.test" {
		t.Errorf("Subject = %q, want %q", info.Subject, "CN=uptimewatch.test")
	}
	if info.SerialNumber != "BEEF" {
		t.Errorf("SerialNumber = %q, want %q", info.SerialNumber, "BEEF")
	}
	if info.SignatureAlgorithm != "ECDSA-SHA256" {
		t.Errorf("SignatureAlgorithm = %q, want ECDSA-SHA256", info.SignatureAlgorithm)
	}
}

func TestInspector_HandshakeFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	info, err := NewInspector().Inspect(ctx, "127.0.0.1", port)
	if err == nil {
		t.Fatal("Inspect() error = nil, want error for closed port")
	}
	if info != nil {
		t.Errorf("Inspect() info = %+v, want nil", info)
	}
}

func TestInfo_Field(t *testing.T) {
	info := &Info{
		Subject:       "CN=a",
		Issuer:        "CN=b",
		SerialNumber:  "01",
		NotAfter:      time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		DaysRemaining: 12,
		Valid:         true,
	}

	tests := []struct {
		field string
		want  any
		ok    bool
	}{
		{"Subject", "CN=a", true},
		{"issuer", "CN=b", true},
		{"serialNumber", "01", true},
		{"notAfter", "2030-01-01T00:00:00Z", true},
		{"notBefore", nil, false},
		{"daysRemaining", int64(12), true},
		{"valid", true, true},
		{"colour", nil, false},
	}
	for _, tt := range tests {
		got, ok := info.Field(tt.field)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Field(%q) = (%v, %v), want (%v, %v)", tt.field, got, ok, tt.want, tt.ok)
		}
	}

	var nilInfo *Info
	if _, ok := nilInfo.Field("subject"); ok {
		t.Error("nil Info Field() ok = true, want false")
	}
}
