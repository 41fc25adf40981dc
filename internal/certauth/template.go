// Package certauth implements the certificate authority behind the
// interception proxy: a self-signed RSA root, per-host leaf issuance, and a
// file-backed cache of PEM bundles so repeat connections to the same host
// never pay for key generation twice.
package certauth

import (
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"io"
	"math/big"
	"time"
)

// CertDuration is the validity window shared by the root and every host
// certificate: 100 years. Expiry is never checked after issuance.
const CertDuration = 100 * 365 * 24 * time.Hour

// keyBits is the RSA modulus size for the root and all host keys.
const keyBits = 2048

// serialLimit bounds serial numbers to [0, 2^64). Serials are drawn
// independently per issuance; collisions are tolerated, not prevented.
var serialLimit = new(big.Int).Lsh(big.NewInt(1), 64)

// TemplateBuilder constructs the unsigned certificate skeleton shared by the
// root and every host certificate, so both follow a single serial and
// validity policy. The random source is injectable to make serial generation
// deterministic in tests.
type TemplateBuilder struct {
	rand io.Reader
	now  func() time.Time
}

// NewTemplateBuilder returns a builder drawing serials from r, or from
// crypto/rand when r is nil.
func NewTemplateBuilder(r io.Reader) *TemplateBuilder {
	if r == nil {
		r = rand.Reader
	}
	return &TemplateBuilder{rand: r, now: time.Now}
}

// Build allocates an unsigned certificate with a random serial, the given
// common name taken verbatim, and the fixed validity window. Issuer, public
// key and signature are the caller's responsibility.
func (b *TemplateBuilder) Build(commonName string) (*x509.Certificate, error) {
	serial, err := rand.Int(b.rand, serialLimit)
	if err != nil {
		return nil, fmt.Errorf("generate serial number: %w", err)
	}

	now := b.now()
	return &x509.Certificate{
		SerialNumber:       serial,
		Subject:            pkix.Name{CommonName: commonName},
		NotBefore:          now,
		NotAfter:           now.Add(CertDuration),
		SignatureAlgorithm: x509.SHA256WithRSA,
	}, nil
}
