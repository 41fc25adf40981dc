package certauth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
)

// HostCertificate bundles a freshly issued leaf with its private key.
type HostCertificate struct {
	Hostname string
	Cert     *x509.Certificate
	Key      *rsa.PrivateKey
}

// IssueHost mints a leaf certificate for hostname signed by the root. The
// hostname becomes the subject common name verbatim; case folding, punycode
// and wildcard handling are the caller's concern. There are no retries: any
// failure in key generation or signing aborts the issuance.
func IssueHost(hostname string, root *RootAuthority) (*HostCertificate, error) {
	return issueHost(hostname, root, NewTemplateBuilder(nil))
}

func issueHost(hostname string, root *RootAuthority, builder *TemplateBuilder) (*HostCertificate, error) {
	key, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return nil, fmt.Errorf("generate host key: %w", err)
	}

	// The signing request never leaves the process and its signature is
	// never independently verified; it carries the subject and public key
	// through the classic issuance flow.
	csrDER, err := x509.CreateCertificateRequest(rand.Reader, &x509.CertificateRequest{
		Subject:            pkix.Name{CommonName: hostname},
		SignatureAlgorithm: x509.SHA256WithRSA,
	}, key)
	if err != nil {
		return nil, fmt.Errorf("create signing request: %w", err)
	}
	csr, err := x509.ParseCertificateRequest(csrDER)
	if err != nil {
		return nil, fmt.Errorf("parse signing request: %w", err)
	}

	template, err := builder.Build(hostname)
	if err != nil {
		return nil, err
	}

	// The issuer comes from the parent at signing time; the public key
	// travels from the request.
	der, err := x509.CreateCertificate(rand.Reader, template, root.Cert, csr.PublicKey, root.Key)
	if err != nil {
		return nil, fmt.Errorf("sign host certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parse host certificate: %w", err)
	}

	return &HostCertificate{Hostname: hostname, Cert: cert, Key: key}, nil
}
