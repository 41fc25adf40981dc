package certauth

import (
	"bytes"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

const (
	pemBlockRSAKey      = "RSA PRIVATE KEY"
	pemBlockCertificate = "CERTIFICATE"
)

// ErrMalformedPEM indicates a PEM stream that does not contain both a
// well-formed certificate and a well-formed RSA private key.
var ErrMalformedPEM = errors.New("malformed PEM material")

// EncodePEM serializes a private key and a certificate into one PEM stream,
// key first. This is the bundle format used for the root file and for every
// cached host file.
func EncodePEM(key *rsa.PrivateKey, cert *x509.Certificate) []byte {
	var buf bytes.Buffer
	// Writes to a bytes.Buffer cannot fail.
	_ = pem.Encode(&buf, &pem.Block{Type: pemBlockRSAKey, Bytes: x509.MarshalPKCS1PrivateKey(key)})
	_ = pem.Encode(&buf, &pem.Block{Type: pemBlockCertificate, Bytes: cert.Raw})
	return buf.Bytes()
}

// DecodePEM parses a certificate and an RSA private key out of a single PEM
// stream. The two blocks may appear in either order; extra blocks are
// ignored. It fails with ErrMalformedPEM when either section is missing or
// does not parse.
func DecodePEM(data []byte) (*x509.Certificate, *rsa.PrivateKey, error) {
	var (
		cert *x509.Certificate
		key  *rsa.PrivateKey
	)

	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		switch block.Type {
		case pemBlockCertificate:
			if cert != nil {
				continue
			}
			c, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: parse certificate: %v", ErrMalformedPEM, err)
			}
			cert = c
		case pemBlockRSAKey:
			if key != nil {
				continue
			}
			k, err := x509.ParsePKCS1PrivateKey(block.Bytes)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: parse private key: %v", ErrMalformedPEM, err)
			}
			key = k
		}
	}

	if cert == nil || key == nil {
		return nil, nil, fmt.Errorf("%w: stream must contain both a certificate and an RSA private key", ErrMalformedPEM)
	}
	return cert, key, nil
}

// WritePEM persists a key/certificate bundle to path. Writes are not atomic;
// callers racing on the same path get last-writer-wins semantics.
func WritePEM(path string, key *rsa.PrivateKey, cert *x509.Certificate) error {
	return os.WriteFile(path, EncodePEM(key, cert), 0o600)
}

// ReadPEM loads a key/certificate bundle from path.
func ReadPEM(path string) (*x509.Certificate, *rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return DecodePEM(data)
}
