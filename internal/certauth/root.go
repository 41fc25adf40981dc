package certauth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"os"
)

// RootAuthority is the self-signed signing root. It is loaded (or created)
// once and then held in memory, read-only, for the life of the process.
type RootAuthority struct {
	Cert *x509.Certificate
	Key  *rsa.PrivateKey
}

// LoadRoot reads an existing root bundle from path.
func LoadRoot(path string) (*RootAuthority, error) {
	cert, key, err := ReadPEM(path)
	if err != nil {
		return nil, err
	}
	return &RootAuthority{Cert: cert, Key: key}, nil
}

// LoadOrCreateRoot returns the root stored at path, generating and persisting
// a fresh self-signed root when the file is absent or overwrite is set. The
// returned flag reports whether a new root was written.
//
// A malformed existing file is fatal: nothing is regenerated or modified.
func LoadOrCreateRoot(path, commonName string, overwrite bool) (bool, *RootAuthority, error) {
	return loadOrCreateRoot(path, commonName, overwrite, NewTemplateBuilder(nil))
}

func loadOrCreateRoot(path, commonName string, overwrite bool, builder *TemplateBuilder) (bool, *RootAuthority, error) {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			root, err := LoadRoot(path)
			if err != nil {
				return false, nil, err
			}
			return false, root, nil
		} else if !os.IsNotExist(err) {
			return false, nil, err
		}
	}

	key, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return false, nil, fmt.Errorf("generate root key: %w", err)
	}

	template, err := builder.Build(commonName)
	if err != nil {
		return false, nil, err
	}
	template.IsCA = true
	template.BasicConstraintsValid = true
	template.MaxPathLen = 0
	template.MaxPathLenZero = true
	template.KeyUsage = x509.KeyUsageCertSign | x509.KeyUsageCRLSign
	// CreateCertificate derives the subject key identifier from the public
	// key for CA certificates, so the template leaves it unset.

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return false, nil, fmt.Errorf("self-sign root certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return false, nil, fmt.Errorf("parse root certificate: %w", err)
	}

	if err := WritePEM(path, key, cert); err != nil {
		return false, nil, fmt.Errorf("persist root bundle: %w", err)
	}
	return true, &RootAuthority{Cert: cert, Key: key}, nil
}
