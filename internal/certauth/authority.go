package certauth

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xkilldash9x/certmint/internal/config"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CertificateAuthority is the stateful front of the package: it loads the
// root exactly once, keeps the cache directory configuration, and hands out
// per-host certificate bundles from the file-backed cache.
type CertificateAuthority struct {
	root     *RootAuthority
	certsDir string
	builder  *TemplateBuilder
	logger   *zap.Logger

	// issuance collapses concurrent requests for the same uncached
	// hostname into a single piece of cryptographic work.
	issuance singleflight.Group
}

// New loads (or creates) the root bundle at cfg.RootFile and ensures the
// cache directory exists, creating it if absent.
func New(cfg config.CAConfig, logger *zap.Logger) (*CertificateAuthority, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("certauth")

	created, root, err := LoadOrCreateRoot(cfg.RootFile, cfg.Name, false)
	if err != nil {
		return nil, fmt.Errorf("load root authority: %w", err)
	}
	if created {
		log.Info("Created new root certificate",
			zap.String("path", cfg.RootFile), zap.String("name", cfg.Name))
	} else {
		log.Debug("Loaded existing root certificate", zap.String("path", cfg.RootFile))
	}

	if err := os.MkdirAll(cfg.CertsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create certificate cache directory: %w", err)
	}

	return &CertificateAuthority{
		root:     root,
		certsDir: cfg.CertsDir,
		builder:  NewTemplateBuilder(nil),
		logger:   log,
	}, nil
}

// Root returns the loaded root authority.
func (ca *CertificateAuthority) Root() *RootAuthority { return ca.root }

// RootPool returns a pool containing only the root certificate, suitable for
// verifying leaves minted by this authority.
func (ca *CertificateAuthority) RootPool() *x509.CertPool {
	pool := x509.NewCertPool()
	pool.AddCert(ca.root.Cert)
	return pool
}

// HostPath returns the cache file that holds (or would hold) the bundle for
// hostname. One file per host, named after the host.
func (ca *CertificateAuthority) HostPath(hostname string) string {
	return filepath.Join(ca.certsDir, hostname+".pem")
}

type hostResult struct {
	created bool
	path    string
}

// GetCertForHost returns the path of the cached bundle for hostname, issuing
// and persisting a fresh one on cache miss or when overwrite is set. A cache
// hit does no cryptographic work. The returned flag reports whether a new
// certificate was written.
//
// Concurrent calls for the same hostname share one issuance and receive the
// same result. Nothing ever checks expiry: a cached certificate is served
// until explicitly overwritten, even past its NotAfter.
func (ca *CertificateAuthority) GetCertForHost(hostname string, overwrite bool) (bool, string, error) {
	v, err, _ := ca.issuance.Do(hostname, func() (any, error) {
		path := ca.HostPath(hostname)

		if !overwrite {
			if _, err := os.Stat(path); err == nil {
				return hostResult{created: false, path: path}, nil
			} else if !os.IsNotExist(err) {
				return nil, err
			}
		}

		host, err := issueHost(hostname, ca.root, ca.builder)
		if err != nil {
			return nil, err
		}
		if err := WritePEM(path, host.Key, host.Cert); err != nil {
			return nil, fmt.Errorf("persist host bundle: %w", err)
		}

		ca.logger.Info("Issued host certificate",
			zap.String("host", hostname),
			zap.String("path", path),
			zap.String("serial", host.Cert.SerialNumber.String()))
		return hostResult{created: true, path: path}, nil
	})
	if err != nil {
		return false, "", err
	}

	res := v.(hostResult)
	return res.created, res.path, nil
}

// TLSCertForHost loads the bundle for hostname, issuing it on demand, as a
// tls.Certificate whose chain includes the root. This is what the
// interception proxy hands to its TLS listener.
func (ca *CertificateAuthority) TLSCertForHost(hostname string) (*tls.Certificate, error) {
	_, path, err := ca.GetCertForHost(hostname, false)
	if err != nil {
		return nil, err
	}
	cert, key, err := ReadPEM(path)
	if err != nil {
		return nil, err
	}
	return &tls.Certificate{
		Certificate: [][]byte{cert.Raw, ca.root.Cert.Raw},
		PrivateKey:  key,
		Leaf:        cert,
	}, nil
}
