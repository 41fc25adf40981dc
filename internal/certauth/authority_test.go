package certauth

import (
	"crypto/x509"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/xkilldash9x/certmint/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestAuthority(t *testing.T) *CertificateAuthority {
	t.Helper()
	dir := t.TempDir()
	ca, err := New(config.CAConfig{
		Name:     "Test CA",
		RootFile: filepath.Join(dir, "ca.pem"),
		CertsDir: filepath.Join(dir, "certs"),
	}, zap.NewNop())
	require.NoError(t, err)
	return ca
}

func TestNewCreatesRootAndCacheDir(t *testing.T) {
	dir := t.TempDir()
	rootFile := filepath.Join(dir, "ca.pem")
	certsDir := filepath.Join(dir, "certs")

	ca, err := New(config.CAConfig{Name: "Test CA", RootFile: rootFile, CertsDir: certsDir}, nil)
	require.NoError(t, err)

	assert.FileExists(t, rootFile)
	info, err := os.Stat(certsDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir(), "the cache directory must be created if absent")
	assert.Equal(t, "Test CA", ca.Root().Cert.Subject.CommonName)
}

func TestNewWithMalformedRoot(t *testing.T) {
	dir := t.TempDir()
	rootFile := filepath.Join(dir, "ca.pem")
	require.NoError(t, os.WriteFile(rootFile, []byte("-----BEGIN GARBAGE-----"), 0o600))

	_, err := New(config.CAConfig{Name: "Test CA", RootFile: rootFile, CertsDir: filepath.Join(dir, "certs")}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedPEM)
}

func TestGetCertForHostIsIdempotent(t *testing.T) {
	ca := newTestAuthority(t)

	created, firstPath, err := ca.GetCertForHost("a.test", false)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, ca.HostPath("a.test"), firstPath)
	firstBytes, err := os.ReadFile(firstPath)
	require.NoError(t, err)

	// A cache hit returns the same path without touching the file.
	created, secondPath, err := ca.GetCertForHost("a.test", false)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, firstPath, secondPath)
	secondBytes, err := os.ReadFile(secondPath)
	require.NoError(t, err)
	assert.Equal(t, firstBytes, secondBytes, "a cache hit must leave the bundle byte-identical")
}

func TestGetCertForHostOverwrite(t *testing.T) {
	ca := newTestAuthority(t)

	created, path, err := ca.GetCertForHost("b.test", true)
	require.NoError(t, err)
	assert.True(t, created)
	firstCert, firstKey, err := ReadPEM(path)
	require.NoError(t, err)

	created, _, err = ca.GetCertForHost("b.test", true)
	require.NoError(t, err)
	assert.True(t, created, "overwrite must reissue even on a cache hit")
	secondCert, secondKey, err := ReadPEM(path)
	require.NoError(t, err)

	assert.NotZero(t, firstCert.SerialNumber.Cmp(secondCert.SerialNumber))
	assert.NotZero(t, firstKey.N.Cmp(secondKey.N))

	// Both generations still chain to the same root.
	require.NoError(t, firstCert.CheckSignatureFrom(ca.Root().Cert))
	require.NoError(t, secondCert.CheckSignatureFrom(ca.Root().Cert))
}

func TestGetCertForHostConcurrent(t *testing.T) {
	ca := newTestAuthority(t)

	// Concurrent requests for the same uncached hostname collapse into a
	// single issuance; every caller sees the same path and a parseable file.
	const callers = 16
	paths := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, paths[i], errs[i] = ca.GetCertForHost("con.test", false)
		}(i)
	}
	wg.Wait()

	want := ca.HostPath("con.test")
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, want, paths[i])
	}

	cert, _, err := ReadPEM(want)
	require.NoError(t, err)
	assert.Equal(t, "con.test", cert.Subject.CommonName)
}

func TestTLSCertForHost(t *testing.T) {
	ca := newTestAuthority(t)

	tlsCert, err := ca.TLSCertForHost("tls.test")
	require.NoError(t, err)

	require.Len(t, tlsCert.Certificate, 2, "the chain must carry the leaf and the root")
	require.NotNil(t, tlsCert.Leaf)
	assert.Equal(t, "tls.test", tlsCert.Leaf.Subject.CommonName)

	rootFromChain, err := x509.ParseCertificate(tlsCert.Certificate[1])
	require.NoError(t, err)
	assert.Equal(t, ca.Root().Cert.Raw, rootFromChain.Raw)

	// The bundle also landed in the file cache.
	assert.FileExists(t, ca.HostPath("tls.test"))
}
