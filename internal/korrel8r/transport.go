package korrel8r

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"
)

// IsInClusterHost reports whether host is a Kubernetes service address.
func IsInClusterHost(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	return strings.HasSuffix(host, ".svc") ||
		strings.Contains(host, ".svc.") ||
		strings.Contains(host, "cluster.local")
}

// newTransport clones the default transport and adjusts TLS trust.
// The CA bundle is only added for in-cluster hosts; a missing bundle falls
// back to the system roots.
func newTransport(host, caBundlePath string, insecure bool, logger *zap.Logger) (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // user-configured
		logger.Warn("Korrel8r TLS certificate verification is disabled; this is insecure",
			zap.String("host", host))
		return transport, nil
	}

	if caBundlePath == "" || !IsInClusterHost(host) {
		return transport, nil
	}

	pem, err := os.ReadFile(caBundlePath)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("CA bundle not found, using system roots", zap.String("path", caBundlePath))
		return transport, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read CA bundle %s: %w", caBundlePath, err)
	}

	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("CA bundle %s contains no certificates", caBundlePath)
	}
	transport.TLSClientConfig = &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	}
	logger.Debug("Trusting in-cluster CA bundle", zap.String("path", caBundlePath))
	return transport, nil
}
