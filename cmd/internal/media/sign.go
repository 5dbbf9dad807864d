// Package media generates upload signatures for the external media host.
// Upload mechanics live entirely client-side; the server only signs requests.
package media

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
)

// Signer produces request signatures compatible with the media host's
// signed-upload scheme: SHA-1 over the sorted parameter string plus the
// API secret.
type Signer struct {
	cloudName string
	apiKey    string
	apiSecret string
	folder    string
}

// NewSigner constructs a Signer. cloudName, apiKey and apiSecret are required.
func NewSigner(cloudName, apiKey, apiSecret, folder string) (*Signer, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, errors.New("media: missing credentials")
	}
	if folder == "" {
		folder = "ripple"
	}
	return &Signer{cloudName: cloudName, apiKey: apiKey, apiSecret: apiSecret, folder: folder}, nil
}

// Sign computes the signature over params sorted by key.
func (s *Signer) Sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + s.apiSecret))
	return hex.EncodeToString(sum[:])
}
