package kvs

import (
	"context"
	"errors"
	"strings"

	"github.com/mossy-p/kvs-signaling/internal/sigv4"
)

// URLSigner presigns arbitrary signaling URLs with the broker's credentials.
type URLSigner struct {
	Signer      *sigv4.Signer
	Credentials CredentialSource
}

// SignURL merges params into endpoint's query and presigns it.
func (s *URLSigner) SignURL(ctx context.Context, endpoint string, params map[string]string) (string, error) {
	if strings.TrimSpace(endpoint) == "" {
		return "", newError(ErrInvalidEndpoint, opSign, errors.New("endpoint is required"))
	}
	return signWith(ctx, s.Signer, s.Credentials, endpoint, params)
}
