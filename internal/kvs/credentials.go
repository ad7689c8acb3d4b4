package kvs

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/mossy-p/kvs-signaling/internal/sigv4"
)

// CredentialSource yields the key pair for a single call.
type CredentialSource interface {
	Credentials(ctx context.Context) (sigv4.Credentials, error)
}

// StaticCredentials serves a fixed key pair loaded at startup.
type StaticCredentials sigv4.Credentials

func (s StaticCredentials) Credentials(context.Context) (sigv4.Credentials, error) {
	if s.AccessKeyID == "" || s.SecretAccessKey == "" {
		return sigv4.Credentials{}, ErrMissingCredentials
	}
	return sigv4.Credentials(s), nil
}

// Present reports whether both key components are set.
func (s StaticCredentials) Present() bool {
	return s.AccessKeyID != "" && s.SecretAccessKey != ""
}

// credentialsProvider adapts a CredentialSource for the AWS SDK clients.
// The source is consulted on every request.
func credentialsProvider(src CredentialSource) aws.CredentialsProvider {
	return aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
		c, err := src.Credentials(ctx)
		if err != nil {
			return aws.Credentials{}, err
		}
		return credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, c.SessionToken).Retrieve(ctx)
	})
}
