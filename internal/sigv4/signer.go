// Package sigv4 presigns URLs with AWS Signature Version 4.
//
// Only the query-string variant is implemented: the signature and its
// parameters travel in the URL so that clients which cannot set headers
// (a browser WebSocket handshake, for example) can still authenticate.
package sigv4

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// Algorithm is the only signing algorithm supported.
	Algorithm = "AWS4-HMAC-SHA256"

	// DefaultExpires matches the lifetime the KVS WebRTC SDKs request.
	DefaultExpires = 299 * time.Second

	scopeTerminator = "aws4_request"
	timeFormat      = "20060102T150405Z"
	dateFormat      = "20060102"
	signedHeaders   = "host"

	// hex(sha256("")); presigned GETs never carry a body.
	emptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
)

// Query parameter names written by Presign.
const (
	ParamAlgorithm     = "X-Amz-Algorithm"
	ParamCredential    = "X-Amz-Credential"
	ParamDate          = "X-Amz-Date"
	ParamExpires       = "X-Amz-Expires"
	ParamSecurityToken = "X-Amz-Security-Token"
	ParamSignedHeaders = "X-Amz-SignedHeaders"
	ParamSignature     = "X-Amz-Signature"
)

var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidEndpoint    = errors.New("invalid endpoint")
)

// Credentials is the key pair used for one signing call. It is never retained.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

func (c Credentials) validate() error {
	if c.AccessKeyID == "" || c.SecretAccessKey == "" {
		return ErrMissingCredentials
	}
	return nil
}

// Scope binds a signature to a region and service.
type Scope struct {
	Region  string
	Service string
}

// CredentialScope returns date/region/service/aws4_request for t.
func (s Scope) CredentialScope(t time.Time) string {
	return strings.Join([]string{t.UTC().Format(dateFormat), s.Region, s.Service, scopeTerminator}, "/")
}

// Request describes the URL to presign.
type Request struct {
	Method string
	URL    string
	// Query is merged over the URL's own parameters; these values win.
	Query map[string]string
	// Expires adds X-Amz-Expires when positive.
	Expires time.Duration
}

// Presign returns req.URL with SigV4 query parameters for the given instant.
// It is a pure function of its arguments.
func Presign(req Request, creds Credentials, scope Scope, t time.Time) (string, error) {
	if err := creds.validate(); err != nil {
		return "", err
	}
	if scope.Region == "" || scope.Service == "" {
		return "", fmt.Errorf("sigv4: region and service are required")
	}

	u, existing, err := parseEndpoint(req.URL)
	if err != nil {
		return "", err
	}

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	host := strings.ToLower(u.Host)
	t = t.UTC()
	amzDate := t.Format(timeFormat)
	credentialScope := scope.CredentialScope(t)

	params := existing
	for k, v := range req.Query {
		params[k] = v
	}
	delete(params, ParamSignature)
	params[ParamAlgorithm] = Algorithm
	params[ParamCredential] = creds.AccessKeyID + "/" + credentialScope
	params[ParamDate] = amzDate
	params[ParamSignedHeaders] = signedHeaders
	if req.Expires > 0 {
		params[ParamExpires] = strconv.FormatInt(int64(req.Expires/time.Second), 10)
	}
	if creds.SessionToken != "" {
		params[ParamSecurityToken] = creds.SessionToken
	}

	path := CanonicalPath(u.Path)
	query := CanonicalQueryString(params)
	canonicalRequest := strings.Join([]string{
		method,
		path,
		query,
		"host:" + host + "\n",
		signedHeaders,
		emptyPayloadHash,
	}, "\n")

	signature := sign(canonicalRequest, creds.SecretAccessKey, scope, t)

	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString("://")
	b.WriteString(u.Host)
	b.WriteString(path)
	b.WriteByte('?')
	b.WriteString(query)
	b.WriteString("&" + ParamSignature + "=")
	b.WriteString(signature)
	return b.String(), nil
}

func parseEndpoint(raw string) (*url.URL, map[string]string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, nil, fmt.Errorf("%w: %q is not an absolute URL", ErrInvalidEndpoint, raw)
	}
	values, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	params := make(map[string]string, len(values)+8)
	for k, vs := range values {
		if len(vs) > 0 {
			params[k] = vs[len(vs)-1]
		}
	}
	return u, params, nil
}

// sign computes the hex signature of a canonical request.
func sign(canonicalRequest, secret string, scope Scope, t time.Time) string {
	stringToSign := strings.Join([]string{
		Algorithm,
		t.UTC().Format(timeFormat),
		scope.CredentialScope(t),
		hashHex(canonicalRequest),
	}, "\n")
	return hex.EncodeToString(hmacSHA256(SigningKey(secret, t, scope), stringToSign))
}

// SigningKey derives the date/region/service scoped key from the secret.
func SigningKey(secret string, t time.Time, scope Scope) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secret), t.UTC().Format(dateFormat))
	kRegion := hmacSHA256(kDate, scope.Region)
	kService := hmacSHA256(kRegion, scope.Service)
	return hmacSHA256(kService, scopeTerminator)
}

func hmacSHA256(key []byte, data string) []byte {
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write([]byte(data))
	return mac.Sum(nil)
}

func hashHex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Signer presigns against a fixed scope using a clock.
type Signer struct {
	Scope   Scope
	Expires time.Duration
	Now     func() time.Time
}

// NewSigner returns a Signer with DefaultExpires and the wall clock.
func NewSigner(region, service string) *Signer {
	return &Signer{
		Scope:   Scope{Region: region, Service: service},
		Expires: DefaultExpires,
		Now:     time.Now,
	}
}

// PresignURL signs a GET of endpoint with the extra query parameters.
func (s *Signer) PresignURL(endpoint string, query map[string]string, creds Credentials) (string, error) {
	now := s.Now
	if now == nil {
		now = time.Now
	}
	return Presign(Request{
		Method:  http.MethodGet,
		URL:     endpoint,
		Query:   query,
		Expires: s.Expires,
	}, creds, s.Scope, now())
}
