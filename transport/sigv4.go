package transport

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

// SigV4Sink decorates another Sink, signing each request with AWS
// Signature Version 4 before delegating. Callers wrap their Sink with it
// explicitly for schemas whose authentication.type is "aws_sigv4"; Context
// does not select or construct it. It serves
// providers that front an AWS-hosted inference endpoint (e.g. Bedrock)
// behind the same schema-driven request shape as every other provider.
type SigV4Sink struct {
	next    Sink
	signer  *v4.Signer
	region  string
	service string
}

// NewSigV4Sink wraps next with SigV4 request signing for region/service,
// using the default AWS credential chain (environment, shared config,
// container/instance role).
func NewSigV4Sink(ctx context.Context, next Sink, region, service string) (*SigV4Sink, error) {
	_, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("transport: loading AWS config: %w", err)
	}
	return &SigV4Sink{
		next:    next,
		signer:  v4.NewSigner(),
		region:  region,
		service: service,
	}, nil
}

func (s *SigV4Sink) sign(ctx context.Context, rawURL string, headers map[string]string, body []byte) (map[string]string, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(s.region))
	if err != nil {
		return nil, fmt.Errorf("transport: loading AWS config: %w", err)
	}
	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("transport: retrieving AWS credentials: %w", err)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("transport: parsing endpoint URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("transport: building request to sign: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.Host = u.Host

	sum := sha256.Sum256(body)
	payloadHash := hex.EncodeToString(sum[:])

	if err := s.signer.SignHTTP(ctx, creds, req, payloadHash, s.service, s.region, time.Now()); err != nil {
		return nil, fmt.Errorf("transport: signing request: %w", err)
	}

	out := make(map[string]string, len(req.Header))
	for k := range req.Header {
		out[k] = req.Header.Get(k)
	}
	return out, nil
}

// Post implements Sink.
func (s *SigV4Sink) Post(ctx context.Context, url string, headers map[string]string, body []byte, cancel CancelPredicate) (*Response, error) {
	signed, err := s.sign(ctx, url, headers, body)
	if err != nil {
		return nil, err
	}
	return s.next.Post(ctx, url, signed, body, cancel)
}

// PostStream implements Sink.
func (s *SigV4Sink) PostStream(ctx context.Context, url string, headers map[string]string, body []byte, onChunk ChunkFunc, onComplete func(*Response, error), cancel CancelPredicate) error {
	signed, err := s.sign(ctx, url, headers, body)
	if err != nil {
		onComplete(nil, err)
		return err
	}
	return s.next.PostStream(ctx, url, signed, body, onChunk, onComplete, cancel)
}
