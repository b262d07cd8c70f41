package httpclient

import "context"

// Request describes a single outbound HTTP exchange.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	// Body is encoded as JSON by the transport when non-nil.
	Body any
}

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
}

// Client abstracts HTTP calls so callers can inject mocks or different transports.
type Client interface {
	Do(ctx context.Context, req *Request) (Response, error)
}
