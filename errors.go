package sdk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/di2ag/chp-sdk/config"
	"github.com/di2ag/chp-sdk/transport"
)

// Sentinel errors for common client conditions.
var (
	// ErrInvalidConfig indicates the configuration is invalid or incomplete.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnknownReasoner indicates no settings exist for a reasoner id.
	ErrUnknownReasoner = config.ErrUnknownReasoner

	// ErrNilQuery is returned when Query is called without a query graph.
	ErrNilQuery = errors.New("query has no query graph")

	// ErrClientClosed is returned by operations on a closed client.
	ErrClientClosed = errors.New("client is closed")
)

// Error kinds categorize errors by their type.
const (
	KindNotFound      = "not_found"
	KindValidation    = "validation"
	KindConfiguration = "configuration"
	KindNetwork       = "network"
	KindTimeout       = "timeout"
	KindInternal      = "internal"
)

// SDKError wraps an underlying error with the operation that failed and
// the category of the failure. It supports errors.Is and errors.As.
//
//	_, err := client.Query(ctx, q)
//	if errors.Is(err, &sdk.SDKError{Kind: sdk.KindNetwork}) {
//		// retry later
//	}
type SDKError struct {
	// Op is the operation that failed (e.g., "Client.Query").
	Op string

	// Kind categorizes the error (e.g., KindNetwork).
	Kind string

	Err error

	// Context carries optional debugging values such as the request URL.
	Context map[string]any
}

func (e *SDKError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("chp: %s: %s", e.Op, e.Kind)
	}
	if len(e.Context) > 0 {
		return fmt.Sprintf("chp: %s (%s): %v [context: %+v]", e.Op, e.Kind, e.Err, e.Context)
	}
	return fmt.Sprintf("chp: %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *SDKError) Unwrap() error {
	return e.Err
}

// Is matches another SDKError by Kind, and by Op when the target sets one.
// Anything else is delegated to the wrapped error.
func (e *SDKError) Is(target error) bool {
	if target == nil {
		return false
	}
	if t, ok := target.(*SDKError); ok {
		if t.Kind != "" && e.Kind == t.Kind && (t.Op == "" || e.Op == t.Op) {
			return true
		}
	}
	return errors.Is(e.Err, target)
}

// WithContext returns a copy of the error with ctx merged into Context.
func (e *SDKError) WithContext(ctx map[string]any) *SDKError {
	out := *e
	out.Context = make(map[string]any, len(e.Context)+len(ctx))
	for k, v := range e.Context {
		out.Context[k] = v
	}
	for k, v := range ctx {
		out.Context[k] = v
	}
	return &out
}

// NewValidationError creates a new SDKError with KindValidation.
func NewValidationError(op string, err error) *SDKError {
	return &SDKError{Op: op, Kind: KindValidation, Err: err}
}

// NewConfigurationError creates a new SDKError with KindConfiguration.
func NewConfigurationError(op string, err error) *SDKError {
	return &SDKError{Op: op, Kind: KindConfiguration, Err: err}
}

// NewNetworkError creates a new SDKError with KindNetwork.
func NewNetworkError(op string, err error) *SDKError {
	return &SDKError{Op: op, Kind: KindNetwork, Err: err}
}

// NewNotFoundError creates a new SDKError with KindNotFound.
func NewNotFoundError(op string, err error) *SDKError {
	return &SDKError{Op: op, Kind: KindNotFound, Err: err}
}

// NewInternalError creates a new SDKError with KindInternal.
func NewInternalError(op string, err error) *SDKError {
	return &SDKError{Op: op, Kind: KindInternal, Err: err}
}

// requestError classifies a transport failure.
func requestError(op, url string, err error) *SDKError {
	kind := KindNetwork
	var se *transport.StatusError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &se) && se.StatusCode == http.StatusNotFound:
		kind = KindNotFound
	case errors.As(err, &se) && se.StatusCode < 500:
		kind = KindValidation
	}
	return (&SDKError{Op: op, Kind: kind, Err: err}).WithContext(map[string]any{"url": url})
}

// CloseWithLog closes closer and logs a failure at warning level. It is
// meant for defer statements. A nil logger uses slog.Default().
//
//	defer sdk.CloseWithLog(client, logger, "chp client")
func CloseWithLog(closer io.Closer, logger *slog.Logger, name string) {
	if closer == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := closer.Close(); err != nil {
		logger.Warn("failed to close resource",
			"resource", name,
			"error", err)
	}
}
