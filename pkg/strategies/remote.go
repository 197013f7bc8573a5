package strategies

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/avi3tal/infograph/internal/ctxlog"
	"github.com/avi3tal/infograph/pkg/types"
)

const (
	defaultMaxRetries  = 2
	defaultMaxInterval = 5 * time.Second
	maxErrorBody       = 512
)

// ErrRemoteStatus is returned when a strategy endpoint answers with a non-2xx status.
var ErrRemoteStatus = errors.New("remote strategy returned an error status")

// RemoteRequest is the JSON body posted to a strategy endpoint.
type RemoteRequest struct {
	NodeType types.NodeType         `json:"node_type"`
	Params   map[string]any         `json:"params"`
	UserID   string                 `json:"user_id"`
	Results  types.ExecutionResults `json:"results,omitempty"`
}

// RemoteOption configures a Remote strategy
type RemoteOption func(*Remote)

// WithHTTPClient sets the client used for calls
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *Remote) {
		r.client = c
	}
}

// WithMaxRetries sets how many times a failed call is retried
func WithMaxRetries(n uint64) RemoteOption {
	return func(r *Remote) {
		r.maxRetries = n
	}
}

// Remote calls a domain service over HTTP. The service receives a RemoteRequest
// and answers with a NodeResult document.
type Remote struct {
	nodeType   types.NodeType
	endpoint   string
	client     *http.Client
	maxRetries uint64
}

func NewRemote(nodeType types.NodeType, endpoint string, opts ...RemoteOption) *Remote {
	r := &Remote{
		nodeType:   nodeType,
		endpoint:   endpoint,
		client:     http.DefaultClient,
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Remote) Execute(ctx context.Context, params map[string]any, userID string) (types.NodeResult, error) {
	return r.call(ctx, RemoteRequest{NodeType: r.nodeType, Params: params, UserID: userID})
}

// Factory returns a Factory handing out r. Remote is safe for concurrent use.
func (r *Remote) Factory() Factory {
	return func() Strategy { return r }
}

// RemoteCrossReference is the cross_reference counterpart of Remote. The
// snapshot of earlier results travels in the request body.
type RemoteCrossReference struct {
	remote *Remote
}

func NewRemoteCrossReference(endpoint string, opts ...RemoteOption) *RemoteCrossReference {
	return &RemoteCrossReference{remote: NewRemote(types.NodeTypeCrossReference, endpoint, opts...)}
}

func (r *RemoteCrossReference) ExecuteCrossReference(
	ctx context.Context,
	params map[string]any,
	userID string,
	results types.ExecutionResults,
) (types.NodeResult, error) {
	return r.remote.call(ctx, RemoteRequest{
		NodeType: types.NodeTypeCrossReference,
		Params:   params,
		UserID:   userID,
		Results:  results,
	})
}

func (r *RemoteCrossReference) Factory() CrossReferenceFactory {
	return func() CrossReferenceStrategy { return r }
}

func (r *Remote) call(ctx context.Context, req RemoteRequest) (types.NodeResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return types.NodeResult{}, errors.Wrap(err, "failed to encode request")
	}

	logger := ctxlog.FromContext(ctx).With("endpoint", r.endpoint, "nodeType", r.nodeType)

	var result types.NodeResult
	attempt := 0
	operation := func() error {
		attempt++
		res, err := r.post(ctx, body)
		if err != nil {
			logger.Warn("Remote strategy call failed.", "attempt", attempt, "error", err)
			return err
		}
		result = res
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = defaultMaxInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, r.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return types.NodeResult{}, errors.Wrapf(err, "remote strategy %s", r.nodeType)
	}
	return result, nil
}

func (r *Remote) post(ctx context.Context, body []byte) (types.NodeResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return types.NodeResult{}, backoff.Permanent(errors.Wrap(err, "failed to build request"))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return types.NodeResult{}, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		err := errors.Wrapf(ErrRemoteStatus, "status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return types.NodeResult{}, backoff.Permanent(err)
		}
		return types.NodeResult{}, err
	}

	var result types.NodeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return types.NodeResult{}, backoff.Permanent(errors.Wrap(err, "failed to decode response"))
	}
	return result, nil
}

func (r *Remote) String() string {
	return fmt.Sprintf("remote(%s -> %s)", r.nodeType, r.endpoint)
}
