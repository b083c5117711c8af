// Copyright 2026 The WaveFleet Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package policy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/wavefleet/wavefleet/internal/observability/logger"
)

// HTTPClient talks to an OPA-style decision engine over its data API:
// POST {base}/v1/data/{decision path} with an {"input": ...} envelope,
// expecting an {"result": ...} envelope back. Unknown response fields are
// ignored for forward compatibility.
type HTTPClient struct {
	baseURL      string
	decisionPath string
	httpClient   *http.Client
}

// NewHTTPClient creates a policy engine client. The timeout bounds every
// evaluation call; an expired deadline surfaces as ErrPolicyUnavailable.
func NewHTTPClient(baseURL, decisionPath string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		decisionPath: strings.Trim(decisionPath, "/"),
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// Evaluate sends one query to the engine and decodes its decision. Every
// failure mode (dial, timeout, non-200, malformed payload, missing result)
// collapses into ErrPolicyUnavailable; internal details go to the log, not
// the caller.
func (c *HTTPClient) Evaluate(ctx context.Context, query Query) (Decision, error) {
	body, err := json.Marshal(map[string]any{"input": query})
	if err != nil {
		return Decision{}, fmt.Errorf("%w: encode input: %v", ErrPolicyUnavailable, err)
	}

	url := c.baseURL + "/v1/data/" + c.decisionPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Decision{}, fmt.Errorf("%w: build request: %v", ErrPolicyUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Covers timeouts and context cancellation; the in-flight call is
		// abandoned and no partial decision is returned.
		slog.WarnContext(ctx, "policy engine call failed",
			logger.Component("policy"),
			logger.DecisionPath(c.decisionPath),
			logger.Error(err),
		)
		return Decision{}, fmt.Errorf("%w: %v", ErrPolicyUnavailable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Decision{}, fmt.Errorf("%w: read response: %v", ErrPolicyUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		slog.WarnContext(ctx, "policy engine returned non-200",
			logger.Component("policy"),
			logger.DecisionPath(c.decisionPath),
			logger.StatusCode(resp.StatusCode),
		)
		return Decision{}, fmt.Errorf("%w: status %d", ErrPolicyUnavailable, resp.StatusCode)
	}

	var envelope struct {
		Result *Decision `json:"result"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return Decision{}, fmt.Errorf("%w: decode response: %v", ErrPolicyUnavailable, err)
	}
	if envelope.Result == nil {
		// The decision path does not exist in the engine; treating this as
		// allow would turn a deployment mistake into an open door.
		return Decision{}, fmt.Errorf("%w: empty result", ErrPolicyUnavailable)
	}

	decision := *envelope.Result
	decision.Normalize()
	return decision, nil
}
