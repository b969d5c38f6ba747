package llm

import (
	"encoding/json"
	"net/http"
)

// modelID maps a friendly alias to the vendor's model id. Unknown names are
// taken as raw ids.
func modelID(aliases map[string]string, name string) string {
	if id, ok := aliases[name]; ok {
		return id
	}
	return name
}

func tokenBudget(n int) int {
	if n <= 0 {
		return 4096
	}
	return n
}

func tokenUsage(in, out int) Usage {
	return Usage{InputTokens: in, OutputTokens: out, TotalTokens: in + out}
}

// classifyStatus sorts a vendor HTTP status into the retry classes.
func classifyStatus(status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return &ErrRateLimit{Err: err}
	case status >= 500:
		return &ErrProviderUnavailable{Err: err}
	case status >= 400:
		return &ErrRejected{Err: err}
	}
	return &ErrProviderUnavailable{Err: err}
}

// completion is what an adapter pulled out of a vendor reply.
type completion struct {
	text      string
	truncated bool
	model     string
	usage     Usage
}

// finish turns a completion into a Response. A truncated reply is an error,
// and schema requests get their JSON unwrapped and validated.
func finish(req Request, c completion) (*Response, error) {
	content := json.RawMessage(c.text)
	if c.truncated {
		return nil, &ErrMaxTokensExceeded{Content: content}
	}
	if req.Schema != nil {
		content = extractJSON(content)
		if err := validateResponse(req.Schema, content); err != nil {
			return nil, err
		}
	}
	return &Response{Content: content, Usage: c.usage, Model: c.model, StopReason: "end"}, nil
}
