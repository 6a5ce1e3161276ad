package llm

import "context"

// MockClient scripts Complete for tests. Prompts records everything
// sent so assertions can inspect what the caller built.
type MockClient struct {
	Response *Response
	Err      error
	Prompts  []string
}

func (m *MockClient) Complete(_ context.Context, prompt string) (*Response, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Response == nil {
		return &Response{Provider: "mock"}, nil
	}
	return m.Response, nil
}
