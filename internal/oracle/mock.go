package oracle

import "context"

// MockResponse is what Mock returns when no Response is set.
const MockResponse = `{"category": "normal", "confidence": 0.6, "description": "MOCK ORACLE: no suspicious activity."}`

// Mock is the offline oracle enabled by USE_MOCK_LLM=true.
type Mock struct {
	Response string
}

func (m Mock) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Response == "" {
		return MockResponse, nil
	}
	return m.Response, nil
}
