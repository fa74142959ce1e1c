package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"medreport-rag/internal/config"
)

// fakeModel replays canned tokens through the streaming callback when one
// is supplied, or returns the concatenation.
type fakeModel struct {
	tokens []string
	failAt int // fail before emitting this token; -1 disables
}

func (m *fakeModel) GenerateContent(ctx context.Context, _ []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, o := range options {
		o(&opts)
	}
	var full strings.Builder
	for i, tok := range m.tokens {
		if m.failAt == i {
			return nil, errors.New("model exploded")
		}
		if opts.StreamingFunc != nil {
			if err := opts.StreamingFunc(ctx, []byte(tok)); err != nil {
				return nil, err
			}
		}
		full.WriteString(tok)
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: full.String()}},
	}, nil
}

func (m *fakeModel) Call(ctx context.Context, _ string, options ...llms.CallOption) (string, error) {
	resp, err := m.GenerateContent(ctx, nil, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func testCfg() *config.LLMConfig {
	return &config.LLMConfig{Model: "test-model"}
}

func TestGenerateSummary(t *testing.T) {
	e := NewEngineWithModel(testCfg(), &fakeModel{tokens: []string{"The patient ", "has pneumonia."}, failAt: -1})
	out, err := e.GenerateSummary(context.Background(), "report text", GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "The patient has pneumonia.", out)
}

func TestGenerateWrapsModelFailure(t *testing.T) {
	e := NewEngineWithModel(testCfg(), &fakeModel{tokens: []string{"a", "b"}, failAt: 0})
	_, err := e.Analyze(context.Background(), "report", "question")
	assert.ErrorIs(t, err, ErrGeneration)
}

func TestUnavailableWithoutModel(t *testing.T) {
	e := NewEngine(&config.LLMConfig{})
	assert.False(t, e.Available())
	_, err := e.GenerateSummary(context.Background(), "text", GenerateOptions{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestLoaderRunsOnce(t *testing.T) {
	loads := 0
	e := NewEngine(testCfg())
	e.loader = func() (llms.Model, error) {
		loads++
		return &fakeModel{tokens: []string{"ok"}, failAt: -1}, nil
	}

	ctx := context.Background()
	_, err := e.GenerateSummary(ctx, "a", GenerateOptions{})
	require.NoError(t, err)
	_, err = e.GenerateSummary(ctx, "b", GenerateOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, loads)
	assert.True(t, e.Loaded())
}

func TestLoadFailureIsRetriedNextCall(t *testing.T) {
	loads := 0
	e := NewEngine(testCfg())
	e.loader = func() (llms.Model, error) {
		loads++
		if loads == 1 {
			return nil, errors.New("weights missing")
		}
		return &fakeModel{tokens: []string{"ok"}, failAt: -1}, nil
	}

	ctx := context.Background()
	_, err := e.GenerateSummary(ctx, "a", GenerateOptions{})
	assert.ErrorIs(t, err, ErrUnavailable)

	out, err := e.GenerateSummary(ctx, "b", GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 2, loads)
}

func TestConcurrentCallsShareOneLoad(t *testing.T) {
	var mu sync.Mutex
	loads := 0
	e := NewEngine(testCfg())
	e.loader = func() (llms.Model, error) {
		mu.Lock()
		loads++
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		return &fakeModel{tokens: []string{"ok"}, failAt: -1}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.GenerateSummary(context.Background(), "x", GenerateOptions{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, loads)
}

func TestStreamEmitsTokensThenCompletes(t *testing.T) {
	e := NewEngineWithModel(testCfg(), &fakeModel{tokens: []string{"alpha ", "beta ", "gamma"}, failAt: -1})
	st := e.GenerateSummaryStream(context.Background(), "text", GenerateOptions{})
	defer st.Close()

	var got []string
	for tok := range st.Tokens() {
		got = append(got, tok)
	}
	require.NoError(t, st.Err())
	assert.Equal(t, []string{"alpha ", "beta ", "gamma"}, got)
}

func TestStreamMidFailureKeepsEmittedTokens(t *testing.T) {
	e := NewEngineWithModel(testCfg(), &fakeModel{tokens: []string{"alpha ", "beta"}, failAt: 1})
	st := e.AnalyzeStream(context.Background(), "text", "question")
	defer st.Close()

	var got []string
	for tok := range st.Tokens() {
		got = append(got, tok)
	}
	assert.Equal(t, []string{"alpha "}, got)
	assert.ErrorIs(t, st.Err(), ErrGeneration)
}

func TestStreamCloseStopsProduction(t *testing.T) {
	many := make([]string, 1000)
	for i := range many {
		many[i] = "tok "
	}
	e := NewEngineWithModel(testCfg(), &fakeModel{tokens: many, failAt: -1})
	st := e.GenerateSummaryStream(context.Background(), "text", GenerateOptions{})

	<-st.Tokens()
	st.Close()

	done := make(chan struct{})
	go func() {
		for range st.Tokens() {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop after Close")
	}
}
