package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/sync/singleflight"

	"medreport-rag/internal/config"
	"medreport-rag/internal/models"
)

var (
	// ErrUnavailable means no generation model is configured or it could
	// not be loaded.
	ErrUnavailable = errors.New("generation engine unavailable")

	// ErrGeneration means the model call itself failed.
	ErrGeneration = errors.New("generation failed")
)

// GenerateOptions are optional decoding parameters.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
}

// Engine wraps a lazily-loaded generation model. The model is loaded at most
// once at a time: concurrent callers wait for the load in flight instead of
// starting a second one. Inference is serialized, one decode at a time.
type Engine struct {
	cfg    *config.LLMConfig
	loader func() (llms.Model, error)

	loadGroup singleflight.Group
	inferMu   sync.Mutex

	mu    sync.RWMutex
	model llms.Model
}

// NewEngine creates an engine that loads the configured model on first use.
func NewEngine(cfg *config.LLMConfig) *Engine {
	e := &Engine{cfg: cfg}
	e.loader = func() (llms.Model, error) { return buildModel(cfg) }
	return e
}

// NewEngineWithModel wires an already-constructed model. Used by tests.
func NewEngineWithModel(cfg *config.LLMConfig, model llms.Model) *Engine {
	return &Engine{cfg: cfg, model: model}
}

// Available reports whether a generation model is configured at all.
func (e *Engine) Available() bool {
	e.mu.RLock()
	loaded := e.model != nil
	e.mu.RUnlock()
	if loaded {
		return true
	}
	return e.cfg != nil && e.cfg.Model != ""
}

// Loaded reports whether the model has been loaded in this process.
func (e *Engine) Loaded() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.model != nil
}

// Device returns the configured inference device, if any.
func (e *Engine) Device() string {
	if e.cfg == nil {
		return ""
	}
	return e.cfg.Device
}

// Load makes sure the model is loaded, waiting for a load already in flight.
func (e *Engine) Load(ctx context.Context) error {
	_, err := e.ensure(ctx)
	return err
}

func (e *Engine) ensure(_ context.Context) (llms.Model, error) {
	if !e.Available() {
		return nil, fmt.Errorf("%w: no model configured, set MODEL_NAME", ErrUnavailable)
	}
	e.mu.RLock()
	m := e.model
	e.mu.RUnlock()
	if m != nil {
		return m, nil
	}

	v, err, _ := e.loadGroup.Do("load", func() (interface{}, error) {
		log.Info().Str("model", e.cfg.Model).Str("device", e.cfg.Device).
			Str("quantization", e.cfg.Quantization).Msg("Loading generation model")
		m, err := e.loader()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to load model: %v", ErrUnavailable, err)
		}
		e.mu.Lock()
		e.model = m
		e.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(llms.Model), nil
}

// GenerateSummary produces a summary of text.
func (e *Engine) GenerateSummary(ctx context.Context, text string, opts GenerateOptions) (string, error) {
	prompt := fmt.Sprintf(models.SummaryPromptTemplate, text)
	return e.generate(ctx, prompt, opts)
}

// Analyze answers question against text.
func (e *Engine) Analyze(ctx context.Context, text, question string) (string, error) {
	prompt := fmt.Sprintf(models.AnalyzePromptTemplate, text, question)
	return e.generate(ctx, prompt, GenerateOptions{})
}

// GenerateSummaryStream is the streaming variant of GenerateSummary.
func (e *Engine) GenerateSummaryStream(ctx context.Context, text string, opts GenerateOptions) *Stream {
	prompt := fmt.Sprintf(models.SummaryPromptTemplate, text)
	return e.generateStream(ctx, prompt, opts)
}

// AnalyzeStream is the streaming variant of Analyze.
func (e *Engine) AnalyzeStream(ctx context.Context, text, question string) *Stream {
	prompt := fmt.Sprintf(models.AnalyzePromptTemplate, text, question)
	return e.generateStream(ctx, prompt, GenerateOptions{})
}

func (e *Engine) generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	model, err := e.ensure(ctx)
	if err != nil {
		return "", err
	}

	e.inferMu.Lock()
	defer e.inferMu.Unlock()
	out, err := llms.GenerateFromSinglePrompt(ctx, model, prompt, callOptions(opts)...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	return out, nil
}

func (e *Engine) generateStream(ctx context.Context, prompt string, opts GenerateOptions) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	st := &Stream{tokens: make(chan string), cancel: cancel}

	go func() {
		defer close(st.tokens)
		model, err := e.ensure(ctx)
		if err != nil {
			st.err = err
			return
		}

		callOpts := append(callOptions(opts), llms.WithStreamingFunc(
			func(ctx context.Context, chunk []byte) error {
				select {
				case st.tokens <- string(chunk):
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}))

		e.inferMu.Lock()
		defer e.inferMu.Unlock()
		if _, err := llms.GenerateFromSinglePrompt(ctx, model, prompt, callOpts...); err != nil {
			st.err = fmt.Errorf("%w: %v", ErrGeneration, err)
		}
	}()
	return st
}

func callOptions(opts GenerateOptions) []llms.CallOption {
	var out []llms.CallOption
	if opts.MaxTokens > 0 {
		out = append(out, llms.WithMaxTokens(opts.MaxTokens))
	}
	if opts.Temperature > 0 {
		out = append(out, llms.WithTemperature(opts.Temperature))
	}
	return out
}

func buildModel(cfg *config.LLMConfig) (llms.Model, error) {
	switch cfg.Provider {
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		return ollama.New(opts...)
	case "openai", "":
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		return openai.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported model provider: %s", cfg.Provider)
	}
}
