package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"

	"github.com/Ehtisham33/portfolio/internal/llm"
)

// Tip is a short code snippet shown by the idle popup.
type Tip struct {
	Title string `json:"title"`
	Code  string `json:"code"`
}

// TipSource says where a served tip came from.
type TipSource string

const (
	SourceModel    TipSource = "model"
	SourceFallback TipSource = "fallback"
)

// ErrUnparsableTip is returned by ParseTipResponse when the model output is
// not a JSON object carrying both a title and a code snippet.
var ErrUnparsableTip = errors.New("assistant: unparsable tip")

// TipRequestPrompt is the user turn sent alongside the tip system prompt.
const TipRequestPrompt = "Generate a new code snippet tip."

// ConfigFallbackTip is served when no provider credential is configured.
var ConfigFallbackTip = Tip{
	Title: "React: Memoization",
	Code:  "const memo = useMemo(\n  () => compute(),\n  [deps]\n);",
}

// FallbackTips replace unusable model output.
var FallbackTips = []Tip{
	{Title: "Python: Dict default value", Code: "value = data.get('key', default)"},
	{Title: "FastAPI: Query validation", Code: "q: str = Query(..., min_length=3)"},
	{Title: "Django: Atomic transaction", Code: "with transaction.atomic():\n  save_data()"},
}

var codeFenceRe = regexp.MustCompile("```(?:json)?\\n?")

// StripCodeFences removes markdown fence markers anywhere in s.
func StripCodeFences(s string) string {
	return strings.TrimSpace(codeFenceRe.ReplaceAllString(s, ""))
}

// ParseTipResponse treats raw model output as untrusted text.
func ParseTipResponse(raw string) (Tip, error) {
	cleaned := StripCodeFences(raw)
	if cleaned == "" {
		return Tip{}, ErrUnparsableTip
	}

	var tip Tip
	if err := json.Unmarshal([]byte(cleaned), &tip); err != nil {
		return Tip{}, fmt.Errorf("%w: %v", ErrUnparsableTip, err)
	}
	if tip.Title == "" || tip.Code == "" {
		return Tip{}, fmt.Errorf("%w: missing title or code", ErrUnparsableTip)
	}
	return tip, nil
}

type TipOptions struct {
	Temperature float32
	MaxTokens   int
	// Intn picks the fallback index; defaults to math/rand.
	Intn func(n int) int
}

// TipService asks the model for tips and normalizes every outcome to a Tip.
type TipService struct {
	completer llm.Completer
	prompt    string
	opts      TipOptions
}

func NewTipService(completer llm.Completer, prompt string, opts TipOptions) *TipService {
	if opts.Temperature == 0 {
		opts.Temperature = 0.6
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 200
	}
	if opts.Intn == nil {
		opts.Intn = rand.IntN
	}
	return &TipService{completer: completer, prompt: prompt, opts: opts}
}

func (s *TipService) Configured() bool {
	return s.completer != nil
}

// Fallback returns a uniformly random entry of FallbackTips.
func (s *TipService) Fallback() Tip {
	return FallbackTips[s.opts.Intn(len(FallbackTips))]
}

// Next always returns a usable tip. The error is ErrNotConfigured (tip is
// ConfigFallbackTip) or the provider failure that forced a fallback; it is
// for logging only.
func (s *TipService) Next(ctx context.Context) (Tip, TipSource, error) {
	if !s.Configured() {
		return ConfigFallbackTip, SourceFallback, ErrNotConfigured
	}

	raw, err := s.completer.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: s.prompt},
			{Role: llm.RoleUser, Content: TipRequestPrompt},
		},
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
	})
	if err != nil {
		if errors.Is(err, llm.ErrEmptyCompletion) {
			return s.Fallback(), SourceFallback, nil
		}
		return s.Fallback(), SourceFallback, fmt.Errorf("tip completion: %w", err)
	}

	tip, err := ParseTipResponse(raw)
	if err != nil {
		return s.Fallback(), SourceFallback, nil
	}
	return tip, SourceModel, nil
}
