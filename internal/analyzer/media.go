package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/model"
)

const mediaSystem = `You assess whether an image has been manipulated or generated.
Reply with a JSON object only, with fields "confidence" (0-1, how likely
the image is manipulated or synthetic) and "reasoning" (string).`

// MaxMediaBytes caps how much of a media reference is loaded
const MaxMediaBytes = 10 << 20

// Media assesses image authenticity with a vision-capable LLM
type Media struct {
	provider   llm.Provider
	httpClient *http.Client
}

// NewMedia creates a media analyzer. httpClient is used for http(s) references;
// nil means http.DefaultClient.
func NewMedia(provider llm.Provider, httpClient *http.Client) *Media {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Media{provider: provider, httpClient: httpClient}
}

// Kind returns model.KindMedia
func (m *Media) Kind() model.AnalyzerKind { return model.KindMedia }

// Analyze loads in.MediaRef and asks the model for a manipulation estimate
func (m *Media) Analyze(ctx context.Context, in Input) (model.AnalyzerResult, error) {
	if in.MediaRef == "" {
		return model.AnalyzerResult{}, errors.New("media: empty reference")
	}

	data, err := m.load(ctx, in.MediaRef)
	if err != nil {
		return model.AnalyzerResult{}, fmt.Errorf("media: %w", err)
	}

	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return model.AnalyzerResult{}, fmt.Errorf("media: unsupported content type %s", mimeType)
	}

	resp, err := m.provider.Complete(ctx, llm.CompletionRequest{
		System: mediaSystem,
		Prompt: "Assess this image.",
		Images: []llm.Image{{MIMEType: mimeType, Data: data}},
	})
	if err != nil {
		return model.AnalyzerResult{}, fmt.Errorf("media: %w", err)
	}

	var out struct {
		Confidence float64 `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(llm.ExtractJSON(resp.Text)), &out); err != nil {
		return model.AnalyzerResult{}, fmt.Errorf("media: parse analysis: %w", err)
	}

	payload := &model.MediaPayload{
		Verdict:         model.MediaVerdictFor(out.Confidence),
		ConfidenceScore: out.Confidence,
		Reasoning:       out.Reasoning,
	}
	return model.Succeeded(model.KindMedia, out.Confidence, payload), nil
}

func (m *Media) load(ctx context.Context, ref string) ([]byte, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		resp, err := m.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch: HTTP %d", resp.StatusCode)
		}
		return readCapped(resp.Body)
	}

	f, err := os.Open(ref)
	if err != nil {
		return nil, fmt.Errorf("open media file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return readCapped(f)
}

func readCapped(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxMediaBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read media: %w", err)
	}
	if len(data) > MaxMediaBytes {
		return nil, fmt.Errorf("media exceeds %d bytes", MaxMediaBytes)
	}
	return data, nil
}
