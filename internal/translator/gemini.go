package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	batchTimeout  = 2 * time.Second
	detectTimeout = 1 * time.Second
	defaultModel  = "gemini-2.0-flash"
)

// GeminiTranslator translates a batch of target languages in a single
// round trip by asking the model to return a JSON object of translations.
// Any failure — timeout, transport error, malformed response — is logged
// and falls back to echoing the source text per target; it never
// propagates an error to the segmentation pipeline upstream.
type GeminiTranslator struct {
	client *genai.Client
	model  string
	logger *zap.Logger
	cache  *ttlCache
}

// NewGeminiTranslator builds a translator backed by a Gemini client. A zero
// cacheTTL disables caching.
func NewGeminiTranslator(ctx context.Context, apiKey string, logger *zap.Logger, cacheTTL time.Duration) (*GeminiTranslator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	var cache *ttlCache
	if cacheTTL > 0 {
		cache = newTTLCache(2048, cacheTTL)
	}

	return &GeminiTranslator{client: client, model: defaultModel, logger: logger, cache: cache}, nil
}

func (t *GeminiTranslator) Translate(ctx context.Context, text, source string, targets []string) map[string]string {
	out := make(map[string]string, len(targets))
	if text == "" || len(targets) == 0 {
		return out
	}

	remaining := make([]string, 0, len(targets))
	for _, lang := range targets {
		if t.cache != nil {
			if cached, ok := t.cache.get(text, source, lang); ok {
				out[lang] = cached
				continue
			}
		}
		remaining = append(remaining, lang)
	}
	if len(remaining) == 0 {
		return out
	}

	callCtx, cancel := context.WithTimeout(ctx, batchTimeout)
	defer cancel()

	translated, err := t.callModel(callCtx, text, source, remaining)
	if err != nil {
		t.logger.Warn("translation failed, echoing source",
			zap.Error(err), zap.String("source", source), zap.Strings("targets", remaining))
		for _, lang := range remaining {
			out[lang] = text
		}
		return out
	}

	for _, lang := range remaining {
		value, ok := translated[lang]
		if !ok || value == "" {
			value = text
		}
		out[lang] = value
		if t.cache != nil {
			t.cache.set(text, source, lang, value)
		}
	}
	return out
}

func (t *GeminiTranslator) callModel(ctx context.Context, text, source string, targets []string) (map[string]string, error) {
	prompt := buildTranslatePrompt(text, source, targets)
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.0)),
	}

	resp, err := t.client.Models.GenerateContent(ctx, t.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty translation response")
	}

	var raw strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		raw.WriteString(part.Text)
	}
	cleaned := strings.TrimSpace(raw.String())
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	var parsed map[string]string
	if err := json.Unmarshal([]byte(strings.TrimSpace(cleaned)), &parsed); err != nil {
		return nil, fmt.Errorf("parse translation response: %w", err)
	}
	return parsed, nil
}

func buildTranslatePrompt(text, source string, targets []string) string {
	var b strings.Builder
	b.WriteString("Translate the following text from ")
	if source != "" {
		b.WriteString(source)
	} else {
		b.WriteString("its source language")
	}
	b.WriteString(" into each of these target languages: ")
	b.WriteString(strings.Join(targets, ", "))
	b.WriteString(". Respond with only a JSON object mapping each target language code to its translation, no other text.\n\nText: ")
	b.WriteString(text)
	return b.String()
}

// DetectLanguage asks the model to identify the ISO 639-1 code of a
// fragment, used as an auxiliary call independent of translation.
func (t *GeminiTranslator) DetectLanguage(ctx context.Context, text string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, detectTimeout)
	defer cancel()

	prompt := "Identify the ISO 639-1 language code of the following text. Respond with only the two-letter code.\n\nText: " + text
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := t.client.Models.GenerateContent(callCtx, t.model, contents, &genai.GenerateContentConfig{})
	if err != nil {
		return "", fmt.Errorf("detect language: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty detect response")
	}
	return strings.ToLower(strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text)), nil
}
