package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/anime-shed/comicvault-grader/internal/grading"
	"github.com/anime-shed/comicvault-grader/internal/logger"
	"github.com/anime-shed/comicvault-grader/pkg/models"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultRemoteModel is used when no model is configured
	DefaultRemoteModel = "gpt-4.1-mini"
	// DefaultRemoteURL is the OpenAI chat completions endpoint
	DefaultRemoteURL = "https://api.openai.com/v1/chat/completions"
	// DefaultTemperature keeps repeated passes close to each other
	DefaultTemperature = 0.2

	maxResponseBytes = 1 << 20
)

// RemoteOptions configures a Remote provider
type RemoteOptions struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	HTTPClient  *http.Client
}

// Remote asks an OpenAI-compatible vision model for an opinion
type Remote struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	client      *http.Client
}

// NewRemote creates a remote provider, filling unset options with defaults
func NewRemote(opts RemoteOptions) *Remote {
	r := &Remote{
		apiKey:      opts.APIKey,
		model:       opts.Model,
		baseURL:     opts.BaseURL,
		temperature: opts.Temperature,
		client:      opts.HTTPClient,
	}
	if r.model == "" {
		r.model = DefaultRemoteModel
	}
	if r.baseURL == "" {
		r.baseURL = DefaultRemoteURL
	}
	if r.temperature == 0 {
		r.temperature = DefaultTemperature
	}
	if r.client == nil {
		r.client = &http.Client{Timeout: 120 * time.Second}
	}
	return r
}

func (r *Remote) Name() string {
	return "remote:" + r.model
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (r *Remote) RequestOpinion(ctx context.Context, images models.ImagePair, posture models.Posture) (models.Opinion, error) {
	if r.apiKey == "" {
		return models.Opinion{}, fmt.Errorf("remote provider API key not configured (set OPENAI_API_KEY)")
	}

	body, err := json.Marshal(chatRequest{
		Model: r.model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt(posture)},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: userInstruction},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL(images.Front)}},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL(images.Back)}},
			}},
		},
		Temperature:    r.temperature,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return models.Opinion{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL, bytes.NewReader(body))
	if err != nil {
		return models.Opinion{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return models.Opinion{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Opinion{}, fmt.Errorf("remote provider returned status: %s", resp.Status)
	}

	var chat chatResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&chat); err != nil {
		return models.Opinion{}, fmt.Errorf("%w: undecodable response: %v", grading.ErrMalformedOpinion, err)
	}
	if len(chat.Choices) == 0 {
		return models.Opinion{}, fmt.Errorf("%w: response has no choices", grading.ErrMalformedOpinion)
	}

	logger.WithFields(logrus.Fields{
		"provider":          r.Name(),
		"posture":           posture,
		"prompt_tokens":     chat.Usage.PromptTokens,
		"completion_tokens": chat.Usage.CompletionTokens,
		"duration_ms":       time.Since(start).Milliseconds(),
	}).Debug("Remote opinion received")

	return ParseOpinion([]byte(stripCodeFence(chat.Choices[0].Message.Content)))
}

// ParseOpinion validates payload against OpinionSchema and decodes it
func ParseOpinion(payload []byte) (models.Opinion, error) {
	if err := ValidatePayload(payload); err != nil {
		return models.Opinion{}, err
	}
	var op models.Opinion
	if err := json.Unmarshal(payload, &op); err != nil {
		return models.Opinion{}, fmt.Errorf("%w: %v", grading.ErrMalformedOpinion, err)
	}
	return op, nil
}

func dataURL(img []byte) string {
	return "data:" + http.DetectContentType(img) + ";base64," + base64.StdEncoding.EncodeToString(img)
}
