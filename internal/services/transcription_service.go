package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"wayfarer/internal/logger"
	"wayfarer/pkg/traveltypes"

	"github.com/tidwall/gjson"
)

// DeepgramTranscriber implements traveltypes.Transcriber with Deepgram's
// prerecorded audio endpoint.
type DeepgramTranscriber struct {
	apiKey  string
	baseURL string
	model   string
	http    *HTTPRequestService
}

// NewDeepgramTranscriber creates a transcriber posting audio to baseURL.
func NewDeepgramTranscriber(apiKey, baseURL string, http *HTTPRequestService) *DeepgramTranscriber {
	return &DeepgramTranscriber{apiKey: apiKey, baseURL: baseURL, model: "nova-2", http: http}
}

// Transcribe sends the audio and returns the first alternative's transcript.
func (d *DeepgramTranscriber) Transcribe(ctx context.Context, audio []byte, contentType string) (string, error) {
	if d.apiKey == "" {
		return "", fmt.Errorf("%w: %s not configured", traveltypes.ErrTranscription, KeyDeepgramAPIKey)
	}
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: no audio", traveltypes.ErrTranscription)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	query := url.Values{}
	query.Set("model", d.model)
	query.Set("language", "en")
	query.Set("smart_format", "true")

	resp, err := d.http.SendRequest(ctx, HTTPRequest{
		Method: http.MethodPost,
		URL:    d.baseURL,
		Query:  query,
		Headers: map[string]string{
			"Authorization": "Token " + d.apiKey,
			"Content-Type":  contentType,
		},
		Body: audio,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", traveltypes.ErrTranscription, err)
	}
	if !resp.OK() {
		return "", fmt.Errorf("%w: deepgram returned %s", traveltypes.ErrTranscription, resp.Status)
	}

	transcript := strings.TrimSpace(gjson.GetBytes(resp.Body, "results.channels.0.alternatives.0.transcript").String())
	logger.Debug("Audio transcribed", "bytes", len(audio), "transcript_length", len(transcript))
	return transcript, nil
}

// AudioContentType guesses the MIME type of an audio file from its extension.
func AudioContentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".ogg", ".opus":
		return "audio/ogg"
	case ".webm":
		return "audio/webm"
	case ".flac":
		return "audio/flac"
	case ".m4a", ".mp4":
		return "audio/mp4"
	default:
		return "application/octet-stream"
	}
}
