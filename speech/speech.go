package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrNotUnderstood means the audio was processed but contained no recognizable speech.
	ErrNotUnderstood = errors.New("could not understand the audio")

	// ErrDisabled means voice input is not configured.
	ErrDisabled = errors.New("speech recognition is disabled")

	ErrEmptyAudio = errors.New("audio is empty")
)

// Transcriber turns recorded speech into text. languageCode is a locale such as "ta-IN".
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string, languageCode string) (string, error)
}

// ServiceError is a failure of the recognition backend itself.
type ServiceError struct {
	Code codes.Code
	Err  error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("speech service error (%s): %v", e.Code, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// GoogleTranscriber uses Cloud Speech-to-Text synchronous recognition.
type GoogleTranscriber struct {
	client     *speech.Client
	sampleRate int32
	timeout    time.Duration
}

func NewGoogleTranscriber(ctx context.Context, credentialsFile string, sampleRate int32) (*GoogleTranscriber, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	return &GoogleTranscriber{client: c, sampleRate: sampleRate, timeout: time.Minute}, nil
}

func (g *GoogleTranscriber) Close() error {
	return g.client.Close()
}

func (g *GoogleTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string, languageCode string) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: RecognitionConfig(mimeType, languageCode, g.sampleRate),
		Audio:  &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: audio}},
	})
	if err != nil {
		return "", &ServiceError{Code: status.Code(err), Err: err}
	}
	return transcriptFrom(resp)
}

// RecognitionConfig builds the request config for an uploaded clip.
func RecognitionConfig(mimeType, languageCode string, sampleRate int32) *speechpb.RecognitionConfig {
	enc := EncodingFor(mimeType)
	if sampleRate == 0 && (enc == speechpb.RecognitionConfig_WEBM_OPUS || enc == speechpb.RecognitionConfig_OGG_OPUS) {
		sampleRate = 48000
	}
	return &speechpb.RecognitionConfig{
		Encoding:                   enc,
		SampleRateHertz:            sampleRate,
		LanguageCode:               languageCode,
		EnableAutomaticPunctuation: true,
	}
}

// EncodingFor maps a browser recording MIME type to a recognition encoding.
func EncodingFor(mimeType string) speechpb.RecognitionConfig_AudioEncoding {
	m := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.Contains(m, "wav"):
		return speechpb.RecognitionConfig_LINEAR16
	case strings.Contains(m, "flac"):
		return speechpb.RecognitionConfig_FLAC
	case strings.Contains(m, "mpeg"), strings.Contains(m, "mp3"):
		return speechpb.RecognitionConfig_MP3
	case strings.Contains(m, "webm"):
		return speechpb.RecognitionConfig_WEBM_OPUS
	case strings.Contains(m, "ogg"), strings.Contains(m, "opus"):
		return speechpb.RecognitionConfig_OGG_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}

func transcriptFrom(resp *speechpb.RecognizeResponse) (string, error) {
	var parts []string
	for _, r := range resp.GetResults() {
		alts := r.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if t := strings.TrimSpace(alts[0].GetTranscript()); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return "", ErrNotUnderstood
	}
	return strings.Join(parts, " "), nil
}

// Disabled rejects every request with ErrDisabled.
type Disabled struct{}

func (Disabled) Transcribe(context.Context, []byte, string, string) (string, error) {
	return "", ErrDisabled
}
