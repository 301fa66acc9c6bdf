package speech

import (
	"context"
	"testing"

	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodingFor(t *testing.T) {
	tests := []struct {
		mime string
		want speechpb.RecognitionConfig_AudioEncoding
	}{
		{"audio/wav", speechpb.RecognitionConfig_LINEAR16},
		{"audio/x-wav", speechpb.RecognitionConfig_LINEAR16},
		{"audio/webm;codecs=opus", speechpb.RecognitionConfig_WEBM_OPUS},
		{"audio/ogg", speechpb.RecognitionConfig_OGG_OPUS},
		{"audio/flac", speechpb.RecognitionConfig_FLAC},
		{"audio/mpeg", speechpb.RecognitionConfig_MP3},
		{"application/octet-stream", speechpb.RecognitionConfig_ENCODING_UNSPECIFIED},
	}
	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodingFor(tt.mime))
		})
	}
}

func TestRecognitionConfigDefaultsOpusRate(t *testing.T) {
	cfg := RecognitionConfig("audio/webm", "ta-IN", 0)
	assert.Equal(t, int32(48000), cfg.GetSampleRateHertz())
	assert.Equal(t, "ta-IN", cfg.GetLanguageCode())

	wav := RecognitionConfig("audio/wav", "hi-IN", 0)
	assert.Zero(t, wav.GetSampleRateHertz())
}

func TestTranscriptFrom(t *testing.T) {
	resp := &speechpb.RecognizeResponse{Results: []*speechpb.SpeechRecognitionResult{
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: " what is clause 4 "}}},
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "about"}}},
		{},
	}}
	got, err := transcriptFrom(resp)
	require.NoError(t, err)
	assert.Equal(t, "what is clause 4 about", got)

	_, err = transcriptFrom(&speechpb.RecognizeResponse{})
	assert.ErrorIs(t, err, ErrNotUnderstood)
}

func TestDisabled(t *testing.T) {
	_, err := Disabled{}.Transcribe(context.Background(), []byte{1}, "audio/wav", "en-IN")
	assert.ErrorIs(t, err, ErrDisabled)
}
