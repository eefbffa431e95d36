package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/aws/smithy-go"
)

const (
	pollyDefaultVoice = "Joanna"
	// PCM output from Polly supports 8000 and 16000 only
	pollySampleRate = 16000
	pollyTimeout    = 60 * time.Second
)

type pollyAPI interface {
	SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

// Polly synthesizes through AWS using ambient credentials.
type Polly struct {
	client  pollyAPI
	voiceID string
	logger  *slog.Logger
}

func NewPolly(ctx context.Context, region, voiceID string, logger *slog.Logger) (*Polly, error) {
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewPollyWithClient(polly.NewFromConfig(awsCfg), voiceID, logger), nil
}

func NewPollyWithClient(client pollyAPI, voiceID string, logger *slog.Logger) *Polly {
	if voiceID == "" {
		voiceID = pollyDefaultVoice
	}
	return &Polly{client: client, voiceID: voiceID, logger: logger}
}

func (p *Polly) Synthesize(ctx context.Context, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{Empty: true}, nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, pollyTimeout)
	defer cancel()

	rate := fmt.Sprintf("%d", pollySampleRate)
	output, err := p.client.SynthesizeSpeech(reqCtx, &polly.SynthesizeSpeechInput{
		Engine:       pollytypes.EngineNeural,
		OutputFormat: pollytypes.OutputFormatPcm,
		SampleRate:   &rate,
		Text:         &text,
		TextType:     pollytypes.TextTypeText,
		VoiceId:      pollytypes.VoiceId(p.voiceID),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case "TextLengthExceededException", "InvalidSsmlException":
				// the script itself is unsynthesizable, not an outage
				p.logger.Warn("synthesis rejected script", "code", apiErr.ErrorCode())
				return Result{Empty: true}, nil
			default:
				return Result{}, fmt.Errorf("polly %s: %w", apiErr.ErrorCode(), err)
			}
		}
		return Result{}, fmt.Errorf("polly synthesize: %w", err)
	}
	if output == nil || output.AudioStream == nil {
		return Result{Empty: true}, nil
	}
	defer output.AudioStream.Close()

	pcm, err := io.ReadAll(output.AudioStream)
	if err != nil {
		return Result{}, fmt.Errorf("read audio stream: %w", err)
	}
	if len(pcm) == 0 {
		return Result{Empty: true}, nil
	}

	p.logger.Debug("synthesis completed", "bytes", len(pcm))
	return Result{PCM: pcm, SampleRate: pollySampleRate}, nil
}
