package ai

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"drobe-backend/internal/domain"
	"drobe-backend/internal/domain/ports/adapter"
)

var _ adapter.LiveDialer = (*GenAIDialer)(nil)

// GenAIDialer opens live sessions against the Gemini API using the official
// SDK. It is the only place genai types cross into the rest of the code.
type GenAIDialer struct {
	client *genai.Client
}

func NewGenAIDialer(ctx context.Context, apiKey, baseURL string) (*GenAIDialer, error) {
	if apiKey == "" {
		return nil, domain.ErrMissingAPIKey
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GenAIDialer{client: c}, nil
}

func (d *GenAIDialer) Connect(ctx context.Context, modelID string, cfg *adapter.LiveConnectConfig) (adapter.LiveConn, error) {
	lcfg := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		MediaResolution:    genai.MediaResolutionMedium,
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: cfg.SystemInstruction}},
		},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: cfg.Voice},
			},
		},
		ContextWindowCompression: &genai.ContextWindowCompressionConfig{
			TriggerTokens: genai.Ptr(int64(cfg.CompressionTriggerTokens)),
			SlidingWindow: &genai.SlidingWindow{
				TargetTokens: genai.Ptr(int64(cfg.CompressionTargetTokens)),
			},
		},
	}
	session, err := d.client.Live.Connect(ctx, modelID, lcfg)
	if err != nil {
		return nil, fmt.Errorf("live connect: %w", err)
	}
	return &genaiConn{session: session}, nil
}

type genaiConn struct {
	session *genai.Session
}

var _ adapter.LiveConn = (*genaiConn)(nil)

func (c *genaiConn) SendTurns(ctx context.Context, turns []adapter.Turn, turnComplete bool) error {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		parts := make([]*genai.Part, 0, len(t.Parts))
		for _, p := range t.Parts {
			switch {
			case p.Blob != nil:
				parts = append(parts, &genai.Part{
					InlineData: &genai.Blob{MIMEType: p.Blob.MIMEType, Data: p.Blob.Data},
				})
			default:
				parts = append(parts, &genai.Part{Text: p.Text})
			}
		}
		contents = append(contents, &genai.Content{Role: string(t.Role), Parts: parts})
	}
	return c.session.SendClientContent(genai.LiveClientContentInput{
		Turns:        contents,
		TurnComplete: &turnComplete,
	})
}

func (c *genaiConn) SendRealtimeAudio(ctx context.Context, pcm []byte) error {
	return c.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Media: &genai.Blob{MIMEType: "audio/pcm;rate=16000", Data: pcm},
	})
}

func (c *genaiConn) Receive(ctx context.Context) (*adapter.LiveMessage, error) {
	msg, err := c.session.Receive()
	if err != nil {
		return nil, err
	}
	out := &adapter.LiveMessage{}
	if sc := msg.ServerContent; sc != nil {
		if sc.ModelTurn != nil {
			for _, p := range sc.ModelTurn.Parts {
				if p == nil {
					continue
				}
				if p.InlineData != nil && len(p.InlineData.Data) > 0 {
					out.Audio = append(out.Audio, p.InlineData.Data...)
				}
				if p.Text != "" {
					out.Text += p.Text
				}
			}
		}
		out.TurnComplete = sc.TurnComplete
	}
	if tc := msg.ToolCall; tc != nil {
		for _, fc := range tc.FunctionCalls {
			if fc == nil {
				continue
			}
			out.ToolCalls = append(out.ToolCalls, adapter.FunctionCall{
				ID:   fc.ID,
				Name: fc.Name,
				Args: fc.Args,
			})
		}
	}
	return out, nil
}

func (c *genaiConn) Close() error {
	return c.session.Close()
}
