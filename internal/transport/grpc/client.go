package grpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/nadzzz/drishti/internal/message"
)

// Client calls drishti.v1.Assistant over an established connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc. Calls are sent with the JSON codec.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) AnalyzeImage(ctx context.Context, in *message.VisionRequest, opts ...grpc.CallOption) (*message.VisionResponse, error) {
	out := new(message.VisionResponse)
	if err := c.invoke(ctx, "AnalyzeImage", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Synthesize(ctx context.Context, in *message.SpeechRequest, opts ...grpc.CallOption) (*message.SpeechResponse, error) {
	out := new(message.SpeechResponse)
	if err := c.invoke(ctx, "Synthesize", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Transcribe(ctx context.Context, in *message.TranscribeRequest, opts ...grpc.CallOption) (*message.TranscribeResponse, error) {
	out := new(message.TranscribeResponse)
	if err := c.invoke(ctx, "Transcribe", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...)
}
