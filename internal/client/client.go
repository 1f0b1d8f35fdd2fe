// Package client is the Go client for the lifechat daemon.
package client

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/matheus3301/lifechat/internal/api"
)

// Client wraps the gRPC connection to the daemon.
type Client struct {
	conn *grpc.ClientConn
}

// New dials the daemon's Unix domain socket.
func New(socketPath string) (*Client, error) {
	return Dial("unix://" + socketPath)
}

// Dial connects to target with the JSON codec. Extra options are appended,
// which lets tests supply an in-memory dialer.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(api.CodecName)),
	}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{conn: conn}, nil
}

// WithDialer routes connections through dial instead of the network.
func WithDialer(dial func(context.Context) (net.Conn, error)) grpc.DialOption {
	return grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return dial(ctx)
	})
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) SubmitMessage(ctx context.Context, roomID, senderID int64, content string) (*api.SubmitMessageResponse, error) {
	return c.Submit(ctx, &api.SubmitMessageRequest{RoomID: roomID, SenderID: senderID, Content: content})
}

func (c *Client) Submit(ctx context.Context, req *api.SubmitMessageRequest) (*api.SubmitMessageResponse, error) {
	out := new(api.SubmitMessageResponse)
	if err := c.conn.Invoke(ctx, api.SubmitMessageMethod, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GenerateReplies(ctx context.Context, req *api.GenerateRepliesRequest) (*api.GenerateRepliesResponse, error) {
	out := new(api.GenerateRepliesResponse)
	if err := c.conn.Invoke(ctx, api.GenerateRepliesMethod, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SuggestAutoReply(ctx context.Context, req *api.SuggestAutoReplyRequest) (*api.SuggestAutoReplyResponse, error) {
	out := new(api.SuggestAutoReplyResponse)
	if err := c.conn.Invoke(ctx, api.SuggestAutoReplyMethod, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AnalyzeRelationship(ctx context.Context, req *api.AnalyzeRelationshipRequest) (*api.AnalyzeRelationshipResponse, error) {
	out := new(api.AnalyzeRelationshipResponse)
	if err := c.conn.Invoke(ctx, api.AnalyzeRelationshipMethod, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SetFocus(ctx context.Context, sessionID string, userID, roomID int64) error {
	req := &api.SetFocusRequest{SessionID: sessionID, UserID: userID, RoomID: roomID}
	return c.conn.Invoke(ctx, api.SetFocusMethod, req, new(api.SetFocusResponse))
}

func (c *Client) ClearFocus(ctx context.Context, sessionID string) error {
	return c.conn.Invoke(ctx, api.ClearFocusMethod, &api.ClearFocusRequest{SessionID: sessionID}, new(api.ClearFocusResponse))
}

// Session is an open Connect stream.
type Session struct {
	stream grpc.ServerStreamingClient[api.Delivery]
}

// Connect opens a live session for userID. The session stays registered
// until ctx is cancelled or the stream fails.
func (c *Client) Connect(ctx context.Context, userID int64, sessionID string) (*Session, error) {
	desc := &api.PresenceServiceDesc.Streams[0]
	cs, err := c.conn.NewStream(ctx, desc, api.ConnectMethod)
	if err != nil {
		return nil, err
	}
	stream := &grpc.GenericClientStream[api.ConnectRequest, api.Delivery]{ClientStream: cs}
	if err := stream.SendMsg(&api.ConnectRequest{UserID: userID, SessionID: sessionID}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &Session{stream: stream}, nil
}

// Recv blocks for the next delivery.
func (s *Session) Recv() (*api.Delivery, error) {
	return s.stream.Recv()
}
