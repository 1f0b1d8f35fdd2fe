package api

import (
	"context"

	"google.golang.org/grpc"
)

// Full method names.
const (
	ChatServiceName     = "lifechat.v1.ChatService"
	PresenceServiceName = "lifechat.v1.PresenceService"

	SubmitMessageMethod       = "/" + ChatServiceName + "/SubmitMessage"
	GenerateRepliesMethod     = "/" + ChatServiceName + "/GenerateReplies"
	SuggestAutoReplyMethod    = "/" + ChatServiceName + "/SuggestAutoReply"
	AnalyzeRelationshipMethod = "/" + ChatServiceName + "/AnalyzeRelationship"
	ConnectMethod             = "/" + PresenceServiceName + "/Connect"
	SetFocusMethod            = "/" + PresenceServiceName + "/SetFocus"
	ClearFocusMethod          = "/" + PresenceServiceName + "/ClearFocus"
)

// ChatServer is the server API for ChatService.
type ChatServer interface {
	SubmitMessage(context.Context, *SubmitMessageRequest) (*SubmitMessageResponse, error)
	GenerateReplies(context.Context, *GenerateRepliesRequest) (*GenerateRepliesResponse, error)
	SuggestAutoReply(context.Context, *SuggestAutoReplyRequest) (*SuggestAutoReplyResponse, error)
	AnalyzeRelationship(context.Context, *AnalyzeRelationshipRequest) (*AnalyzeRelationshipResponse, error)
}

// PresenceServer is the server API for PresenceService.
type PresenceServer interface {
	Connect(*ConnectRequest, grpc.ServerStreamingServer[Delivery]) error
	SetFocus(context.Context, *SetFocusRequest) (*SetFocusResponse, error)
	ClearFocus(context.Context, *ClearFocusRequest) (*ClearFocusResponse, error)
}

// unaryHandler adapts a typed unary method to grpc.MethodDesc.
func unaryHandler[S any, Req any, Resp any](fullMethod string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(S), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(S), ctx, req.(*Req))
		})
	}
}

// ChatServiceDesc describes ChatService for grpc.Server.RegisterService.
var ChatServiceDesc = grpc.ServiceDesc{
	ServiceName: ChatServiceName,
	HandlerType: (*ChatServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SubmitMessage", Handler: unaryHandler(SubmitMessageMethod, ChatServer.SubmitMessage)},
		{MethodName: "GenerateReplies", Handler: unaryHandler(GenerateRepliesMethod, ChatServer.GenerateReplies)},
		{MethodName: "SuggestAutoReply", Handler: unaryHandler(SuggestAutoReplyMethod, ChatServer.SuggestAutoReply)},
		{MethodName: "AnalyzeRelationship", Handler: unaryHandler(AnalyzeRelationshipMethod, ChatServer.AnalyzeRelationship)},
	},
	Metadata: "lifechat/v1/chat.json",
}

// PresenceServiceDesc describes PresenceService for grpc.Server.RegisterService.
var PresenceServiceDesc = grpc.ServiceDesc{
	ServiceName: PresenceServiceName,
	HandlerType: (*PresenceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SetFocus", Handler: unaryHandler(SetFocusMethod, PresenceServer.SetFocus)},
		{MethodName: "ClearFocus", Handler: unaryHandler(ClearFocusMethod, PresenceServer.ClearFocus)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Connect", Handler: connectHandler, ServerStreams: true},
	},
	Metadata: "lifechat/v1/presence.json",
}

func connectHandler(srv any, stream grpc.ServerStream) error {
	in := new(ConnectRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(PresenceServer).Connect(in, &grpc.GenericServerStream[ConnectRequest, Delivery]{ServerStream: stream})
}

// RegisterChatServer registers srv on s.
func RegisterChatServer(s grpc.ServiceRegistrar, srv ChatServer) {
	s.RegisterService(&ChatServiceDesc, srv)
}

// RegisterPresenceServer registers srv on s.
func RegisterPresenceServer(s grpc.ServiceRegistrar, srv PresenceServer) {
	s.RegisterService(&PresenceServiceDesc, srv)
}
