package api

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/matheus3301/lifechat/internal/analysis"
	"github.com/matheus3301/lifechat/internal/dispatch"
	"github.com/matheus3301/lifechat/internal/event"
)

// Submitter accepts chat messages.
type Submitter interface {
	Submit(ctx context.Context, req dispatch.SubmitRequest) (*dispatch.Receipt, error)
}

// Advisor produces reply suggestions and relationship summaries.
type Advisor interface {
	GenerateReplies(ctx context.Context, roomID, userID, friendID int64, t event.Type) analysis.ReplySet
	SuggestAutoReply(ctx context.Context, roomID, userID, friendID int64, t event.Type) analysis.Suggestion
	AnalyzeRelationship(ctx context.Context, roomID, userID, friendID int64) analysis.Relationship
}

// ChatService implements lifechat.v1.ChatService.
type ChatService struct {
	submitter Submitter
	advisor   Advisor
	logger    *zap.Logger
}

// NewChatService creates a chat service.
func NewChatService(submitter Submitter, advisor Advisor, logger *zap.Logger) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{submitter: submitter, advisor: advisor, logger: logger}
}

func (s *ChatService) SubmitMessage(ctx context.Context, req *SubmitMessageRequest) (*SubmitMessageResponse, error) {
	receipt, err := s.submitter.Submit(ctx, dispatch.SubmitRequest{
		RoomID:      req.RoomID,
		SenderID:    req.SenderID,
		Content:     req.Content,
		IsAutoReply: req.IsAutoReply,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	stages := make([]string, len(receipt.Stages))
	for i, st := range receipt.Stages {
		stages[i] = string(st)
	}
	return &SubmitMessageResponse{Message: messageToWire(receipt.Message), Stages: stages}, nil
}

func (s *ChatService) GenerateReplies(ctx context.Context, req *GenerateRepliesRequest) (*GenerateRepliesResponse, error) {
	t, err := event.ParseType(req.EventType)
	if err != nil {
		return nil, grpcstatus.Error(codes.InvalidArgument, err.Error())
	}
	set := s.advisor.GenerateReplies(ctx, req.RoomID, req.UserID, req.FriendID, t)
	if set.Fallback {
		s.logger.Info("served template replies", zap.Int64("room_id", req.RoomID), zap.Int64("user_id", req.UserID))
	}
	return replySetToWire(set), nil
}

func (s *ChatService) SuggestAutoReply(ctx context.Context, req *SuggestAutoReplyRequest) (*SuggestAutoReplyResponse, error) {
	t, err := event.ParseType(req.EventType)
	if err != nil {
		return nil, grpcstatus.Error(codes.InvalidArgument, err.Error())
	}
	sug := s.advisor.SuggestAutoReply(ctx, req.RoomID, req.UserID, req.FriendID, t)
	return &SuggestAutoReplyResponse{ShouldReply: sug.ShouldReply, Message: sug.Message, Reason: sug.Reason}, nil
}

func (s *ChatService) AnalyzeRelationship(ctx context.Context, req *AnalyzeRelationshipRequest) (*AnalyzeRelationshipResponse, error) {
	rel := s.advisor.AnalyzeRelationship(ctx, req.RoomID, req.UserID, req.FriendID)
	return &AnalyzeRelationshipResponse{Relationship: rel}, nil
}
