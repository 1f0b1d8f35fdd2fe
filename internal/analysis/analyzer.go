package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/lifechat/internal/event"
	"github.com/matheus3301/lifechat/internal/intimacy"
	"github.com/matheus3301/lifechat/internal/store"
)

// History window sizes fed to the backend.
const (
	conversationLimit = 100
	styleSampleLimit  = 30
	replyContextLimit = 15
)

// Source is the read side the analyzer needs from storage.
type Source interface {
	// RecentHistory returns the last limit messages of a room, oldest first.
	RecentHistory(ctx context.Context, roomID int64, limit int) ([]store.Message, error)
	// MessagesBySender returns a user's last limit messages, newest first.
	MessagesBySender(ctx context.Context, senderID int64, limit int) ([]store.Message, error)
	Intimacy(ctx context.Context, userID, friendID int64) (intimacy.State, bool, error)
	DisplayName(ctx context.Context, userID int64) (string, error)
	Settings(ctx context.Context, userID int64) (store.Settings, error)
}

// Completer is the backend call the analyzer depends on.
type Completer interface {
	AnalyzeJSON(ctx context.Context, systemPrompt, userPrompt string, timeout time.Duration, out any) error
}

// Analyzer builds prompts from stored conversations and interprets the
// backend's answers. Every method falls back to a deterministic result when
// the backend fails.
type Analyzer struct {
	client  Completer
	source  Source
	timeout time.Duration
	logger  *zap.Logger
}

// NewAnalyzer creates an analyzer. timeout bounds each backend call.
func NewAnalyzer(client Completer, source Source, timeout time.Duration, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{client: client, source: source, timeout: timeout, logger: logger}
}

// Relationship is the backend's summary of a friendship.
type Relationship struct {
	RelationshipType   string   `json:"relationshipType"`
	IntimacyLevel      string   `json:"intimacyLevel"`
	CommunicationStyle string   `json:"communicationStyle"`
	LastContactPeriod  string   `json:"lastContactPeriod"`
	KeyTopics          []string `json:"keyTopics"`
	EmotionalTone      string   `json:"emotionalTone"`
	Summary            string   `json:"summary"`
}

// NeutralRelationship is returned when there is nothing to analyze or the
// backend failed.
func NeutralRelationship() Relationship {
	return Relationship{
		RelationshipType:   "지인",
		IntimacyLevel:      "보통",
		CommunicationStyle: "혼용",
		LastContactPeriod:  "알 수 없음",
		KeyTopics:          []string{},
		EmotionalTone:      "중립적",
		Summary:            "분석할 대화 기록이 부족합니다",
	}
}

// FormatHistory renders messages as "[time] sender: content" lines, naming
// the viewer "나".
func FormatHistory(msgs []store.Message, viewerID int64) string {
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		sender := m.SenderName
		if m.SenderID == viewerID {
			sender = "나"
		}
		fmt.Fprintf(&b, "[%s] %s: %s", m.CreatedAt.Format("2006-01-02T15:04:05"), sender, m.Content)
	}
	return b.String()
}

func (a *Analyzer) score(ctx context.Context, userID, friendID int64) int {
	st, ok, err := a.source.Intimacy(ctx, userID, friendID)
	if err != nil || !ok {
		return intimacy.Default
	}
	return st.Score
}

// AnalyzeRelationship summarises the friendship between userID and friendID
// as seen in roomID.
func (a *Analyzer) AnalyzeRelationship(ctx context.Context, roomID, userID, friendID int64) Relationship {
	msgs, err := a.source.RecentHistory(ctx, roomID, conversationLimit)
	if err != nil {
		a.logger.Warn("load history for relationship analysis", zap.Int64("room_id", roomID), zap.Error(err))
		return NeutralRelationship()
	}
	if len(msgs) == 0 {
		return NeutralRelationship()
	}
	prompt := fmt.Sprintf("현재 친밀도 점수: %d/100\n\n채팅 기록:\n%s",
		a.score(ctx, userID, friendID), FormatHistory(msgs, userID))

	var out Relationship
	if err := a.client.AnalyzeJSON(ctx, relationshipPrompt, prompt, a.timeout, &out); err != nil {
		return NeutralRelationship()
	}
	if out.KeyTopics == nil {
		out.KeyTopics = []string{}
	}
	return out
}

type replyWire struct {
	Replies []struct {
		Tone        string `json:"tone"`
		Message     string `json:"message"`
		Explanation string `json:"explanation"`
	} `json:"replies"`
	RecommendedIndex *int   `json:"recommendedIndex"`
	AIInsight        string `json:"aiInsight"`
}

func (w replyWire) toSet() (ReplySet, bool) {
	if len(w.Replies) < len(Tones) {
		return ReplySet{}, false
	}
	var set ReplySet
	for i, tone := range Tones {
		r := w.Replies[i]
		if strings.TrimSpace(r.Message) == "" {
			return ReplySet{}, false
		}
		set.Replies[i] = Reply{Tone: tone, Message: r.Message, Explanation: r.Explanation}
	}
	if w.RecommendedIndex != nil && *w.RecommendedIndex >= 0 && *w.RecommendedIndex < len(Tones) {
		set.RecommendedIndex = *w.RecommendedIndex
	}
	set.Insight = w.AIInsight
	return set, true
}

// GenerateReplies suggests three replies from userID to friendID about t,
// written in the user's own style. It never fails: backend problems yield
// template replies.
func (a *Analyzer) GenerateReplies(ctx context.Context, roomID, userID, friendID int64, t event.Type) ReplySet {
	score := a.score(ctx, userID, friendID)

	own, err := a.source.MessagesBySender(ctx, userID, styleSampleLimit)
	if err != nil {
		a.logger.Warn("load style sample", zap.Int64("user_id", userID), zap.Error(err))
	}
	samples := make([]string, len(own))
	for i, m := range own {
		samples[i] = m.Content
	}
	style := DetectStyle(samples)

	recent, err := a.source.RecentHistory(ctx, roomID, replyContextLimit)
	if err != nil {
		a.logger.Warn("load reply context", zap.Int64("room_id", roomID), zap.Error(err))
	}
	name, err := a.source.DisplayName(ctx, userID)
	if err != nil || name == "" {
		name = "사용자"
	}
	rel := a.AnalyzeRelationship(ctx, roomID, userID, friendID)

	prompt := fmt.Sprintf(replyPromptFormat,
		name, strings.Join(samples, "\n"), style.Describe(), t, score, rel.Summary, FormatHistory(recent, userID))

	var wire replyWire
	if err := a.client.AnalyzeJSON(ctx, "", prompt, a.timeout, &wire); err != nil {
		return TemplateReplies(t, style, score)
	}
	set, ok := wire.toSet()
	if !ok {
		a.logger.Warn("backend returned incomplete replies, using templates", zap.Int64("room_id", roomID))
		return TemplateReplies(t, style, score)
	}
	return set
}

// Suggestion says whether a reply should be sent automatically and which.
type Suggestion struct {
	ShouldReply bool
	Message     string
	Reason      string
}

// SuggestAutoReply applies the user's auto-reply settings: replies are only
// suggested in AUTO mode and when the intimacy score does not exceed the
// user's threshold. Close friends get a human answer.
func (a *Analyzer) SuggestAutoReply(ctx context.Context, roomID, userID, friendID int64, t event.Type) Suggestion {
	settings, err := a.source.Settings(ctx, userID)
	if err != nil || settings.ReplyMode != store.ReplyAuto {
		return Suggestion{Reason: "자동 답장이 비활성화되어 있습니다"}
	}
	score := intimacy.Max
	if st, ok, err := a.source.Intimacy(ctx, userID, friendID); err == nil && ok {
		score = st.Score
	}
	if score > settings.AutoReplyThreshold {
		return Suggestion{Reason: fmt.Sprintf("친밀도(%d)가 자동 답장 임계값(%d)보다 높습니다", score, settings.AutoReplyThreshold)}
	}
	chosen := a.GenerateReplies(ctx, roomID, userID, friendID, t).Recommended()
	return Suggestion{
		ShouldReply: true,
		Message:     chosen.Message,
		Reason:      fmt.Sprintf("친밀도 %d점, %s 어조로 자동 답장 생성", score, chosen.Tone.Label()),
	}
}

// WeddingDecision is the backend's verdict on a wedding invitation.
type WeddingDecision struct {
	IntimacyScore    int    `json:"intimacyScore"`
	IntimacyReason   string `json:"intimacyReason"`
	WillAttend       bool   `json:"willAttend"`
	AttendanceReason string `json:"attendanceReason"`
	ReplyMessage     string `json:"replyMessage"`
	Summary          string `json:"summary"`
	// Fallback is set when the decision did not come from the backend.
	Fallback bool `json:"-"`
}

// DefaultWeddingDecision is the polite non-committal answer used when the
// conversation cannot be analysed.
func DefaultWeddingDecision() WeddingDecision {
	return WeddingDecision{
		IntimacyScore:    intimacy.Default,
		IntimacyReason:   "대화 기록 분석 불가",
		WillAttend:       false,
		AttendanceReason: "분석 실패로 인해 기본 응답",
		ReplyMessage:     "결혼 축하해! 행복하게 잘 살아~",
		Summary:          "AI 분석이 불가능하여 기본 답장을 생성했습니다",
		Fallback:         true,
	}
}

// Insight renders the decision as the note attached to the auto-reply.
func (d WeddingDecision) Insight() string {
	return fmt.Sprintf("친밀도: %d점 | %s | %s",
		d.IntimacyScore, pick(d.WillAttend, "참석 예정", "불참 예정"), d.AttendanceReason)
}

// DecideWedding asks the backend whether recipientID should attend
// senderID's wedding and what to answer. An empty conversation or any
// backend failure yields DefaultWeddingDecision; only a storage error is
// returned.
func (a *Analyzer) DecideWedding(ctx context.Context, roomID, recipientID, senderID int64) (WeddingDecision, error) {
	msgs, err := a.source.RecentHistory(ctx, roomID, conversationLimit)
	if err != nil {
		return WeddingDecision{}, fmt.Errorf("load history: %w", err)
	}
	if len(msgs) == 0 {
		return DefaultWeddingDecision(), nil
	}
	friend, err := a.source.DisplayName(ctx, senderID)
	if err != nil || friend == "" {
		friend = "친구"
	}
	prompt := fmt.Sprintf("분석 대상: 나와 %s의 대화\n\n대화 기록:\n%s", friend, FormatHistory(msgs, recipientID))

	var d WeddingDecision
	if err := a.client.AnalyzeJSON(ctx, weddingPrompt, prompt, a.timeout, &d); err != nil {
		a.logger.Warn("wedding analysis failed, using default reply", zap.Int64("room_id", roomID), zap.Error(err))
		return DefaultWeddingDecision(), nil
	}
	if strings.TrimSpace(d.ReplyMessage) == "" {
		a.logger.Warn("wedding analysis returned no reply, using default", zap.Int64("room_id", roomID))
		return DefaultWeddingDecision(), nil
	}
	d.IntimacyScore = intimacy.Clamp(d.IntimacyScore)
	return d, nil
}
