package analysis

import (
	"fmt"

	"github.com/matheus3301/lifechat/internal/event"
)

// Tone is the register of one reply variant.
type Tone int

const (
	Natural  Tone = iota // the user's own style
	Formal               // a little more formal
	Friendly             // a little more familiar
)

// Tones lists the variants in the order replies are returned.
var Tones = [...]Tone{Natural, Formal, Friendly}

func (t Tone) String() string {
	switch t {
	case Natural:
		return "natural"
	case Formal:
		return "formal"
	case Friendly:
		return "friendly"
	}
	return fmt.Sprintf("Tone(%d)", int(t))
}

// Label is the Korean caption shown next to the variant.
func (t Tone) Label() string {
	switch t {
	case Formal:
		return "조금 더 격식있게"
	case Friendly:
		return "조금 더 친근하게"
	}
	return "내 스타일"
}

// Reply is one suggested answer.
type Reply struct {
	Tone        Tone
	Message     string
	Explanation string
}

// ReplySet is a full suggestion: one reply per tone and the one to prefer.
type ReplySet struct {
	Replies          [len(Tones)]Reply
	RecommendedIndex int
	Insight          string
	// Fallback is set when the replies come from templates instead of the backend.
	Fallback bool
}

// Recommended returns the preferred reply.
func (s ReplySet) Recommended() Reply {
	return s.Replies[s.RecommendedIndex]
}

// TemplateReplies builds a deterministic suggestion for t, shaped by the
// user's style.
func TemplateReplies(t event.Type, style Style, intimacy int) ReplySet {
	natural, formal, friendly := templateMessages(t, style)
	return ReplySet{
		Replies: [len(Tones)]Reply{
			{Tone: Natural, Message: natural, Explanation: "평소 대화 패턴(" + style.Describe() + ")을 반영한 답장"},
			{Tone: Formal, Message: formal, Explanation: "살짝 더 격식을 갖춘 버전"},
			{Tone: Friendly, Message: friendly, Explanation: "살짝 더 친근한 버전"},
		},
		RecommendedIndex: 0,
		Insight:          fmt.Sprintf("AI 분석이 불가능하여 기본 답장을 제공합니다. 친밀도(%d점)를 기반으로 추천합니다.", intimacy),
		Fallback:         true,
	}
}

func templateMessages(t event.Type, s Style) (natural, formal, friendly string) {
	emoji := pick(s.UsesEmoji, " 💕", "")
	laugh := pick(s.UsesLaughter, " ㅋㅋ", "")
	bang := pick(s.HighTension, "!!", "")
	polite := s.Register == Polite

	switch t {
	case event.Wedding:
		if polite {
			natural = pick(s.HighTension,
				"헐 결혼 축하드려요!!"+emoji+" 정말 기쁜 소식이에요! 꼭 갈게요!",
				"결혼 축하드려요"+emoji+" 좋은 소식이네요. 꼭 참석할게요.")
			formal = "결혼을 진심으로 축하드립니다. 행복한 가정 이루시길 바랍니다."
			friendly = "와 결혼 축하드려요!!" + emoji + laugh + " 너무 기뻐요! 꼭 갈게요!"
			return
		}
		natural = pick(s.HighTension,
			"헐 축하해"+bang+emoji+" 드디어"+bang+" 꼭 갈게"+bang,
			"축하해"+emoji+laugh+" 꼭 갈게~")
		formal = "축하해" + emoji + " 결혼 잘 하고 행복하게 살아~"
		friendly = "아 진짜" + bang + " 대박" + bang + emoji + laugh + " 완전 축하해" + bang + " 무조건 갈게" + bang
	case event.Birthday:
		if polite {
			natural = pick(s.HighTension,
				"생일 축하드려요!!"+emoji+" 좋은 하루 보내세요!",
				"생일 축하드려요"+emoji+" 행복한 하루 되세요.")
			formal = "생신 축하드립니다. 건강하고 행복한 한 해 되시길 바랍니다."
			friendly = "생축이에요!!" + emoji + laugh + " 맛있는 거 드세요!"
			return
		}
		natural = pick(s.HighTension,
			"생축"+bang+emoji+laugh+" 맛있는 거 먹어"+bang,
			"생일 축하해"+emoji+laugh+" 좋은 하루 보내~")
		formal = "생일 축하해" + emoji + " 좋은 하루 보내~"
		friendly = "야 생축" + bang + bang + emoji + laugh + " 선물 뭐 갖고싶어" + bang
	case event.Funeral:
		if polite {
			return "삼가 고인의 명복을 빕니다. 힘내세요.",
				"삼가 故人의 명복을 빕니다. 유가족분들께 깊은 위로의 말씀을 드립니다.",
				"정말 마음이 아프네요.. 힘든 시간 잘 이겨내세요. 필요한 거 있으면 말씀해주세요."
		}
		return "삼가 고인의 명복을 빌어.. 많이 힘들겠다. 필요한 거 있으면 말해.",
			"삼가 고인의 명복을 빕니다. 힘내.",
			"정말 마음이 아프다.. 옆에 있어줄게. 힘든 거 있으면 다 말해."
	case event.Reunion:
		if polite {
			natural = pick(s.HighTension,
				"오랜만이에요!!"+emoji+" 너무 반가워요!",
				"오랜만이에요"+emoji+" 잘 지내셨어요?")
			formal = "오랜만에 연락드려요. 그동안 잘 지내셨나요?"
			friendly = "헐 오랜만이에요!!" + emoji + laugh + " 보고싶었어요!"
			return
		}
		natural = pick(s.HighTension,
			"오랜만"+bang+emoji+laugh+" 어떻게 지냈어"+bang,
			"오랜만이야"+emoji+laugh+" 잘 지냈어?")
		formal = "오랜만이야" + emoji + " 잘 지내고 있었어?"
		friendly = "헐 오랜만" + bang + bang + emoji + laugh + " 보고싶었어" + bang + " 뭐해" + bang
	default:
		if polite {
			return "네, 확인했어요" + emoji, "네, 확인하였습니다.", "넵넵" + bang + emoji + laugh
		}
		return "ㅇㅋ 확인" + emoji + laugh, "응 확인했어" + emoji, "ㅇㅋㅇㅋ" + bang + emoji + laugh
	}
	return
}
