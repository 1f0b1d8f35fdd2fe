package analysis

import (
	"fmt"
	"strings"
)

// Register is the speech level a user writes in.
type Register int

const (
	Casual Register = iota // 반말
	Polite                 // 존댓말
)

func (r Register) String() string {
	if r == Polite {
		return "존댓말"
	}
	return "반말"
}

// Style summarises how a user writes, learned from their recent messages.
type Style struct {
	UsesEmoji    bool
	UsesLaughter bool
	HighTension  bool
	Register     Register
}

// DetectStyle inspects a user's messages. With no messages the style is
// plain casual.
func DetectStyle(messages []string) Style {
	if len(messages) == 0 {
		return Style{}
	}
	all := strings.Join(messages, " ")

	var s Style
	exclamations := 0
	for _, r := range all {
		if (r >= 0x1F300 && r <= 0x1F9FF) || (r >= 0x2600 && r <= 0x26FF) {
			s.UsesEmoji = true
		}
		if r == '!' {
			exclamations++
		}
	}
	s.UsesLaughter = strings.Contains(all, "ㅋㅋ") || strings.Contains(all, "ㅎㅎ")
	s.HighTension = exclamations > len(messages)*2
	if strings.Contains(all, "요") || strings.Contains(all, "습니다") || strings.Contains(all, "세요") {
		s.Register = Polite
	}
	return s
}

// Describe renders the style as a short Korean summary.
func (s Style) Describe() string {
	return fmt.Sprintf("이모지%s, %s, 텐션%s",
		yesNo(s.UsesEmoji), s.Register, pick(s.HighTension, "높음", "보통"))
}

func yesNo(b bool) string { return pick(b, "O", "X") }

func pick(b bool, yes, no string) string {
	if b {
		return yes
	}
	return no
}
