package event

import "regexp"

// Classifier maps message text to an event type. Implementations must be
// safe for concurrent use.
type Classifier interface {
	Classify(text string) Type
}

var (
	replyPattern    = regexp.MustCompile(`(?i)(축하해|축하드|축하합|감사|고마워|명복|위로|잘됐|좋겠|부럽|갈게|참석|ㅊㅋ)`)
	weddingPattern  = regexp.MustCompile(`(?i)(결혼|웨딩|청첩장|식장|신랑|신부|혼인)`)
	birthdayPattern = regexp.MustCompile(`(?i)(생일|생축|태어난|birthday)`)
	funeralPattern  = regexp.MustCompile(`(?i)(장례|부고|돌아가|상가|조문|빈소)`)
	reunionPattern  = regexp.MustCompile(`(?i)(동창|모임|오랜만|reunion)`)
)

type rule struct {
	typ     Type
	pattern *regexp.Regexp
}

// PatternClassifier matches keyword patterns. Replies and acknowledgements
// ("축하해", "감사", "참석" ...) never count as announcements, even when they
// also contain an event keyword.
type PatternClassifier struct {
	exclude *regexp.Regexp
	rules   []rule
}

// NewPatternClassifier returns the default keyword classifier.
func NewPatternClassifier() *PatternClassifier {
	return &PatternClassifier{
		exclude: replyPattern,
		rules: []rule{
			{Wedding, weddingPattern},
			{Birthday, birthdayPattern},
			{Funeral, funeralPattern},
			{Reunion, reunionPattern},
		},
	}
}

func (c *PatternClassifier) Classify(text string) Type {
	if text == "" || c.exclude.MatchString(text) {
		return None
	}
	for _, r := range c.rules {
		if r.pattern.MatchString(text) {
			return r.typ
		}
	}
	return None
}

// Classify runs c on text unless the message is itself an automated reply.
// Auto-replies are never classified so they cannot trigger another round.
func Classify(c Classifier, text string, isAutoReply bool) Type {
	if isAutoReply || c == nil {
		return None
	}
	return c.Classify(text)
}
