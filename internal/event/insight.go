package event

// LowIntimacy is the score below which insights suggest a careful answer.
const LowIntimacy = 30

// Insight is the hint attached to a message announcing t. intimacy is the
// sender's score toward the recipient, or -1 when unknown or there is no
// single recipient.
func Insight(t Type, intimacy int) string {
	if intimacy >= 0 && intimacy < LowIntimacy {
		switch t {
		case Wedding:
			return "오랜만의 연락입니다. 신중한 답변이 필요합니다."
		case Birthday:
			return "친밀도가 낮은 관계입니다. 간단한 축하 메시지를 추천합니다."
		case Funeral:
			return "조심스러운 위로의 말씀이 필요합니다."
		case Reunion:
			return "오랜만에 연락이 왔습니다. 반가운 인사를 추천합니다."
		}
	}
	switch t {
	case Wedding:
		return "결혼 관련 메시지가 감지되었습니다."
	case Birthday:
		return "생일 관련 메시지가 감지되었습니다."
	case Funeral:
		return "부고 관련 메시지가 감지되었습니다."
	case Reunion:
		return "모임/동창 관련 메시지가 감지되었습니다."
	}
	return ""
}
