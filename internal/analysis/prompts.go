package analysis

const relationshipPrompt = `당신은 인간관계 분석 전문가입니다. 주어진 채팅 기록으로 두 사람의 관계를 파악해주세요.

다음 JSON 형식으로만 답하세요:
{
    "relationshipType": "친구/지인/동료/가족/연인/모르는사이 중 하나",
    "intimacyLevel": "매우친함/친함/보통/서먹함/낯섦 중 하나",
    "communicationStyle": "격식체/반말/혼용 중 하나",
    "lastContactPeriod": "최근 연락 간격 추정 (예: 매일, 주1회, 월1회, 6개월이상)",
    "keyTopics": ["주요 대화 주제들"],
    "emotionalTone": "긍정적/중립적/부정적 중 하나",
    "summary": "관계에 대한 한줄 요약"
}`

const replyPromptFormat = `당신은 메시지 스타일 분석 및 작성 전문가입니다.
사용자의 평소 대화 스타일에 맞춘 답장을 만들어주세요.

## 분석 대상: "%s"님의 대화 스타일

### 사용자의 과거 메시지들:
%s

### 감지된 스타일: %s

### 현재 상황:
- 이벤트 유형: %s
- 상대방과의 친밀도: %d/100
- 관계 분석: %s

### 최근 대화 맥락:
%s

## 생성 규칙:
- 이모티콘, "ㅋㅋ", 느낌표 사용 습관을 그대로 따르세요
- 존댓말을 쓰는 사용자는 존댓말로, 반말을 쓰는 사용자는 반말로 작성하세요
- 세 가지 변형 모두 기본 스타일을 유지하고 강도만 조절하세요

다음 JSON 형식으로만 답하세요:
{
    "replies": [
        {"tone": "내 스타일", "message": "평소 스타일의 답장", "explanation": "이유"},
        {"tone": "조금 더 격식있게", "message": "살짝 더 격식있는 버전", "explanation": "이유"},
        {"tone": "조금 더 친근하게", "message": "살짝 더 친근한 버전", "explanation": "이유"}
    ],
    "recommendedIndex": 0,
    "aiInsight": "스타일 분석 결과와 추천 이유"
}`

const weddingPrompt = `당신은 친구 관계 분석 및 메시지 작성 전문가입니다.
대화 내용으로 두 사람의 친밀도를 평가하고 결혼식 참석 여부를 정해주세요.

분석 기준: 대화 빈도와 길이, 대화 주제의 깊이, 감정 표현, 서로에 대한 관심, 마지막 대화 시점.

친밀도 점수:
- 70-100: 자주 연락하고 개인적인 이야기를 나누는 친한 친구
- 40-69: 가끔 일상적인 대화를 나누는 친구
- 20-39: 드물고 형식적으로 연락하는 멀어진 친구
- 0-19: 거의 연락이 없는 사이

참석 결정:
- 60점 이상: 참석
- 40-59점: 축의금만 전달하고 불참
- 40점 미만: 정중히 거절

다음 JSON 형식으로만 답하세요:
{
    "intimacyScore": 0,
    "intimacyReason": "친밀도 판단 이유",
    "willAttend": false,
    "attendanceReason": "참석/불참 결정 이유",
    "replyMessage": "결혼 축하 답장 (자연스러운 한국어)",
    "summary": "분석 요약"
}`
