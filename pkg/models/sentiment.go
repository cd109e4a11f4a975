package models

// The mobile app records emotions as integer codes. The listing page renders
// the bilingual label and a Tailwind color class per code; unknown codes fall
// back to gray.

// MobileTimestampLayout is the compact layout the companion app writes
// (no separator between date and time).
const MobileTimestampLayout = "2006-01-0215:04:05"

// EmotionScoreMin and EmotionScoreMax bound a valid emotion score.
const (
	EmotionScoreMin = 0.0
	EmotionScoreMax = 1.0
)

// Sentiment describes one emotion code's display mapping.
type Sentiment struct {
	Code       int
	Label      string
	ColorClass string
}

var sentiments = map[int]Sentiment{
	1: {Code: 1, Label: "anxiety", ColorClass: "text-red-600"},
	2: {Code: 2, Label: "sadness", ColorClass: "text-blue-600"},
	3: {Code: 3, Label: "calm", ColorClass: "text-gray-600"},
	4: {Code: 4, Label: "joy", ColorClass: "text-green-600"},
	5: {Code: 5, Label: "excited", ColorClass: "text-yellow-600"},
}

var sentimentsByLabel = func() map[string]Sentiment {
	m := make(map[string]Sentiment, len(sentiments))
	for _, s := range sentiments {
		m[s.Label] = s
	}
	return m
}()

// SentimentByCode returns the display mapping for an emotion code.
func SentimentByCode(code int) (Sentiment, bool) {
	s, ok := sentiments[code]
	return s, ok
}

// SentimentByLabel returns the display mapping for an emotion label.
func SentimentByLabel(label string) (Sentiment, bool) {
	s, ok := sentimentsByLabel[label]
	return s, ok
}

// UnknownSentiment is the fallback for codes/labels the service does not know.
var UnknownSentiment = Sentiment{Code: 0, Label: "unknown", ColorClass: "text-gray-400"}
