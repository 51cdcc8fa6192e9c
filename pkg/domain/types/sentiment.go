package types

// Sentiment is the polarity assigned to a piece of feedback
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// IsValid checks if the sentiment is valid
func (s Sentiment) IsValid() bool {
	switch s {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return true
	default:
		return false
	}
}

// ChangeDirection maps sentiment to the trend direction of the underlying metric
func (s Sentiment) ChangeDirection() ChangeDirection {
	switch s {
	case SentimentNegative:
		return ChangeDirectionDown
	case SentimentPositive:
		return ChangeDirectionUp
	default:
		return ChangeDirectionStable
	}
}

func (s Sentiment) String() string {
	return string(s)
}
