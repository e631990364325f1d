package chat

import "strings"

var fallbackAnswers = []struct {
	keywords []string
	answer   string
}{
	{
		keywords: []string{"water"},
		answer:   "Most houseplants like to dry out slightly between waterings. Check the top inch of soil with your finger and water thoroughly when it feels dry, letting excess drain away.",
	},
	{
		keywords: []string{"light", "sun"},
		answer:   "Bright, indirect light suits most indoor plants. Leggy growth usually means too little light, while scorched or bleached leaves mean too much direct sun.",
	},
	{
		keywords: []string{"disease", "pest", "yellow", "spots"},
		answer:   "Yellowing or spotted leaves are often caused by overwatering, pests, or fungal problems. Isolate the plant, remove affected leaves, check the undersides for pests, and let the soil dry out before watering again.",
	},
	{
		keywords: []string{"fertiliz", "feed", "nutrient"},
		answer:   "Feed actively growing plants every 2-4 weeks in spring and summer with a balanced, diluted fertilizer. Cut back in autumn and winter when growth slows.",
	},
}

const genericAnswer = "I'm having trouble reaching the plant expert right now. In the meantime, check your plant's watering, light and soil conditions, and try asking again in a moment."

// FallbackAnswer is the canned reply used when the gateway is unavailable.
func FallbackAnswer(text string) string {
	lower := strings.ToLower(text)
	for _, f := range fallbackAnswers {
		for _, k := range f.keywords {
			if strings.Contains(lower, k) {
				return f.answer
			}
		}
	}
	return genericAnswer
}
