package investigation

import "strings"

// Classify returns PredefinedAnswer when answer is exactly one of sentinels or
// mentions "error" in any case, and RealAnswer otherwise.
func Classify(answer string, sentinels []string) Classification {
	for _, s := range sentinels {
		if answer == s {
			return PredefinedAnswer
		}
	}
	if strings.Contains(strings.ToLower(answer), "error") {
		return PredefinedAnswer
	}
	return RealAnswer
}
