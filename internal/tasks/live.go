package tasks

import "regexp"

// Live-recording detection patterns. A track is flagged live when its title
// or album contains one of the keywords as a whole word (case-insensitive)
// or an embedded YYYY-MM-DD / YYYY/MM/DD date, the convention for concert
// bootleg albums.
var (
	livePattern = regexp.MustCompile(`(?i)\b(?:live|concert|sbd|bootleg)\b`)
	datePattern = regexp.MustCompile(`\d{4}[-/]\d{2}[-/]\d{2}`)
)

// IsLiveRecording reports whether a track looks like a live recording based
// on its title and album text. Computed once at sync time and stored; never
// recomputed per query.
func IsLiveRecording(title, album string) bool {
	for _, text := range []string{title, album} {
		if datePattern.MatchString(text) {
			return true
		}
		if livePattern.MatchString(text) {
			return true
		}
	}
	return false
}
