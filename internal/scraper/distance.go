package scraper

import "regexp"

// Distance labels produced by InferDistances.
const (
	LabelHalfMarathon = "Half Marathon"
	LabelUltra        = "Ultra"
	LabelMarathon     = "Marathon"
	Label10K          = "10K"
	Label5K           = "5K"
)

var (
	halfMarathonPattern = regexp.MustCompile(`(?i)half[\s-]*marathon|\b21(?:\.1)?\s?k(?:m)?\b`)
	ultraPattern        = regexp.MustCompile(`(?i)ultra|\b(?:50|75|100)\s?k(?:m)?\b`)
	marathonPattern     = regexp.MustCompile(`(?i)marathon|\b42(?:\.2)?\s?k(?:m)?\b`)
	tenKPattern         = regexp.MustCompile(`(?i)\b10\s?k(?:m)?\b`)
	fiveKPattern        = regexp.MustCompile(`(?i)\b5\s?k(?:m)?\b`)
)

// InferDistances guesses distance labels from an event name for sources
// that do not expose categories. Rules are ordered: a name already
// classified as half marathon or ultra never also gets the plain
// marathon label.
func InferDistances(name string) []string {
	labels := []string{}

	half := halfMarathonPattern.MatchString(name)
	ultra := ultraPattern.MatchString(name)

	if half {
		labels = append(labels, LabelHalfMarathon)
	}
	if ultra {
		labels = append(labels, LabelUltra)
	}
	if !half && !ultra && marathonPattern.MatchString(name) {
		labels = append(labels, LabelMarathon)
	}
	if tenKPattern.MatchString(name) {
		labels = append(labels, Label10K)
	}
	if fiveKPattern.MatchString(name) {
		labels = append(labels, Label5K)
	}

	return labels
}
