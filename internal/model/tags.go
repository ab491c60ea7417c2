package model

// Qualitative tags derived from successful analyzer results. They feed the
// verdict summary and conflict rules.
const (
	TagVerifiableClaims = "Has verifiable claims"
)

// TagMedia returns the tag for a media verdict
func TagMedia(v MediaVerdict) string {
	return "Media: " + string(v)
}

// TagBias returns the tag for a context bias label
func TagBias(bias string) string {
	return "Bias: " + bias
}
