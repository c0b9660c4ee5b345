package detect

// AllLabels is the label taxonomy the detection backend can emit.
var AllLabels = []string{
	"FEMALE_GENITALIA_COVERED",
	"FACE_FEMALE",
	"BUTTOCKS_EXPOSED",
	"FEMALE_BREAST_EXPOSED",
	"FEMALE_GENITALIA_EXPOSED",
	"MALE_BREAST_EXPOSED",
	"ANUS_EXPOSED",
	"FEET_EXPOSED",
	"BELLY_COVERED",
	"FEET_COVERED",
	"ARMPITS_COVERED",
	"ARMPITS_EXPOSED",
	"FACE_MALE",
	"BELLY_EXPOSED",
	"MALE_GENITALIA_EXPOSED",
	"ANUS_COVERED",
	"FEMALE_BREAST_COVERED",
	"BUTTOCKS_COVERED",
}

// SensitiveLabels is the fixed subset that makes an image count as nude
// for the boolean endpoint.
var SensitiveLabels = []string{
	"BUTTOCKS_EXPOSED",
	"FEMALE_BREAST_EXPOSED",
	"FEMALE_GENITALIA_EXPOSED",
	"MALE_GENITALIA_EXPOSED",
	"ANUS_EXPOSED",
}

var sensitiveSet = func() map[string]bool {
	set := make(map[string]bool, len(SensitiveLabels))
	for _, l := range SensitiveLabels {
		set[l] = true
	}
	return set
}()

// IsSensitive reports whether the label is in the sensitive set.
func IsSensitive(label string) bool {
	return sensitiveSet[label]
}

// AnySensitive reports whether any detection carries a sensitive label.
func AnySensitive(detections []Detection) bool {
	for _, d := range detections {
		if IsSensitive(d.Label) {
			return true
		}
	}
	return false
}
