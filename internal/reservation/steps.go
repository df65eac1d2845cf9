package reservation

import "strings"

// Well-known step ids, shown in this order ahead of any custom steps.
const (
	StepBuilding  = "building"
	StepApartment = "apartment"
	StepRoom      = "room"
)

var stepPriority = []string{StepBuilding, StepApartment, StepRoom}

// photoKeywords maps a well-known step to the photo file-name hints that
// identify its door, plus the positional fallback index into the photo list.
var photoKeywords = map[string]struct {
	keywords []string
	index    int
}{
	StepBuilding:  {keywords: []string{"building", "portal", "entrance", "front"}, index: 0},
	StepApartment: {keywords: []string{"apartment", "unit", "door", "flat"}, index: 1},
	StepRoom:      {keywords: []string{"room"}, index: 2},
}

// OrderSteps puts building, apartment and room steps first, followed by all
// other steps in the order given. When a well-known id repeats, its last
// occurrence is kept.
func OrderSteps(steps []Step) []Step {
	ordered := make([]Step, 0, len(steps))
	for _, id := range stepPriority {
		for i := len(steps) - 1; i >= 0; i-- {
			if steps[i].ID == id {
				ordered = append(ordered, steps[i])
				break
			}
		}
	}
	for _, s := range steps {
		if !isPriorityStep(s.ID) {
			ordered = append(ordered, s)
		}
	}
	return ordered
}

func isPriorityStep(id string) bool {
	for _, p := range stepPriority {
		if id == p {
			return true
		}
	}
	return false
}

// StepPhoto picks the photo for a step: its own photo if set, else the first
// photo whose URL mentions one of the step's keywords, else the photo at the
// step's position, else the first photo. Returns "" when photos is empty.
func StepPhoto(stepID, own string, photos []string) string {
	if own != "" {
		return own
	}
	if len(photos) == 0 {
		return ""
	}

	hint, ok := photoKeywords[strings.ToLower(stepID)]
	if !ok {
		return photos[0]
	}

	for _, p := range photos {
		lp := strings.ToLower(p)
		for _, k := range hint.keywords {
			if strings.Contains(lp, k) {
				return p
			}
		}
	}
	if hint.index < len(photos) {
		return photos[hint.index]
	}
	return photos[0]
}

// AttachStepPhotos returns a copy of steps with PhotoURL resolved for each.
func AttachStepPhotos(steps []Step, photos []string) []Step {
	out := make([]Step, len(steps))
	for i, s := range steps {
		s.PhotoURL = StepPhoto(s.ID, s.PhotoURL, photos)
		out[i] = s
	}
	return out
}
