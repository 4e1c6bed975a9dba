package profile

// Relationship style category indices, in vector order.
const (
	StyleTPEDevotee = iota
	StyleMonogamousPartner
	StyleSceneBased
	StylePolyamorous
	StyleMentorGuided
	StyleFreeSpirit

	StyleCategories = 6
)

// StyleCategoryNames maps style category indices to their labels.
var StyleCategoryNames = [StyleCategories]string{
	"tpe_devotee",
	"monogamous_partner",
	"scene_based",
	"polyamorous",
	"mentor_guided",
	"free_spirit",
}

// Battery sizes. The personality battery has four questions per dimension;
// the style battery has one question per category.
const (
	PersonalityQuestions             = 20
	PersonalityOptions               = 4
	PersonalityQuestionsPerDimension = PersonalityQuestions / PersonalityDimensions

	StyleQuestions = 6
	StyleOptions   = 4
)

// batteryQuestion maps each of a question's answer options (0-3) to an
// integer contribution (0-3) toward a single target dimension or category.
type batteryQuestion struct {
	target        int
	contributions [PersonalityOptions]int
}

// personalityBattery is the fixed contribution table for the 20-question
// personality test. Question order and option contributions are part of
// the wire contract with the onboarding flow and must not be reordered.
var personalityBattery = [PersonalityQuestions]batteryQuestion{
	{DimEmotionalIntelligence, [4]int{0, 1, 2, 3}},
	{DimEthics, [4]int{3, 2, 1, 0}},
	{DimSensuality, [4]int{0, 2, 1, 3}},
	{DimStability, [4]int{1, 0, 3, 2}},
	{DimDynamicCompatibility, [4]int{0, 1, 3, 2}},
	{DimEmotionalIntelligence, [4]int{3, 1, 2, 0}},
	{DimEthics, [4]int{0, 1, 2, 3}},
	{DimSensuality, [4]int{2, 3, 0, 1}},
	{DimStability, [4]int{0, 3, 1, 2}},
	{DimDynamicCompatibility, [4]int{3, 0, 2, 1}},
	{DimEmotionalIntelligence, [4]int{1, 2, 0, 3}},
	{DimEthics, [4]int{2, 0, 3, 1}},
	{DimSensuality, [4]int{3, 1, 0, 2}},
	{DimStability, [4]int{2, 1, 3, 0}},
	{DimDynamicCompatibility, [4]int{1, 3, 0, 2}},
	{DimEmotionalIntelligence, [4]int{0, 3, 2, 1}},
	{DimEthics, [4]int{1, 3, 2, 0}},
	{DimSensuality, [4]int{0, 1, 2, 3}},
	{DimStability, [4]int{3, 2, 0, 1}},
	{DimDynamicCompatibility, [4]int{2, 1, 0, 3}},
}

// styleBattery is the fixed contribution table for the 6-question
// relationship-style test, one question per category.
var styleBattery = [StyleQuestions]batteryQuestion{
	{StyleTPEDevotee, [4]int{0, 1, 2, 3}},
	{StyleMonogamousPartner, [4]int{3, 2, 1, 0}},
	{StyleSceneBased, [4]int{0, 2, 3, 1}},
	{StylePolyamorous, [4]int{1, 0, 2, 3}},
	{StyleMentorGuided, [4]int{0, 3, 1, 2}},
	{StyleFreeSpirit, [4]int{2, 0, 1, 3}},
}

// TraitCatalog is the fixed set of selectable "important traits". Trait
// labels outside this catalog are rejected at normalization time.
var TraitCatalog = map[string]bool{
	"Trust":          true,
	"Honesty":        true,
	"Loyalty":        true,
	"Communication":  true,
	"Patience":       true,
	"Empathy":        true,
	"Discipline":     true,
	"Aftercare":      true,
	"Consent":        true,
	"Creativity":     true,
	"Humor":          true,
	"Adventure":      true,
	"Stability":      true,
	"Independence":   true,
	"Romance":        true,
	"Intelligence":   true,
	"Openness":       true,
	"Protectiveness": true,
	"Obedience":      true,
	"Ritual":         true,
	"Sensuality":     true,
	"Playfulness":    true,
	"Respect":        true,
	"Devotion":       true,
	"Experience":     true,
	"Curiosity":      true,
	"Tenderness":     true,
	"Structure":      true,
}
