package domain

// CognitiveDomain identifies one of the five fixed groupings of platform
// features used for domain-level scoring.
type CognitiveDomain string

const (
	DomainWorkingMemory         CognitiveDomain = "working_memory"
	DomainEpisodicMemory        CognitiveDomain = "episodic_memory"
	DomainLanguageComprehension CognitiveDomain = "language_comprehension"
	DomainLanguageProduction    CognitiveDomain = "language_production"
	DomainMotor                 CognitiveDomain = "motor"
)

// MotorFeaturePrefix selects the motor domain's features out of the platform
// schema. Every platform feature with this prefix belongs to the motor domain.
const MotorFeaturePrefix = "MOTOR_GOFITTS_BEH"

// CognitiveDomains lists the domains in their reporting order.
var CognitiveDomains = []CognitiveDomain{
	DomainWorkingMemory,
	DomainEpisodicMemory,
	DomainLanguageComprehension,
	DomainLanguageProduction,
	DomainMotor,
}

// DomainFeatures returns the fixed feature-name list for each domain. The
// motor domain is derived from the platform schema by prefix; the others are
// enumerated explicitly.
func DomainFeatures(d CognitiveDomain) []string {
	switch d {
	case DomainWorkingMemory:
		return []string{"MEMORY_OSPAN_BEH_LETTER_ACCURACY"}
	case DomainEpisodicMemory:
		return []string{
			"MEMORY_EXCLUSION_BEH_C1_RECOLLECTION",
			"MEMORY_EXCLUSION_BEH_C2_RECOLLECTION",
			"MEMORY_EXCLUSION_BEH_C3_RECOLLECTION",
		}
	case DomainLanguageComprehension:
		return []string{"LANGUAGE_SPEECHCOMP_BEH_PASSIVE_ACCURACY"}
	case DomainLanguageProduction:
		return []string{"LANGUAGE_READING_BEH_NULL_MeanSR"}
	case DomainMotor:
		var names []string
		for _, f := range PlatformFeatures {
			if len(f) >= len(MotorFeaturePrefix) && f[:len(MotorFeaturePrefix)] == MotorFeaturePrefix {
				names = append(names, f)
			}
		}
		return names
	default:
		return nil
	}
}

// DomainScore holds one domain's percentile for a subject. Percentile is an
// integer in [10,100], or exactly -1 when the domain could not be scored.
type DomainScore struct {
	Name       CognitiveDomain `json:"name"`
	Percentile int             `json:"score"`
}

// UnknownAge is the chronological-age value meaning "not provided". All
// numeric scoring outputs collapse to "-1" strings when age is unknown.
const UnknownAge = -1

// ScoredResult is the scoring outcome for one subject. Fixed-precision
// string fields carry "%.2f" renderings, or "-1" when suppressed.
type ScoredResult struct {
	SubjectID        string        `json:"subject_id"`
	ChronologicalAge int           `json:"chronological_age"`
	BrainAge         string        `json:"brain_age"`
	OriginalPAD      string        `json:"original_pad"`
	AgeCorrectedPAD  string        `json:"age_corrected_pad"`
	Domains          []DomainScore `json:"domains"`
	// Suppressed is true when an under-observed domain invalidated the
	// brain-age prediction (the per-domain percentiles are still reported).
	Suppressed bool `json:"suppressed"`
}
