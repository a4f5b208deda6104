package domain

import "math"

// Sentinel marks a feature value that is unknown or could not be computed.
// It is used uniformly in the persisted canonical record and in scoring input.
const Sentinel = -999

// PlatformFeatures is the fixed, ordered list of canonical feature names the
// scoring model expects. The order and the exact spelling are part of the
// output contract and must not change.
var PlatformFeatures = []string{
	"MOTOR_GOFITTS_BEH_ID1_LeaveTime", "MOTOR_GOFITTS_BEH_ID2_LeaveTime",
	"MOTOR_GOFITTS_BEH_ID3_LeaveTime", "MOTOR_GOFITTS_BEH_ID4_LeaveTime",
	"MOTOR_GOFITTS_BEH_ID5_LeaveTime", "MOTOR_GOFITTS_BEH_ID6_LeaveTime",
	"MOTOR_GOFITTS_BEH_ID1_PointTime", "MOTOR_GOFITTS_BEH_ID2_PointTime",
	"MOTOR_GOFITTS_BEH_ID3_PointTime", "MOTOR_GOFITTS_BEH_ID4_PointTime",
	"MOTOR_GOFITTS_BEH_ID5_PointTime", "MOTOR_GOFITTS_BEH_ID6_PointTime",
	"MOTOR_GOFITTS_BEH_SLOPE_LeaveTime", "MOTOR_GOFITTS_BEH_SLOPE_PointTime",
	"MEMORY_EXCLUSION_BEH_C1_FAMILIARITY", "MEMORY_EXCLUSION_BEH_C2_FAMILIARITY",
	"MEMORY_EXCLUSION_BEH_C3_FAMILIARITY", "MEMORY_EXCLUSION_BEH_C1_RECOLLECTION",
	"MEMORY_EXCLUSION_BEH_C2_RECOLLECTION", "MEMORY_EXCLUSION_BEH_C3_RECOLLECTION",
	"MEMORY_EXCLUSION_BEH_C1TarHit_PROPORTION", "MEMORY_EXCLUSION_BEH_C1TarMiss_PROPORTION",
	"MEMORY_EXCLUSION_BEH_C1NonTarFA_PROPORTION", "MEMORY_EXCLUSION_BEH_C1NonTarCR_PROPORTION",
	"MEMORY_EXCLUSION_BEH_C1NewFA_PROPORTION", "MEMORY_EXCLUSION_BEH_C1NewCR_PROPORTION",
	"MEMORY_EXCLUSION_BEH_C1NonTarFA_RT", "MEMORY_EXCLUSION_BEH_C1NonTarCR_RT",
	"MEMORY_EXCLUSION_BEH_C1NewFA_RT", "MEMORY_EXCLUSION_BEH_C1NewCR_RT",
	"MEMORY_EXCLUSION_BEH_C2TarHit_PROPORTION", "MEMORY_EXCLUSION_BEH_C2TarMiss_PROPORTION",
	"MEMORY_EXCLUSION_BEH_C2NonTarFA_PROPORTION", "MEMORY_EXCLUSION_BEH_C2NonTarCR_PROPORTION",
	"MEMORY_EXCLUSION_BEH_C2NewFA_PROPORTION", "MEMORY_EXCLUSION_BEH_C2NewCR_PROPORTION",
	"MEMORY_EXCLUSION_BEH_C2TarHit_RT", "MEMORY_EXCLUSION_BEH_C2TarMiss_RT",
	"MEMORY_EXCLUSION_BEH_C2NonTarFA_RT", "MEMORY_EXCLUSION_BEH_C2NonTarCR_RT",
	"MEMORY_EXCLUSION_BEH_C2NewFA_RT", "MEMORY_EXCLUSION_BEH_C2NewCR_RT",
	"MEMORY_EXCLUSION_BEH_C3TarHit_PROPORTION", "MEMORY_EXCLUSION_BEH_C3TarMiss_PROPORTION",
	"MEMORY_EXCLUSION_BEH_C3NonTarFA_PROPORTION", "MEMORY_EXCLUSION_BEH_C3NonTarCR_PROPORTION",
	"MEMORY_EXCLUSION_BEH_C3NewFA_PROPORTION", "MEMORY_EXCLUSION_BEH_C3NewCR_PROPORTION",
	"MEMORY_EXCLUSION_BEH_C3TarHit_RT", "MEMORY_EXCLUSION_BEH_C3TarMiss_RT",
	"MEMORY_EXCLUSION_BEH_C3NonTarFA_RT", "MEMORY_EXCLUSION_BEH_C3NonTarCR_RT",
	"MEMORY_EXCLUSION_BEH_C3NewFA_RT", "MEMORY_EXCLUSION_BEH_C3NewCR_RT",
	"MEMORY_OSPAN_BEH_LETTER_ACCURACY", "MEMORY_OSPAN_BEH_MATH_ACCURACY",
	"LANGUAGE_SPEECHCOMP_BEH_PASSIVE_ACCURACY",
	"LANGUAGE_SPEECHCOMP_BEH_PASSIVE_RT", "LANGUAGE_READING_BEH_NULL_MeanSR",
}

// platformFeatureSet provides O(1) membership checks against PlatformFeatures.
var platformFeatureSet = func() map[string]struct{} {
	s := make(map[string]struct{}, len(PlatformFeatures))
	for _, name := range PlatformFeatures {
		s[name] = struct{}{}
	}
	return s
}()

// IsPlatformFeature reports whether name belongs to the canonical schema.
func IsPlatformFeature(name string) bool {
	_, ok := platformFeatureSet[name]
	return ok
}

// FeatureRecord is the flat output of a single task extractor for one
// subject: a set of named numeric values plus the order they were produced in.
// Records are treated as immutable once returned by an extractor.
type FeatureRecord struct {
	SubjectID string
	Names     []string
	Values    map[string]float64
}

// NewFeatureRecord creates an empty record for the given subject.
func NewFeatureRecord(subjectID string) *FeatureRecord {
	return &FeatureRecord{
		SubjectID: subjectID,
		Values:    make(map[string]float64),
	}
}

// Set adds or replaces a named value, preserving first-seen column order.
func (r *FeatureRecord) Set(name string, value float64) {
	if _, exists := r.Values[name]; !exists {
		r.Names = append(r.Names, name)
	}
	r.Values[name] = value
}

// Get returns the named value and whether it is present.
func (r *FeatureRecord) Get(name string) (float64, bool) {
	v, ok := r.Values[name]
	return v, ok
}

// Len returns the number of features in the record.
func (r *FeatureRecord) Len() int {
	return len(r.Names)
}

// CanonicalFeatureRecord maps every platform feature name to a value or the
// missing sentinel. The invariant is that every name in PlatformFeatures is
// always present as a key.
type CanonicalFeatureRecord map[string]float64

// NewCanonicalFeatureRecord returns an all-sentinel record covering the full
// platform schema.
func NewCanonicalFeatureRecord() CanonicalFeatureRecord {
	rec := make(CanonicalFeatureRecord, len(PlatformFeatures))
	for _, name := range PlatformFeatures {
		rec[name] = Sentinel
	}
	return rec
}

// IsMissing reports whether the named feature holds the sentinel.
func (rec CanonicalFeatureRecord) IsMissing(name string) bool {
	v, ok := rec[name]
	return !ok || v == Sentinel
}

// Clone returns a deep copy of the record.
func (rec CanonicalFeatureRecord) Clone() CanonicalFeatureRecord {
	out := make(CanonicalFeatureRecord, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

// SanitizeValue maps NaN and infinities onto the sentinel. Any finite value
// passes through unchanged.
func SanitizeValue(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Sentinel
	}
	return v
}
