package integrate

import (
	"errors"
	"fmt"
	"log/slog"

	"brainage/internal/infrastructure"
	"brainage/pkg/contracts/domain"
)

// renameTable maps raw extractor names onto canonical platform names. The
// pointing task numbers sequences from 0 while the platform schema numbers
// them from 1, so the ID rename is deliberately off by one.
var renameTable = buildRenameTable()

func buildRenameTable() map[string]string {
	t := map[string]string{
		"SPEECHCOMP_PASSIVE_ACCURACY": "LANGUAGE_SPEECHCOMP_BEH_PASSIVE_ACCURACY",
		"SPEECHCOMP_PASSIVE_RT":       "LANGUAGE_SPEECHCOMP_BEH_PASSIVE_RT",
	}
	for _, metric := range []string{"LeaveTime", "PointTime"} {
		for n := 0; n <= 5; n++ {
			t[fmt.Sprintf("GOFITTS_BEH_ID%d_%s", n, metric)] =
				fmt.Sprintf("MOTOR_GOFITTS_BEH_ID%d_%s", n+1, metric)
		}
		t["GOFITTS_BEH_SLOPE_"+metric] = "MOTOR_GOFITTS_BEH_SLOPE_" + metric
	}
	return t
}

// Normalizer folds freshly extracted records into the persisted canonical
// record of a subject: values are sanitized, raw names renamed onto the
// platform schema, names outside the schema dropped, and the merge never
// lets a fresh sentinel regress a known value.
type Normalizer struct {
	store  *Store
	logger *slog.Logger
}

// NewNormalizer creates a normalizer over the record store.
func NewNormalizer(store *Store, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{store: store, logger: logger}
}

// Update merges the incoming record into the subject's persisted canonical
// record and returns the updated record. The whole read-modify-write runs
// under the subject's store lock.
func (n *Normalizer) Update(subjectID string, incoming *domain.FeatureRecord) (domain.CanonicalFeatureRecord, error) {
	unlock := n.store.Lock(subjectID)
	defer unlock()

	current, err := n.store.Get(subjectID)
	if err != nil {
		if !errors.Is(err, ErrRecordNotFound) {
			return nil, err
		}
		current = domain.NewCanonicalFeatureRecord()
	}
	// Records written by older schema versions may lack newer names.
	for _, name := range domain.PlatformFeatures {
		if _, ok := current[name]; !ok {
			current[name] = domain.Sentinel
		}
	}

	dropped := 0
	updated := 0
	for _, rawName := range incoming.Names {
		name := rawName
		if canonical, ok := renameTable[rawName]; ok {
			name = canonical
		}
		if !domain.IsPlatformFeature(name) {
			dropped++
			continue
		}
		value := domain.SanitizeValue(incoming.Values[rawName])
		if value == domain.Sentinel {
			continue
		}
		current[name] = value
		updated++
	}

	if err := n.store.Put(subjectID, current); err != nil {
		return nil, err
	}
	infrastructure.RecordsUpdated.Inc()

	n.logger.Info("canonical record updated",
		"subject_id", subjectID,
		"updated", updated,
		"dropped", dropped,
	)
	return current, nil
}
