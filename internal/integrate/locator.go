// Package integrate locates raw task files, runs the per-task extractors,
// merges their output, and maintains the persisted canonical feature record
// of each subject.
package integrate

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"brainage/internal/extract"
)

// ErrNoRawFile is returned when no raw file of a task matches the subject.
var ErrNoRawFile = errors.New("no raw file for subject")

// Locator resolves one raw file per subject and task from a task data
// directory using prioritized filename patterns.
type Locator struct{}

// taskPatterns are the glob patterns tried in priority order. Filenames embed
// the subject ID as the leading token; exports are inconsistent about task
// name casing and some older exports use a generic "experiment" label.
func taskPatterns(task extract.Task, subjectID string) []string {
	switch task {
	case extract.TaskGoFitts:
		return []string{
			subjectID + "_GoFitts_*.csv",
			subjectID + "_gofitts_*.csv",
		}
	case extract.TaskTextReading:
		return []string{
			subjectID + "_TextReading_*.webm",
		}
	case extract.TaskExclusion:
		return []string{
			subjectID + "_Exclusion_*.csv",
			subjectID + "_exclusion_*.csv",
			subjectID + "_experiment_*.csv",
		}
	case extract.TaskOspan:
		return []string{
			subjectID + "_Ospan_*.csv",
			subjectID + "_ospan_*.csv",
			subjectID + "_experiment_*.csv",
		}
	case extract.TaskSpeechComp:
		return []string{
			subjectID + "_SpeechComp_*.csv",
			subjectID + "_speechcomp_*.csv",
			subjectID + "_experiment_*.csv",
		}
	default:
		return nil
	}
}

// Locate returns the raw file to extract for the subject and task. The first
// pattern with any match wins; within a pattern, the lexicographically last
// filename wins, so re-exports with a later timestamp shadow earlier ones.
// Demo files are never selected.
func (Locator) Locate(task extract.Task, dataDir, subjectID string) (string, error) {
	for _, pattern := range taskPatterns(task, subjectID) {
		matches, err := filepath.Glob(filepath.Join(dataDir, pattern))
		if err != nil {
			return "", fmt.Errorf("glob %s: %w", pattern, err)
		}
		matches = dropDemoFiles(matches)
		if len(matches) == 0 {
			continue
		}
		sort.Strings(matches)
		return matches[len(matches)-1], nil
	}
	return "", fmt.Errorf("%w: task %s, subject %s", ErrNoRawFile, task, subjectID)
}

// dropDemoFiles removes practice exports, which carry "demo" somewhere in
// the filename.
func dropDemoFiles(paths []string) []string {
	out := paths[:0]
	for _, p := range paths {
		if strings.Contains(strings.ToLower(filepath.Base(p)), "demo") {
			continue
		}
		out = append(out, p)
	}
	return out
}
