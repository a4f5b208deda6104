// Command integrate reprocesses one subject's local raw files end to end:
// extraction, normalization into the canonical record, and optionally a
// brain-age prediction when a chronological age is given.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"brainage/internal/config"
	"brainage/internal/extract"
	"brainage/internal/fitts"
	"brainage/internal/infrastructure"
	"brainage/internal/integrate"
	"brainage/internal/scoring"
	"brainage/internal/transcribe"
	"brainage/pkg/contracts/domain"
)

func main() {
	subjectID := flag.String("subject", "", "subject ID to reprocess (required)")
	age := flag.Int("age", domain.UnknownAge, "chronological age; when given, a prediction is printed after integration")
	flag.Parse()

	if *subjectID == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*subjectID, *age); err != nil {
		fmt.Fprintf(os.Stderr, "integrate failed: %v\n", err)
		os.Exit(1)
	}
}

func run(subjectID string, age int) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	store, err := integrate.NewStore(cfg.Paths.ResultsDir)
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}

	analyzer := fitts.NewAnalyzer(cfg.External.JavaBin, cfg.External.FittsJar, cfg.External.AnalyzeTimeout, logger)
	transcriber := transcribe.NewTranscriber(cfg.External.TranscriberBin, cfg.External.TranscribeTimeout, logger)

	registry := extract.NewRegistry(
		extract.NewExclusionExtractor(logger),
		extract.NewOspanExtractor(logger),
		extract.NewSpeechCompExtractor(logger),
		extract.NewGoFittsExtractor(analyzer, logger),
		extract.NewTextReadingExtractor(transcriber, logger),
	)
	dirs := map[extract.Task]string{
		extract.TaskExclusion:   cfg.TaskDir(cfg.Tasks.Exclusion),
		extract.TaskOspan:       cfg.TaskDir(cfg.Tasks.Ospan),
		extract.TaskSpeechComp:  cfg.TaskDir(cfg.Tasks.SpeechComp),
		extract.TaskGoFitts:     cfg.TaskDir(cfg.Tasks.GoFitts),
		extract.TaskTextReading: cfg.TaskDir(cfg.Tasks.TextReading),
	}
	integrator := integrate.NewIntegrator(registry, dirs, logger)
	normalizer := integrate.NewNormalizer(store, logger)

	ctx := context.Background()
	tasks := []extract.Task{
		extract.TaskExclusion,
		extract.TaskOspan,
		extract.TaskSpeechComp,
		extract.TaskGoFitts,
		extract.TaskTextReading,
	}

	rec, err := integrator.ProcessSubject(ctx, subjectID, tasks)
	if err != nil {
		return fmt.Errorf("process subject %s: %w", subjectID, err)
	}
	if rec == nil {
		fmt.Printf("no features extracted for %s\n", subjectID)
		return nil
	}

	canonical, err := normalizer.Update(subjectID, rec)
	if err != nil {
		return fmt.Errorf("normalize %s: %w", subjectID, err)
	}

	present := 0
	for _, name := range domain.PlatformFeatures {
		if !canonical.IsMissing(name) {
			present++
		}
	}
	fmt.Printf("%s: %d features extracted, %d/%d canonical features present\n",
		subjectID, rec.Len(), present, len(domain.PlatformFeatures))

	if age == domain.UnknownAge {
		return nil
	}

	artifacts, err := scoring.LoadArtifacts(cfg.Paths.ArtifactsDir)
	if err != nil {
		return fmt.Errorf("load scoring artifacts: %w", err)
	}
	engine := scoring.NewEngine(artifacts, cfg.Scoring.UseLegacyCorrection, logger)
	result, err := engine.Score(subjectID, canonical, age)
	if err != nil {
		return fmt.Errorf("score %s: %w", subjectID, err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
