package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/anime-shed/comicvault-grader/internal/analyzer"
	"github.com/anime-shed/comicvault-grader/internal/config"
	"github.com/anime-shed/comicvault-grader/internal/factory"
	"github.com/anime-shed/comicvault-grader/internal/grading"
	"github.com/anime-shed/comicvault-grader/internal/logger"
	"github.com/anime-shed/comicvault-grader/internal/preprocess"
	"github.com/anime-shed/comicvault-grader/internal/provider"
	"github.com/anime-shed/comicvault-grader/internal/report"
	"github.com/anime-shed/comicvault-grader/pkg/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type gradeOptions struct {
	base         config.Provider
	front        string
	back         string
	provider     string
	fixture      string
	model        string
	postures     []string
	timeout      time.Duration
	retries      int
	format       string
	reportPath   string
	noPreprocess bool
}

func newGradeCmd(defaults config.Provider) *cobra.Command {
	opts := gradeOptions{base: defaults}

	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Grade one comic from its front and back photographs",
		Long: `Grade one comic from its front and back photographs.

Examples:
  comicgrade grade --front front.jpg --back back.jpg
  comicgrade grade --front f.jpg --back b.jpg --provider remote --format yaml
  comicgrade grade --front f.jpg --back b.jpg --provider fixture --fixture opinions.json --report out.pdf`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGrade(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.front, "front", "", "front cover photograph")
	f.StringVar(&opts.back, "back", "", "back cover photograph")
	f.StringVar(&opts.provider, "provider", orDefault(defaults.Kind, string(factory.HeuristicProvider)), "opinion provider (heuristic, remote, fixture)")
	f.StringVar(&opts.fixture, "fixture", defaults.FixturePath, "JSON file of canned opinions for the fixture provider")
	f.StringVar(&opts.model, "model", orDefault(defaults.Model, provider.DefaultRemoteModel), "model for the remote provider")
	f.StringSliceVar(&opts.postures, "postures", orDefaultSlice(defaults.Postures, []string{string(models.PostureStrict), string(models.PostureLenient)}), "postures to request")
	f.DurationVar(&opts.timeout, "timeout", orDefault(defaults.Timeout, 60*time.Second), "per-opinion timeout")
	f.IntVar(&opts.retries, "retries", defaults.Retries, "retries per opinion (0 or 1)")
	f.StringVarP(&opts.format, "format", "o", "json", "output format (json, yaml)")
	f.StringVar(&opts.reportPath, "report", "", "write a PDF report to this path")
	f.BoolVar(&opts.noPreprocess, "no-preprocess", false, "grade the photographs as given")
	_ = cmd.MarkFlagRequired("front")
	_ = cmd.MarkFlagRequired("back")

	return cmd
}

func runGrade(cmd *cobra.Command, opts gradeOptions) error {
	if opts.format != "json" && opts.format != "yaml" {
		return fmt.Errorf("unsupported format %q", opts.format)
	}

	postures := make([]models.Posture, 0, len(opts.postures))
	for _, raw := range opts.postures {
		p, err := models.ParsePosture(strings.TrimSpace(raw))
		if err != nil {
			return err
		}
		postures = append(postures, p)
	}

	images, err := loadImages(opts)
	if err != nil {
		return err
	}

	providerCfg := opts.base
	providerCfg.Kind = opts.provider
	providerCfg.Model = opts.model
	providerCfg.Timeout = opts.timeout
	providerCfg.Retries = opts.retries
	providerCfg.FixturePath = opts.fixture

	opinionProvider, err := factory.NewProviderFactory(analyzer.NewFeatureScorer()).CreateProvider(providerCfg)
	if err != nil {
		return err
	}

	aggregator, err := grading.NewAggregator(grading.AggregatorOptions{
		Postures: postures,
		OnOpinion: func(_ context.Context, e grading.OpinionEvent) {
			entry := logger.WithField("posture", e.Posture).WithField("provider", e.Provider)
			if e.Err != nil {
				entry.WithError(e.Err).Warn("Opinion failed")
				return
			}
			entry.Debug("Opinion received")
		},
	})
	if err != nil {
		return err
	}

	result, err := aggregator.Grade(cmd.Context(), images, opinionProvider)
	if err != nil {
		return fmt.Errorf("grading failed: %w", err)
	}

	if opts.reportPath != "" {
		pdf, err := report.NewPDFRenderer().Render(report.Meta{GeneratedAt: time.Now()}, result)
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.reportPath, pdf, 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	return writeResult(cmd.OutOrStdout(), opts.format, result)
}

func loadImages(opts gradeOptions) (models.ImagePair, error) {
	front, err := os.ReadFile(opts.front)
	if err != nil {
		return models.ImagePair{}, fmt.Errorf("failed to read front image: %w", err)
	}
	back, err := os.ReadFile(opts.back)
	if err != nil {
		return models.ImagePair{}, fmt.Errorf("failed to read back image: %w", err)
	}
	if opts.noPreprocess {
		return models.ImagePair{Front: front, Back: back}, nil
	}

	p := preprocess.New(preprocess.DefaultOptions())
	if front, err = p.Process(front); err != nil {
		return models.ImagePair{}, fmt.Errorf("front image: %w", err)
	}
	if back, err = p.Process(back); err != nil {
		return models.ImagePair{}, fmt.Errorf("back image: %w", err)
	}
	return models.ImagePair{Front: front, Back: back}, nil
}

func writeResult(w io.Writer, format string, result *models.GradingResult) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func orDefault[T comparable](v, fallback T) T {
	var zero T
	if v == zero {
		return fallback
	}
	return v
}

func orDefaultSlice(v, fallback []string) []string {
	if len(v) == 0 {
		return fallback
	}
	return v
}
