package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"promo-series/internal/app"
	"promo-series/internal/domain"
	"promo-series/internal/infra/config"
	applog "promo-series/internal/infra/log"
	"promo-series/internal/usecase/export"
	"promo-series/internal/usecase/series"
)

type generateFlags struct {
	benefits []string
	tone     string
	industry string
	domain   string
	link     string
	title    string
	tier     string
	format   string
	out      string
	name     string
	bundle   bool
	noAI     bool
}

// buildGenerator собирает генератор из окружения. Подменяется в тестах.
type buildGenerator func(ctx context.Context, noAI bool) (domain.SeriesGenerator, error)

func newGenerateCmd(build buildGenerator) *cobra.Command {
	if build == nil {
		build = generatorFromEnv
	}
	var f generateFlags
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one email per benefit and write them to files",
		Long: `Generate an email series: one email per --benefit, in the given order.

Each email is written by the configured AI provider (AI_PROVIDER, AI_BASE_URL,
AI_API_KEY) and falls back to templates when the provider fails.

Examples:
  seriesctl generate --benefit "Saves 10 hours a week" --benefit "No setup" \
    --domain example.com --link https://example.com/?ref=me --format html --out ./emails

  seriesctl generate -b "Fast" -b "Cheap" --bundle --name "Spring" --format csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd.Context(), cmd.OutOrStdout(), f, build)
		},
	}
	cmd.Flags().StringArrayVarP(&f.benefits, "benefit", "b", nil, "Benefit to focus an email on (repeatable, order matters)")
	cmd.Flags().StringVar(&f.tone, "tone", string(domain.TonePersuasive), "Tone: persuasive, urgent, professional, friendly, educational")
	cmd.Flags().StringVar(&f.industry, "industry", string(domain.IndustryGeneral), "Industry: health, finance, technology, ecommerce, education, general")
	cmd.Flags().StringVar(&f.domain, "domain", "", "Website domain")
	cmd.Flags().StringVar(&f.link, "link", "", "Affiliate link to include in every email")
	cmd.Flags().StringVar(&f.title, "title", "", "Website title")
	cmd.Flags().StringVar(&f.tier, "tier", "free", "User tier: free, pro, gold")
	cmd.Flags().StringVarP(&f.format, "format", "f", "text", "Output format: text, html, markdown, csv")
	cmd.Flags().StringVarP(&f.out, "out", "o", ".", "Output directory")
	cmd.Flags().StringVar(&f.name, "name", "", "Series name for --bundle")
	cmd.Flags().BoolVar(&f.bundle, "bundle", false, "Write the whole series into one file")
	cmd.Flags().BoolVar(&f.noAI, "no-ai", false, "Use templates only")
	return cmd
}

func runGenerate(ctx context.Context, stdout io.Writer, f generateFlags, build buildGenerator) error {
	if ctx == nil {
		ctx = context.Background()
	}
	target, err := export.ParseTarget(f.format)
	if err != nil {
		return err
	}
	formatter, err := export.NewFormatter()
	if err != nil {
		return err
	}
	generator, err := build(ctx, f.noAI)
	if err != nil {
		return err
	}

	opts := domain.GenerationOptions{
		Domain:        f.domain,
		AffiliateLink: f.link,
		Tone:          domain.Tone(f.tone),
		Industry:      domain.Industry(f.industry),
		UserTier:      f.tier,
		WebsiteTitle:  f.title,
	}
	result, err := generator.GenerateSeries(ctx, f.benefits, opts)
	if err != nil {
		return fmt.Errorf("%s: %w", series.NoticeForError(err).Message, err)
	}

	if err := os.MkdirAll(f.out, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if f.bundle {
		if err := writeBundle(stdout, formatter, f, result.Emails, target); err != nil {
			return err
		}
		return summarize(stdout, result)
	}
	for _, email := range result.Emails {
		content, err := formatter.Format(email, target, export.ModeFile)
		if err != nil {
			return err
		}
		path := filepath.Join(f.out, export.FileName(email, target))
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		origin := "template"
		if email.GeneratedWithAI {
			origin = "ai"
		}
		fmt.Fprintf(stdout, "%d/%d %-8s %s\n", email.EmailNumber, email.TotalEmails, origin, path)
	}
	return summarize(stdout, result)
}

func writeBundle(stdout io.Writer, formatter *export.Formatter, f generateFlags, emails []domain.GeneratedEmail, target export.Target) error {
	name := f.name
	if name == "" {
		name = f.domain
	}
	content, err := formatter.FormatSeries(name, emails, target)
	if err != nil {
		return err
	}
	path := filepath.Join(f.out, export.SeriesFileName(name, target))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(stdout, "%d emails -> %s\n", len(emails), path)
	return nil
}

func summarize(stdout io.Writer, result domain.SeriesResult) error {
	fmt.Fprintln(stdout, series.NoticeFor(result).Message)
	if result.Usage.TotalTokens > 0 {
		fmt.Fprintf(stdout, "tokens: %d, estimated cost: $%.4f\n", result.Usage.TotalTokens, result.Usage.EstimatedCost)
	}
	return nil
}

func generatorFromEnv(ctx context.Context, noAI bool) (domain.SeriesGenerator, error) {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)
	if noAI {
		cfg.AI.Provider = "none"
	}
	completer, err := app.NewCompleter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	writer := app.NewWriter(cfg, completer, logger)
	return app.NewSeriesService(cfg, writer, nil, applog.NewEventSink(logger), logger), nil
}
