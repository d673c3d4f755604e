package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/sourcemeter/server/internal/config"
	"github.com/sourcemeter/server/internal/domain/evidence"
	"github.com/sourcemeter/server/internal/domain/sources"
	"github.com/sourcemeter/server/internal/storage/postgres"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a small development evidence corpus",
	Long: `Load a minimal oncology and cardiology corpus for local development.

The corpus is shaped so that a specialized clinical venue outranks a broad
prestige venue for the clinical use case: the specialist carries more recent,
clinically-focused items; the generalist carries fewer, older, basic-science
items. Seeding is idempotent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSeed(cmd)
	},
}

type seedSource struct {
	name         string
	category     string
	publisher    string
	impactMetric float64
}

type seedItem struct {
	externalID string
	source     string
	domain     string
	title      string
	abstract   string
	daysAgo    int
}

func runSeed(command *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	logger := config.NewLogger(cfg.Logging)

	ctx, cancel := context.WithTimeout(command.Context(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return fmt.Errorf("repository init failed: %w", err)
	}

	for _, s := range seedSources {
		impact := s.impactMetric
		category := s.category
		publisher := s.publisher
		source := &sources.Source{
			Name:         s.name,
			Normalized:   sources.NormalizeName(s.name),
			Category:     &category,
			Publisher:    &publisher,
			ImpactMetric: &impact,
		}
		if err := repo.Sources().Create(ctx, source); err != nil {
			return fmt.Errorf("seed source %q: %w", s.name, err)
		}
	}
	logger.Info().Int("sources", len(seedSources)).Msg("seeded sources")

	now := time.Now().UTC()
	for _, it := range seedItems {
		published := now.AddDate(0, 0, -it.daysAgo)
		item := evidence.Item{
			ExternalID:  it.externalID,
			SourceName:  it.source,
			Domain:      it.domain,
			Title:       it.title,
			Abstract:    it.abstract,
			PublishedAt: &published,
			RawDate:     published.Format("2006-01-02"),
		}
		if err := repo.Evidence().Insert(ctx, item); err != nil {
			return fmt.Errorf("seed evidence %q: %w", it.externalID, err)
		}
	}
	logger.Info().Int("items", len(seedItems)).Msg("seeded evidence corpus")

	fmt.Fprintln(command.OutOrStdout(), "seed complete; next: server worker --domain oncology --force")
	return nil
}

var seedSources = []seedSource{
	{"Journal of Clinical Oncology", "Oncology", "American Society of Clinical Oncology", 32.976},
	{"Nature", "General Science", "Nature Publishing Group", 64.8},
	{"Circulation", "Cardiology", "American Heart Association", 39.918},
}

var seedItems = []seedItem{
	{"seed_jco_1", "Journal of Clinical Oncology", "oncology",
		"Pembrolizumab in Advanced NSCLC",
		"This study evaluates pembrolizumab efficacy in advanced non-small cell lung cancer patients with PD-L1 expression. Results show significant improvement in overall survival with pembrolizumab compared to chemotherapy in oncology treatment protocols.", 30},
	{"seed_jco_2", "Journal of Clinical Oncology", "oncology",
		"CAR-T Cell Therapy for B-cell Lymphoma",
		"CAR-T cell therapy demonstrates remarkable efficacy in relapsed B-cell lymphoma. This oncology breakthrough provides new treatment options for patients with resistant tumors and represents a major advance in cancer immunotherapy.", 60},
	{"seed_jco_3", "Journal of Clinical Oncology", "oncology",
		"Checkpoint Inhibitors in Melanoma",
		"Long-term survival data for checkpoint inhibitors in metastatic melanoma shows sustained responses. This comprehensive oncology analysis demonstrates the clinical utility of immunotherapy in cancer treatment protocols.", 90},
	{"seed_jco_4", "Journal of Clinical Oncology", "oncology",
		"Precision Medicine in Breast Cancer",
		"Genomic profiling guides precision oncology treatment selection in breast cancer patients. This study validates the clinical utility of tumor sequencing for personalized cancer therapy decisions.", 120},
	{"seed_jco_5", "Journal of Clinical Oncology", "oncology",
		"Liquid Biopsy in Lung Cancer",
		"Circulating tumor DNA analysis enables early detection of oncology treatment resistance. This liquid biopsy approach revolutionizes cancer monitoring and therapy optimization in clinical practice.", 150},
	{"seed_jco_6", "Journal of Clinical Oncology", "oncology",
		"Immunotherapy Combination Strategies",
		"Combination immunotherapy approaches show synergistic effects in solid tumors. This oncology research provides evidence for rational combination strategies in cancer treatment protocols.", 180},
	{"seed_jco_7", "Journal of Clinical Oncology", "oncology",
		"Pediatric Oncology Clinical Trials",
		"Phase II trial results in pediatric sarcoma demonstrate safety and efficacy of targeted therapy. This pediatric oncology study establishes new treatment standards for childhood cancer.", 210},
	{"seed_jco_8", "Journal of Clinical Oncology", "oncology",
		"Radiation Therapy Optimization",
		"Advanced radiation therapy techniques improve outcomes in prostate cancer. This oncology study demonstrates superior tumor control with reduced toxicity in cancer treatment.", 240},

	{"seed_nature_1", "Nature", "oncology",
		"Cancer Cell Metabolism Pathways",
		"Basic science investigation of metabolic reprogramming in cancer cells reveals novel therapeutic targets. This fundamental oncology research elucidates mechanisms of tumor cell survival and growth.", 365},
	{"seed_nature_2", "Nature", "oncology",
		"Tumor Microenvironment Dynamics",
		"Single-cell analysis reveals complex interactions within the tumor microenvironment. This basic oncology research provides insights into cancer progression and immune evasion mechanisms.", 400},
	{"seed_nature_3", "Nature", "oncology",
		"Epigenetic Regulation in Cancer",
		"Genome-wide epigenetic profiling identifies novel oncology targets for therapeutic intervention. This fundamental cancer research advances our understanding of tumor biology and development.", 450},

	{"seed_circ_1", "Circulation", "cardiology",
		"SGLT2 Inhibitors in Heart Failure",
		"Randomized trial of SGLT2 inhibition in heart failure with reduced ejection fraction shows lower cardiovascular mortality. This cardiology study changes heart failure treatment practice.", 45},
	{"seed_circ_2", "Circulation", "cardiology",
		"Catheter Ablation for Atrial Fibrillation",
		"Long-term outcomes of catheter ablation versus antiarrhythmic drugs in atrial fibrillation demonstrate durable rhythm control. This cardiology trial informs clinical arrhythmia management.", 100},
	{"seed_circ_3", "Circulation", "cardiology",
		"Lipid Lowering After Myocardial Infarction",
		"Intensive lipid lowering after acute myocardial infarction reduces recurrent cardiovascular events. This cardiology study supports aggressive secondary prevention in coronary disease.", 200},
}
