// schedule-creator builds the academic-year rotation schedule for the
// residency program from the scheduling workbook and the preference survey.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mfromano/schedule-creator/internal/config"
	"github.com/mfromano/schedule-creator/internal/models"
	"github.com/mfromano/schedule-creator/internal/phases"
	"github.com/mfromano/schedule-creator/internal/review"
	"github.com/mfromano/schedule-creator/internal/solver"
	"github.com/mfromano/schedule-creator/internal/validate"
	"github.com/mfromano/schedule-creator/internal/workbook"
)

// Exit codes.
const (
	exitOK          = 0
	exitFindings    = 1
	exitInfeasible  = 2
	exitIOFailure   = 3
)

var (
	verbose    bool
	configPath string
	outputPath string
	yearFlag   int
	dryRun     bool
	serveAddr  string

	logger *zap.Logger
)

// errFindings marks a run that completed but left error-severity findings.
var errFindings = errors.New("validation findings at error severity")

var rootCmd = &cobra.Command{
	Use:   "schedule-creator",
	Short: "Radiology residency rotation schedule builder",
	Long: `schedule-creator ingests the scheduling workbook and the preference
survey, runs the seven-phase synthesis pipeline (tracks, senior builders,
night float, sampler resolution), validates the result, and writes a
populated copy of the workbook. The input file is never modified.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var buildCmd = &cobra.Command{
	Use:   "build INPUT.xlsm PREFS.xlsx",
	Short: "Build the full schedule from a workbook and a preference survey",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBuild(cmd.Context(), args[0], args[1])
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate INPUT.xlsm",
	Short: "Validate the schedule held in an existing workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(args[0])
	},
}

var reviewCmd = &cobra.Command{
	Use:   "review INPUT.xlsm PREFS.xlsx",
	Short: "Build the schedule and serve the review dashboard without writing",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReview(cmd.Context(), args[0], args[1])
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "year config YAML")

	buildCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output workbook path (default <input>_output.<ext>)")
	buildCmd.Flags().IntVarP(&yearFlag, "year", "y", 0, "academic-year start (default: config year, else Overview)")
	buildCmd.Flags().BoolVar(&dryRun, "dry-run", false, "build and validate only; write nothing")

	reviewCmd.Flags().StringVar(&serveAddr, "addr", "", "review listen address")
	reviewCmd.Flags().IntVarP(&yearFlag, "year", "y", 0, "academic-year start (default: config year, else Overview)")

	rootCmd.AddCommand(buildCmd, validateCmd, reviewCmd)
}

// loaded bundles everything read from disk for one run.
type loaded struct {
	cfg    *config.Config
	input  phases.Input
	noCall map[string]map[int]bool
}

func load(schedulePath, prefsPath string) (*loaded, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errIO, err)
	}

	r, err := workbook.OpenReader(schedulePath, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errIO, err)
	}
	defer r.Close()

	year := yearFlag
	if year == 0 {
		year = cfg.Year
	}
	if year == 0 {
		if year, err = r.AcademicYear(); err != nil {
			return nil, err
		}
	}
	logger.Info("academic year", zap.Int("start", year))

	codes, err := r.RotationCodes()
	if err != nil {
		return nil, err
	}
	residents, err := r.Roster()
	if err != nil {
		return nil, err
	}
	if err := r.HistoricalAssignments(residents); err != nil {
		return nil, err
	}
	r1Tracks, err := r.R1Tracks()
	if err != nil {
		return nil, err
	}
	r2Tracks, err := r.R2Tracks()
	if err != nil {
		return nil, err
	}
	envelope, err := r.StaffingEnvelope()
	if err != nil {
		return nil, err
	}
	noCall, err := r.NoCallWeeks(residents)
	if err != nil {
		return nil, err
	}

	// Survey first, then the recs tab: R3-4 Recs pathway flags are
	// authoritative and overwrite the self-reported values.
	if prefsPath != "" {
		s, err := workbook.OpenSurvey(prefsPath, year, logger)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errIO, err)
		}
		s.ParseAll(residents)
		_ = s.Close()
	}
	if err := r.PreferencesTab(residents, year); err != nil {
		return nil, err
	}
	if err := r.R34Recs(residents); err != nil {
		return nil, err
	}

	logger.Info("workbook loaded",
		zap.Int("residents", len(residents)),
		zap.Int("rotation_codes", len(codes)),
		zap.Int("r1_tracks", len(r1Tracks)),
		zap.Int("r2_tracks", len(r2Tracks)))

	return &loaded{
		cfg: cfg,
		input: phases.Input{
			Residents: residents,
			Catalog:   models.NewCatalog(codes),
			Calendar:  models.ComputeCalendar(year),
			Envelope:  envelope,
			NFRules:   models.DefaultNFRules(),
			R1Tracks:  r1Tracks,
			R2Tracks:  r2Tracks,
		},
		noCall: noCall,
	}, nil
}

func buildAndValidate(ctx context.Context, ld *loaded) (*phases.Builder, *validate.Report, error) {
	b, err := phases.NewBuilder(logger, ld.cfg, ld.input)
	if err != nil {
		return nil, nil, err
	}
	if err := b.Run(ctx); err != nil {
		return nil, nil, err
	}

	if matrix := b.RankingMatrix(); matrix != "" {
		fmt.Println("\nR2 track ranking matrix:")
		fmt.Println(matrix)
	}

	report := validate.Run(validate.Input{
		Residents: ld.input.Residents,
		Grid:      b.Grid(),
		Envelope:  ld.input.Envelope,
		NFRules:   ld.input.NFRules,
		NoCall:    ld.noCall,
	})
	fmt.Println(report.Render(ld.input.Residents, b.Grid()))
	return b, report, nil
}

func runBuild(ctx context.Context, schedulePath, prefsPath string) error {
	ld, err := load(schedulePath, prefsPath)
	if err != nil {
		return err
	}
	b, report, err := buildAndValidate(ctx, ld)
	if err != nil {
		return err
	}

	if dryRun {
		logger.Info("dry run; nothing written")
		if !report.OK() {
			return errFindings
		}
		return nil
	}

	w, err := workbook.NewWriter(schedulePath, outputPath)
	if err != nil {
		return fmt.Errorf("%w: %w", errIO, err)
	}
	defer w.Close()

	r, err := workbook.OpenReader(schedulePath, logger)
	if err != nil {
		return fmt.Errorf("%w: %w", errIO, err)
	}
	baseRows, err := r.BaseScheduleRows()
	if err != nil {
		_ = r.Close()
		return err
	}
	nfRows, err := r.NightFloatRows()
	if err != nil {
		_ = r.Close()
		return err
	}
	_ = r.Close()

	if year := ld.input.Calendar.YearStart; year > 0 {
		if err := w.SetAcademicYear(year); err != nil {
			return fmt.Errorf("%w: %w", errIO, err)
		}
	}
	base, nf := workbook.WriteGridAssignments(b.Grid(), ld.input.Residents)
	if err := w.WriteBaseSchedule(base, baseRows); err != nil {
		return fmt.Errorf("%w: %w", errIO, err)
	}
	if err := w.WriteNightFloat(nf, nfRows); err != nil {
		return fmt.Errorf("%w: %w", errIO, err)
	}
	if err := w.Save(); err != nil {
		return fmt.Errorf("%w: %w", errIO, err)
	}
	logger.Info("schedule written", zap.String("path", w.OutPath()))

	if !report.OK() {
		return errFindings
	}
	return nil
}

func runValidate(schedulePath string) error {
	ld, err := load(schedulePath, "")
	if err != nil {
		return err
	}

	// Rebuild the grid from the workbook's own Base Schedule cells.
	r, err := workbook.OpenReader(schedulePath, logger)
	if err != nil {
		return fmt.Errorf("%w: %w", errIO, err)
	}
	grid, err := r.ReadBaseScheduleGrid(ld.input.Residents)
	_ = r.Close()
	if err != nil {
		return err
	}

	report := validate.Run(validate.Input{
		Residents: ld.input.Residents,
		Grid:      grid,
		Envelope:  ld.input.Envelope,
		NFRules:   ld.input.NFRules,
		NoCall:    ld.noCall,
	})
	fmt.Println(report.Render(ld.input.Residents, grid))
	if !report.OK() {
		return errFindings
	}
	return nil
}

func runReview(ctx context.Context, schedulePath, prefsPath string) error {
	ld, err := load(schedulePath, prefsPath)
	if err != nil {
		return err
	}
	b, report, err := buildAndValidate(ctx, ld)
	if err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" {
		addr = ld.cfg.ReviewAddr
	}
	srv, err := review.NewServer(logger, ld.input.Residents, b.Grid(), report,
		validate.Heatmap(b.Grid(), ld.input.Envelope, b.Grid().Weeks), b.Result())
	if err != nil {
		return err
	}
	fmt.Printf("review dashboard: http://%s/\n", addr)
	return srv.ListenAndServe(addr)
}

// errIO marks failures talking to the filesystem or workbook formats.
var errIO = errors.New("i/o failure")

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var inf *solver.Infeasibility
	switch {
	case errors.Is(err, errFindings):
		return exitFindings
	case errors.As(err, &inf):
		return exitInfeasible
	case errors.Is(err, errIO):
		return exitIOFailure
	}
	return exitIOFailure
}

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		if logger != nil {
			logger.Error("run failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
	}
	os.Exit(exitCode(err))
}
