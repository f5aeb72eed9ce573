// Command cutplan nests a CSV cut list onto stock sheets and prints the
// plan as JSON.
//
//	cutplan --csv parts.csv --sheet-width 1220 --kerf 3.2
//
// Flags fall back to CUTPLAN_SHEET_WIDTH, CUTPLAN_SHEET_LENGTH and
// CUTPLAN_KERF. Without --csv the cut list is read from stdin.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"madera-precisa/internal/config"
	"madera-precisa/internal/cutplan"
	"madera-precisa/internal/logger"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	flags := pflag.NewFlagSet("cutplan", pflag.ExitOnError)
	flags.String("csv", "", "cut list file (default stdin)")
	flags.Float64("sheet-width", cutplan.DefaultSheetWidth, "sheet width in mm")
	flags.Float64("sheet-length", cutplan.DefaultSheetLength, "sheet length in mm")
	flags.Float64("kerf", cutplan.DefaultKerf, "blade kerf in mm")
	flags.Bool("pretty", false, "indent the JSON output")
	flags.Parse(os.Args[1:])

	v := viper.New()
	v.AutomaticEnv()
	config.SetDefaults(v)
	v.BindPFlag("CUTPLAN_SHEET_WIDTH", flags.Lookup("sheet-width"))
	v.BindPFlag("CUTPLAN_SHEET_LENGTH", flags.Lookup("sheet-length"))
	v.BindPFlag("CUTPLAN_KERF", flags.Lookup("kerf"))
	cfg := config.FromViper(v)

	log, err := logger.New(cfg.Server.Env, zap.String("command", "cutplan"))
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	csvPath, _ := flags.GetString("csv")
	pretty, _ := flags.GetBool("pretty")

	if err := run(os.Stdin, os.Stdout, csvPath, pretty, cfg.CutPlan); err != nil {
		log.Fatal("Failed to create cut plan", zap.Error(err))
	}
}

func run(stdin io.Reader, stdout io.Writer, csvPath string, pretty bool, cfg config.CutPlanConfig) error {
	in := stdin
	if csvPath != "" {
		f, err := os.Open(csvPath)
		if err != nil {
			return fmt.Errorf("failed to open cut list: %w", err)
		}
		defer f.Close()
		in = f
	}

	parts, err := cutplan.ReadCSV(in)
	if err != nil {
		return err
	}

	plan, err := cutplan.NewPlanner(cfg.SheetWidth, cfg.SheetLength, cfg.Kerf).Nest(parts)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(plan)
}
