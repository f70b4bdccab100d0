package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/patient-records/internal/config"
	"github.com/jwalitptl/patient-records/internal/model"
	"github.com/jwalitptl/patient-records/internal/repository/memory"
	"github.com/jwalitptl/patient-records/internal/repository/postgres"
	"github.com/jwalitptl/patient-records/internal/service/patient"
	"github.com/jwalitptl/patient-records/pkg/logger"
)

// Env holds the CLI connection settings, read from PATIENTS_* variables.
type Env struct {
	Store       string `envconfig:"STORE" default:"postgres"`
	DatabaseURL string `envconfig:"DATABASE_URL"`
	Table       string `envconfig:"TABLE" default:"pacientes"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"warn"`
}

type app struct {
	svc patient.PatientService
	out io.Writer
	db  *sqlx.DB
	log *logger.Logger
}

func main() {
	os.Exit(run())
}

func run() int {
	a := &app{out: os.Stdout}

	err := newRootCmd(a).Execute()
	if closeErr := a.close(); err != nil || closeErr != nil {
		return 1
	}
	return 0
}

// connect builds the service from the environment unless one is already
// set.
func (a *app) connect() error {
	if a.svc != nil {
		return nil
	}

	var env Env
	if err := envconfig.Process("PATIENTS", &env); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}

	log := logger.NewLogger(&logger.Config{
		Level:  logger.ParseLevel(env.LogLevel),
		Output: os.Stderr,
	})
	a.log = log

	switch env.Store {
	case config.DriverMemory:
		a.svc = patient.NewService(memory.NewPatientTable(), log, nil)
	case config.DriverPostgres:
		db, err := postgres.NewDB(config.DatabaseConfig{URL: env.DatabaseURL})
		if err != nil {
			return err
		}
		a.db = db
		a.svc = patient.NewService(postgres.NewPatientRepository(db, env.Table), log, nil)
	default:
		return fmt.Errorf("invalid store driver %q", env.Store)
	}
	return nil
}

// Create connects on first use, so a form that fails validation never
// opens the store.
func (a *app) Create(ctx context.Context, f model.PatientForm) (model.Patient, error) {
	if err := a.connect(); err != nil {
		return model.Patient{}, err
	}
	return a.svc.Create(ctx, f)
}

func (a *app) Update(ctx context.Context, id int64, fields model.PatientUpdate) (model.Patient, error) {
	if err := a.connect(); err != nil {
		return model.Patient{}, err
	}
	return a.svc.Update(ctx, id, fields)
}

// close releases the database handle. A failure is logged, since the
// command result has already been printed.
func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	if err != nil && a.log != nil {
		a.log.Error(err, "failed to close database")
	}
	return err
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "patients",
		Short:         "Manage dental practice patient records",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.SetOut(a.out)
	rootCmd.SetErr(a.out)

	rootCmd.AddCommand(listCmd(a))
	rootCmd.AddCommand(showCmd(a))
	rootCmd.AddCommand(createCmd(a))
	rootCmd.AddCommand(updateCmd(a))
	rootCmd.AddCommand(deleteCmd(a))
	rootCmd.AddCommand(formatCmd())
	rootCmd.AddCommand(validateCmd())

	return rootCmd
}
