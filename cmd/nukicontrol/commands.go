package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nerrad567/nuki-control/internal/auth"
	"github.com/nerrad567/nuki-control/internal/bridges/nuki"
	"github.com/nerrad567/nuki-control/internal/infrastructure/config"
	"github.com/nerrad567/nuki-control/internal/infrastructure/logging"
	"github.com/nerrad567/nuki-control/internal/locale"
)

// oneShotLogger keeps stdout free for command output.
func oneShotLogger(cfg *config.Config) *logging.Logger {
	return logging.NewWithWriter(cfg.Logging, version, os.Stderr)
}

// stateCommand reads the lock once.
type stateCommand struct {
	app *app

	JSON bool   `long:"json" description:"Print the full report as JSON instead of the summary"`
	Lang string `short:"l" long:"lang" description:"Summary language (en, it); defaults to api.language"`
}

// Execute implements flags.Commander.
func (c *stateCommand) Execute(_ []string) error {
	cfg, err := c.app.loadConfig()
	if err != nil {
		return err
	}
	log := oneShotLogger(cfg)

	s, err := buildStack(c.app.ctx, cfg, log)
	if err != nil {
		return err
	}
	defer s.Close()

	tbl := locale.NewNegotiator(cfg.API.Language).Negotiate(c.Lang, "")

	report, err := s.controller.ReadState(c.app.ctx)
	if err != nil {
		return errors.New(tbl.ErrorMessage(err))
	}

	if c.JSON {
		enc := json.NewEncoder(c.app.out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintln(c.app.out, nuki.BuildSummary(report.State, tbl.Summary, cfg.Location()))
	return nil
}

// actionCommand dispatches one command.
type actionCommand struct {
	app *app

	Lang string `short:"l" long:"lang" description:"Message language (en, it); defaults to api.language"`

	Args struct {
		Command string `positional-arg-name:"command" description:"lock, unlock, unlatch or lock-and-go"`
	} `positional-args:"yes" required:"yes"`
}

// Execute implements flags.Commander.
func (c *actionCommand) Execute(_ []string) error {
	cfg, err := c.app.loadConfig()
	if err != nil {
		return err
	}
	log := oneShotLogger(cfg)

	s, err := buildStack(c.app.ctx, cfg, log)
	if err != nil {
		return err
	}
	defer s.Close()

	tbl := locale.NewNegotiator(cfg.API.Language).Negotiate(c.Lang, "")

	outcome, err := s.controller.Dispatch(c.app.ctx, c.Args.Command, nuki.SourceCLI)
	if err != nil {
		return errors.New(tbl.ErrorMessage(err))
	}

	fmt.Fprintln(c.app.out, tbl.OutcomeMessage(outcome))
	if !outcome.Success {
		return fmt.Errorf("bridge did not accept %s", outcome.Command)
	}
	return nil
}

// tokenCommand mints an access token for the REST API.
type tokenCommand struct {
	app *app

	Subject string        `short:"s" long:"subject" description:"Token subject, recorded as user in the audit log" default:"cli"`
	Role    string        `short:"r" long:"role" description:"viewer, operator or admin" default:"operator"`
	TTL     time.Duration `long:"ttl" description:"Token lifetime; defaults to security.jwt.access_token_ttl minutes"`
}

// Execute implements flags.Commander.
func (c *tokenCommand) Execute(_ []string) error {
	cfg, err := c.app.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Security.JWT.Secret == "" {
		return errors.New("security.jwt.secret is not set; the API is running without authentication")
	}

	role := auth.Role(c.Role)
	if !auth.IsValidRole(role) {
		return fmt.Errorf("%w: %q", auth.ErrInvalidRole, c.Role)
	}

	ttl := c.TTL
	if ttl <= 0 {
		ttl = time.Duration(cfg.Security.JWT.AccessTokenTTL) * time.Minute
	}

	token, err := auth.GenerateAccessToken(c.Subject, role, cfg.Security.JWT.Secret, ttl)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	fmt.Fprintln(c.app.out, token)
	return nil
}
