package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Bahjat/arrestorgear/internal/failure"
	"github.com/Bahjat/arrestorgear/internal/httpcall"
	"github.com/Bahjat/arrestorgear/internal/model"
	"github.com/Bahjat/arrestorgear/internal/platform/config"
	"github.com/Bahjat/arrestorgear/internal/platform/logger"
	"github.com/Bahjat/arrestorgear/internal/probe"
)

var (
	errUnexpected  = errors.New("unexpected failures")
	errInvalidData = errors.New("--data is not valid JSON")
)

type flags struct {
	method      string
	data        string
	fetchStyle  bool
	expect      []string
	concurrency int
}

func newRootCmd(out io.Writer) *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "probe [flags] URL...",
		Short: "Probe HTTP endpoints and classify their failures",
		Long: `probe sends one request to every URL and sorts the outcome into
ok, expected, validation, upstream, http or failed.

Statuses given with --expect count as handled. Masks use X for any digit:

  probe --expect 404,4X9 https://example.com/a https://example.com/b
  probe --method POST --data '{"email":""}' https://example.com/signup`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, out, f, args)
		},
	}

	cmd.Flags().StringVarP(&f.method, "method", "X", "GET", "HTTP method")
	cmd.Flags().StringVarP(&f.data, "data", "d", "", "JSON request body")
	cmd.Flags().BoolVar(&f.fetchStyle, "fetch-style", false, "store failure bodies the way fetch wrappers do")
	cmd.Flags().StringSliceVar(&f.expect, "expect", nil, "status codes or masks treated as expected")
	cmd.Flags().IntVarP(&f.concurrency, "concurrency", "c", 0, "parallel requests (default PROBE_CONCURRENCY)")

	cmd.AddCommand(newServeCmd())
	return cmd
}

// setup loads configuration, installs the logger and builds a Service whose
// client follows the configured limits.
func setup(convention httpcall.Convention) (*slog.Logger, *probe.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	client := httpcall.NewClient(
		httpcall.WithTimeout(cfg.ProbeTimeout),
		httpcall.WithUserAgent(cfg.UserAgent),
		httpcall.WithBlockPrivateNetworks(cfg.BlockPrivateNetwork),
		httpcall.WithConvention(convention),
		httpcall.WithLogger(log),
	)
	svc := probe.NewService(client, log, probe.WithConcurrency(cfg.ProbeConcurrency))
	return log, svc, nil
}

func run(cmd *cobra.Command, out io.Writer, f flags, targets []string) error {
	convention := httpcall.Standard
	if f.fetchStyle {
		convention = httpcall.Fetch
	}

	_, svc, err := setup(convention)
	if err != nil {
		return err
	}

	var body any
	if f.data != "" {
		if !json.Valid([]byte(f.data)) {
			return errInvalidData
		}
		body = json.RawMessage(f.data)
	}

	expect, err := failure.ParseStatusPatterns(f.expect)
	if err != nil {
		return err
	}

	opts := []probe.Option{probe.WithRequest(f.method, body), probe.WithExpected(expect)}
	if cmd.Flags().Changed("concurrency") {
		opts = append(opts, probe.WithConcurrency(f.concurrency))
	}

	reports, err := svc.With(opts...).ProbeAll(cmd.Context(), targets)
	if err != nil {
		return err
	}

	res := model.ProbeResult{Reports: reports, Summary: model.Summarize(reports)}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if res.Summary.Unexpected > 0 {
		return fmt.Errorf("%w: %d of %d", errUnexpected, res.Summary.Unexpected, res.Summary.Total)
	}
	return nil
}
