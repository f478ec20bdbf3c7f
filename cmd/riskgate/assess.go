package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/davidleathers/change-risk-gate/internal/domain/change"
	"github.com/davidleathers/change-risk-gate/internal/domain/formula"
	"github.com/davidleathers/change-risk-gate/internal/domain/risk"
	"github.com/davidleathers/change-risk-gate/internal/infrastructure/config"
	"github.com/davidleathers/change-risk-gate/internal/infrastructure/policystore"
	"github.com/davidleathers/change-risk-gate/internal/infrastructure/telemetry"
	"github.com/davidleathers/change-risk-gate/internal/service/assessment"
	formulasvc "github.com/davidleathers/change-risk-gate/internal/service/formula"
	policysvc "github.com/davidleathers/change-risk-gate/internal/service/policy"
	"github.com/davidleathers/change-risk-gate/internal/service/riskscore"
)

type assessOptions struct {
	changeFile   string
	impactFile   string
	formulaFile  string
	dialect      string
	orgID        string
	policiesFile string
}

func newAssessCommand(a *app) *cobra.Command {
	opts := &assessOptions{}

	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Score a change against the organization's policies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAssess(cmd.Context(), a, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.changeFile, "change", "", "JSON file holding the change and its diff summary")
	cmd.Flags().StringVar(&opts.orgID, "org", "", "organization whose active policies apply")
	cmd.Flags().StringVar(&opts.impactFile, "impact", "", "JSON file holding the impact analysis")
	cmd.Flags().StringVar(&opts.formulaFile, "formula", "", "formula or workflow source shipped with the change")
	cmd.Flags().StringVar(&opts.dialect, "dialect", string(formula.DialectExpression), "formula dialect: expression or workflow_xml")
	cmd.Flags().StringVar(&opts.policiesFile, "policies", "", "YAML policy file, overrides the configured policy source")
	_ = cmd.MarkFlagRequired("change")
	_ = cmd.MarkFlagRequired("org")

	return cmd
}

func runAssess(ctx context.Context, a *app, opts *assessOptions, out io.Writer) error {
	var c change.Change
	if err := readJSON(opts.changeFile, &c); err != nil {
		return fmt.Errorf("reading change: %w", err)
	}

	req := assessment.Request{Change: &c, OrganizationID: opts.orgID}

	if opts.impactFile != "" {
		var impact risk.ImpactAnalysis
		if err := readJSON(opts.impactFile, &impact); err != nil {
			return fmt.Errorf("reading impact analysis: %w", err)
		}
		req.Impact = impact
	}

	if opts.formulaFile != "" {
		dialect, ok := formula.ParseDialect(opts.dialect)
		if !ok {
			return fmt.Errorf("unknown dialect %q", opts.dialect)
		}
		code, err := os.ReadFile(opts.formulaFile)
		if err != nil {
			return fmt.Errorf("reading formula: %w", err)
		}
		req.Formula = &assessment.FormulaSource{Code: string(code), Dialect: dialect}
	}

	if opts.policiesFile != "" {
		a.cfg.Policies.Source = config.PolicySourceFile
		a.cfg.Policies.File = opts.policiesFile
	}

	provider, closeProvider, err := newPolicyProvider(ctx, a)
	if err != nil {
		return err
	}
	defer closeProvider()

	svc := assessment.NewService(
		policysvc.NewEvaluator(provider, a.logger.Named("policy"), a.recorder),
		formulasvc.NewAnalyzer(a.logger.Named("formula")),
		riskscore.NewScorer(a.logger.Named("riskscore")),
		a.logger.Named("assessment"),
		assessment.WithRecorder(a.recorder),
		assessment.WithTracer(telemetry.Tracer("riskgate/assessment")),
		assessment.WithBatchConcurrency(a.cfg.Assessment.BatchConcurrency),
	)

	result, err := svc.Assess(ctx, req)
	if err != nil {
		return err
	}
	return writeJSON(out, result)
}

// newPolicyProvider builds the configured policy source, wrapped in the
// Redis cache when enabled.
func newPolicyProvider(ctx context.Context, a *app) (policystore.Provider, func(), error) {
	var (
		provider policystore.Provider
		closers  []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch a.cfg.Policies.Source {
	case config.PolicySourcePostgres:
		pool, err := policystore.NewPostgresPool(ctx, a.cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, pool.Close)
		provider = policystore.NewPostgresStore(pool, a.logger.Named("policystore"))
	default:
		store, err := policystore.NewFileStore(a.cfg.Policies.File, a.logger.Named("policystore"))
		if err != nil {
			return nil, nil, err
		}
		provider = store
	}

	if a.cfg.Redis.Enabled {
		client, err := policystore.NewRedisClient(a.cfg.Redis, a.logger.Named("cache"))
		if err != nil {
			a.logger.Warn("policy cache unavailable, reading policies directly", zap.Error(err))
		} else {
			closers = append(closers, func() { _ = client.Close() })
			provider = policystore.NewCachedProvider(provider, client, a.cfg.Redis.PolicyTTL, a.logger.Named("cache"), a.recorder)
		}
	}

	return provider, closeAll, nil
}

func readJSON(path string, v interface{}) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
