// Package riskbench compares, tunes and evaluates binary classifiers for
// tabular risk data, producing a reproducible report from a single YAML
// configuration.
//
// The study runs in fixed phases: a stratified train/test split, stratified
// k-fold cross-validation over a space-filling hyperparameter grid for each
// model family, simulated-annealing refinement of the winning candidate, a
// single holdout assessment, and interpretation of the final model through
// permutation importance and partial dependence.
//
// # Quick Start
//
//	cfg, err := config.Load("riskbench.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	runner := experiment.NewRunner(cfg, logger)
//	res, err := runner.Run(context.Background())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("holdout AUC %.4f\n", res.Holdout.AUC)
//
// Every random decision derives from the configured seed, so two runs with
// the same configuration and data produce identical reports.
package riskbench
