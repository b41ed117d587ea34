/*
Package abpipeline implements the event-to-mart transformation and
experiment-inference engine for a randomized product-page A/B experiment.

# Overview

The pipeline is a single-pass batch computation over an immutable event
extract. Raw clickstream records are normalized onto a canonical event
schema, each assigned user is resolved to a single exposure instant, and
post-exposure behavior is aggregated into a bounded outcome window. The
resulting per-user marts feed the statistical analyzer in pkg/abpipeline/stats.

Stages are composed explicitly in memory rather than through an external
orchestrator:

	raw events + assignments
	    → Normalizer      (canonical events, per-record skip counting)
	    → ResolveExposures (first qualifying exposure per experiment/user)
	    → Windower         (half-open outcome window per exposed user)
	    → BuildMarts       (user_exposure + user_outcomes, integrity checked)
	    → stats.Analyze    (z-test, confidence interval, logistic regression)

# Basic Usage

	cfg := config.Default()
	p, err := abpipeline.New(cfg)
	if err != nil {
	    log.Fatal(err)
	}

	result, err := p.Run(context.Background(), rawEvents, assignments)
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Printf("lift: %.2f pp, p=%.4f\n",
	    result.Report.ZTest.LiftPP, result.Report.ZTest.PValue)

Re-running the pipeline on unchanged input produces byte-identical marts and
identical statistical output. Marts are recomputed wholesale on every run;
nothing is incrementally patched.
*/
package abpipeline
