// Package specialist defines the five jewelry workflows the orchestrator
// dispatches to: consultation, companion, analytics, trend and taste.
//
// Each workflow is a fixed [workflow.Graph] over its own state struct and
// a closed step enumeration. A step enum knows its name and, for steps
// that report progress, its status message:
//
//	for _, s := range []specialist.ConsultationStep{...} {
//	    msg, ok := s.Status()
//	}
//
// A [Set] holds the collaborators (generator, retriever, repository) and
// builds the bound runners:
//
//	set := specialist.New(gen, index, repo, specialist.WithLogger(logger))
//	registry := set.Registry()
//	res, err := workflow.Collect(ctx, registry.Run(ctx, specialist.Consultation, in))
//
// Steps never retry and never substitute a fallback for a failed
// collaborator call. Deterministic fallbacks are limited to model output
// that cannot be parsed.
package specialist
