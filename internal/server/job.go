package server

import (
	"context"

	"github.com/recipeclip/recipeclip/internal/anylist"
	"github.com/recipeclip/recipeclip/internal/ledger"
	"github.com/recipeclip/recipeclip/internal/logger"
)

// runJob drives one attempt to its terminal outcome: extract, store, record,
// notify. It runs detached from the triggering request.
func (s *Server) runJob(att ledger.Attempt) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.JobTimeout)
	defer cancel()

	log := logger.With("job_id", att.ID, "url", att.URL)
	log.Info("extraction job started", "attempt", att.Attempts)

	outcome, err := s.extractor.Extract(ctx, att.URL)
	if err != nil {
		log.Error("extraction failed", "error", err)
		s.recordFailure(ctx, att, err)
		s.notifier.NotifyError(ctx, att.URL, err)
		return
	}

	if outcome.NotRecipe {
		log.Info("source is not a recipe", "reason", outcome.Reason)
		if err := s.attempts.RecordNotRecipe(ctx, att.ID, outcome.Reason); err != nil {
			log.Warn("recording not-recipe outcome failed", "error", err)
		}
		s.notifier.NotifyNotRecipe(ctx, att.URL, outcome.Reason)
		return
	}

	created, err := s.sink.CreateRecipe(ctx, anylist.CreateRequest{
		Recipe:     outcome.Recipe,
		SourceURL:  outcome.SourceURL,
		SourceName: outcome.SourceName,
		Photo:      outcome.Photo,
	})
	if err != nil {
		log.Error("storing recipe failed", "error", err)
		s.recordFailure(ctx, att, err)
		s.notifier.NotifyError(ctx, att.URL, err)
		return
	}

	if err := s.attempts.Complete(ctx, att.ID); err != nil {
		log.Warn("recording completion failed", "error", err)
	}
	log.Info("recipe stored", "recipe_id", created.ID, "name", created.Name, "confidence", outcome.Confidence)
	s.notifier.NotifySuccess(ctx, created.Name, outcome.SourceName)
}

func (s *Server) recordFailure(ctx context.Context, att ledger.Attempt, jobErr error) {
	if err := s.attempts.RecordFailure(ctx, att.ID, jobErr); err != nil {
		logger.Warn("recording failure failed", "job_id", att.ID, "error", err)
	}
}
