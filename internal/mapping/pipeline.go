package mapping

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// Run drains the work queue under bounded parallelism. A fresh run populates
// the queue from the organization listing first; an existing queue file from
// a prior run takes precedence and is processed as-is.
func (m *mapper) Run(ctx context.Context) error {
	if err := m.populateQueue(ctx); err != nil {
		return err
	}

	remaining := m.queue.Remaining()
	if len(remaining) == 0 {
		log.Info().Msg("nothing to process")
		return nil
	}

	log.Info().Int("repositories", len(remaining)).Msg("starting mapping run")

	sem := semaphore.NewWeighted(int64(m.config.MaxWorker))

	// buffered for every queued repository so workers never block on send,
	// even when the context dies mid-run
	outcomeC := make(chan outcome, len(remaining))
	recorderDone := make(chan struct{})

	// records every outcome so operators can query results across runs
	go func() {
		defer close(recorderDone)

		for o := range outcomeC {
			if err := m.db.UpsertMapping(ctx, o.repoID, o.team, o.status); err != nil {
				log.Error().Err(err).Str("repo", o.repoID).
					Msg("failed to record outcome")
			}
		}
	}()

	var wg sync.WaitGroup
	for _, repoID := range remaining {
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Error().Err(err).Msg("Failed to acquire semaphore")
			break
		}

		repoID := repoID // copy
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			o := m.processRepo(ctx, repoID)
			m.finishRepo(o)
			outcomeC <- o
		}()
	}

	// wait for in-flight workers, then let the recorder drain what they sent
	wg.Wait()
	close(outcomeC)
	<-recorderDone

	log.Info().Int("remaining", m.queue.Len()).Msg("mapping run finished")
	return nil
}

// populateQueue fills the queue from a full repository listing on a fresh
// run, or leaves an existing partially-drained queue untouched
func (m *mapper) populateQueue(ctx context.Context) error {
	if m.queue.Initialized() {
		log.Info().Int("repositories", m.queue.Len()).
			Msg("continuing from existing state file")
		return nil
	}

	log.Info().Str("organization", m.config.Organization).
		Msg("no state file found, fetching organization repositories")

	repos, err := m.scm.ListOrgRepositories(ctx, m.config.Organization)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(repos))
	for _, repo := range repos {
		ids = append(ids, repo.FullName)
	}

	if _, err := m.queue.Initialize(ids); err != nil {
		return err
	}

	log.Info().Int("repositories", len(ids)).Msg("created state file")
	return nil
}

// finishRepo logs the outcome and removes terminally finished repositories
// from the queue. A failed queue flush keeps the repository pending for the
// next run rather than silently marking it done.
func (m *mapper) finishRepo(o outcome) {
	switch o.status {
	case statusMapped:
		log.Info().Str("repo", o.repoID).Str("team", o.team).
			Msg("repository mapped")
	case statusUnmapped:
		log.Info().Str("repo", o.repoID).
			Msg("no committer resolved to a team")
	case statusFailed:
		log.Warn().Err(o.err).Str("repo", o.repoID).
			Msg("terminal failure, repository will not be retried")
	case statusRetry:
		log.Warn().Err(o.err).Str("repo", o.repoID).
			Msg("transient failure, repository stays queued")
	}

	if !o.terminal() {
		return
	}

	if err := m.queue.Remove(o.repoID); err != nil {
		log.Error().Err(err).Str("repo", o.repoID).
			Msg("failed to flush queue removal, repository stays pending")
	}
}
