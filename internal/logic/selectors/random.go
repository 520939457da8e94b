package selectors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/patrickwarner/promoserve/internal/logic"
	"github.com/patrickwarner/promoserve/internal/logic/filters"
	"github.com/patrickwarner/promoserve/internal/models"
)

// RandomSelector is a very simple example implementation that ignores
// expected profit and returns a uniformly random eligible campaign. It
// still honors every eligibility predicate and records the impression,
// so budgets hold; only the ranking is replaced. Useful as a baseline
// when evaluating the profit ranker.
type RandomSelector struct {
	Store    CandidateStore
	Recorder ImpressionRecorder
}

// SelectAd picks a random eligible campaign for the client.
func (s *RandomSelector) SelectAd(ctx context.Context, clientID uuid.UUID) (*models.AdResponse, error) {
	client, err := s.Store.GetClient(ctx, clientID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, logic.ErrUnknownClient
	}
	if err != nil {
		return nil, fmt.Errorf("load client: %w", err)
	}

	day, err := s.Store.CurrentDay(ctx)
	if err != nil {
		return nil, err
	}
	campaigns, err := s.Store.ValidCampaigns(ctx, day)
	if err != nil {
		return nil, err
	}
	if len(campaigns) == 0 {
		return nil, logic.ErrNoEligibleCampaign
	}

	ids := make([]uuid.UUID, len(campaigns))
	for i := range campaigns {
		ids[i] = campaigns[i].ID
	}
	counts, err := s.Store.UniqueEventCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	flags, err := s.Store.ClientEventFlags(ctx, clientID, ids)
	if err != nil {
		return nil, err
	}

	candidates := make([]models.CampaignCandidate, len(campaigns))
	for i, c := range campaigns {
		cnt := counts[c.ID]
		f := flags[c.ID]
		candidates[i] = models.CampaignCandidate{
			Campaign:          c,
			UniqueImpressions: cnt.Impressions,
			UniqueClicks:      cnt.Clicks,
			HasImpression:     f.HasImpression,
			HasClick:          f.HasClick,
		}
	}

	eligible := filters.NewSinglePassFilter(*client, day).FilterCandidates(candidates)
	if len(eligible) == 0 {
		return nil, logic.ErrNoEligibleCampaign
	}

	winner := eligible[rand.Intn(len(eligible))]
	recorded := false
	if !winner.HasImpression {
		ok, err := s.Recorder.RecordImpression(ctx, winner.Campaign.ID, clientID)
		if err != nil {
			return nil, fmt.Errorf("record impression: %w", err)
		}
		if !ok {
			return nil, logic.ErrNoEligibleCampaign
		}
		recorded = true
	}

	return &models.AdResponse{
		AdID:               winner.Campaign.ID,
		AdTitle:            winner.Campaign.AdTitle,
		AdText:             winner.Campaign.AdText,
		AdPhotoURL:         winner.Campaign.AdPhotoURL,
		AdvertiserID:       winner.Campaign.AdvertiserID,
		ImpressionRecorded: recorded,
	}, nil
}
