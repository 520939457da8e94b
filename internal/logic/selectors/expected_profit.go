package selectors

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/patrickwarner/promoserve/internal/logic"
	"github.com/patrickwarner/promoserve/internal/logic/filters"
	"github.com/patrickwarner/promoserve/internal/models"
)

// Click probability is a logistic curve over the ML affinity score.
// A score at the midpoint gives p = 0.5; an absent score (0) lands at
// roughly 0.0067, so unknown clients are almost fully discounted on
// the click term.
const (
	pClickSlope    = 0.001
	pClickMidpoint = 5000
)

// ClickProbability maps an ML score to a click probability.
func ClickProbability(score int) float64 {
	return 1 / (1 + math.Exp(-pClickSlope*(float64(score)-pClickMidpoint)))
}

// ExpectedProfit is the revenue a serve of this candidate is worth. A
// fresh impression earns the impression price now plus the expected
// click revenue later; a re-shown impression earns only the click
// expectation; a pair that already clicked has nothing left to earn.
func ExpectedProfit(c models.CampaignCandidate) float64 {
	p := ClickProbability(c.Score)
	switch {
	case !c.HasImpression:
		return c.Campaign.CostPerImpression + c.Campaign.CostPerClick*p
	case c.HasClick:
		return 0
	default:
		return c.Campaign.CostPerClick * p
	}
}

// ExpectedProfitSelector picks, for one client, the eligible campaign
// with the highest expected profit and records the impression before
// returning the ad. It is the default Selector implementation.
type ExpectedProfitSelector struct {
	store    CandidateStore
	recorder ImpressionRecorder
	logger   *zap.Logger
}

// NewExpectedProfitSelector constructs an ExpectedProfitSelector.
func NewExpectedProfitSelector(store CandidateStore, recorder ImpressionRecorder, logger *zap.Logger) *ExpectedProfitSelector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpectedProfitSelector{store: store, recorder: recorder, logger: logger}
}

// SelectAd returns the winning ad for the client, with the winner's
// impression durably recorded when this is the client's first view.
// logic.ErrUnknownClient and logic.ErrNoEligibleCampaign are the two
// expected failure modes; everything else is a store error.
func (s *ExpectedProfitSelector) SelectAd(ctx context.Context, clientID uuid.UUID) (*models.AdResponse, error) {
	client, err := s.store.GetClient(ctx, clientID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, logic.ErrUnknownClient
	}
	if err != nil {
		return nil, fmt.Errorf("load client: %w", err)
	}

	day, err := s.store.CurrentDay(ctx)
	if err != nil {
		return nil, err
	}

	candidates, err := s.buildCandidates(ctx, *client, day)
	if err != nil {
		return nil, err
	}

	eligible := filters.NewSinglePassFilter(*client, day).FilterCandidates(candidates)
	if len(eligible) == 0 {
		return nil, logic.ErrNoEligibleCampaign
	}

	ranked := rankCandidates(eligible)
	winner := ranked[0]

	recorded := false
	if !winner.HasImpression {
		ok, err := s.recorder.RecordImpression(ctx, winner.Campaign.ID, clientID)
		if err != nil {
			return nil, fmt.Errorf("record impression: %w", err)
		}
		if !ok {
			// The last impression slot was consumed between our
			// snapshot and the recorder's lock. The caller re-queries.
			s.logger.Info("impression slot lost to concurrent writer",
				zap.String("campaign_id", winner.Campaign.ID.String()),
				zap.String("client_id", clientID.String()))
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

// buildCandidates joins one snapshot of valid campaigns with their
// unique event counts, the client's own event flags and the client's
// ML scores by advertiser.
func (s *ExpectedProfitSelector) buildCandidates(ctx context.Context, client models.Client, day int) ([]models.CampaignCandidate, error) {
	campaigns, err := s.store.ValidCampaigns(ctx, day)
	if err != nil {
		return nil, err
	}
	if len(campaigns) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(campaigns))
	for i := range campaigns {
		ids[i] = campaigns[i].ID
	}

	counts, err := s.store.UniqueEventCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	flags, err := s.store.ClientEventFlags(ctx, client.ID, ids)
	if err != nil {
		return nil, err
	}
	scores, err := s.store.MLScoresForClient(ctx, client.ID)
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
			Score:             scores[c.AdvertiserID],
		}
	}
	return candidates, nil
}

// rankCandidates orders candidates by expected profit descending, raw
// ML score descending, then campaign ID ascending. The last key makes
// the winner deterministic for a fixed store snapshot.
func rankCandidates(cands []models.CampaignCandidate) []models.CampaignCandidate {
	// Expected profit would otherwise be recomputed O(N log N) times
	// inside the comparator; evaluate each candidate once.
	profits := make([]float64, len(cands))
	for i := range cands {
		profits[i] = ExpectedProfit(cands[i])
	}
	order := make([]int, len(cands))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		i, j := order[a], order[b]
		if profits[i] != profits[j] {
			return profits[i] > profits[j]
		}
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		return bytes.Compare(cands[i].Campaign.ID[:], cands[j].Campaign.ID[:]) < 0
	})
	ranked := make([]models.CampaignCandidate, len(cands))
	for i, idx := range order {
		ranked[i] = cands[idx]
	}
	return ranked
}
