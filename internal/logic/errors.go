package logic

import "errors"

// ErrUnknownClient is returned when a serve request names a client the
// catalog has never seen.
var ErrUnknownClient = errors.New("unknown client")

// ErrNoEligibleCampaign is returned when no campaign survives the
// eligibility filters for a client, or when the last budget slot was
// consumed concurrently between selection and recording. Callers may
// simply re-query.
var ErrNoEligibleCampaign = errors.New("no eligible campaign for client")
