package models

import (
	"strings"

	"github.com/google/uuid"
)

// Gender values accepted for clients and campaign targeting.
// Clients carry MALE or FEMALE; targeting may additionally use ALL
// to match every client.
const (
	GenderMale   = "MALE"
	GenderFemale = "FEMALE"
	GenderAll    = "ALL"
)

// Client represents an end user of the platform, the audience side of
// every serve decision. Age and location are optional; eligibility
// filtering treats a missing age as 0 and a missing location as the
// empty string.
type Client struct {
	ID       uuid.UUID `json:"client_id"` // Unique identifier for the client.
	Login    string    `json:"login"`     // Display login, non-empty.
	Age      int       `json:"age"`       // Age in years, non-negative.
	Location string    `json:"location"`  // Free-form location label used for exact-match targeting.
	Gender   string    `json:"gender"`    // MALE or FEMALE.
}

// Validate normalizes the client in place and reports the first
// invariant violation. Login is trimmed; gender is upper-cased so
// lower-case payloads round-trip to the canonical form.
func (c *Client) Validate() error {
	c.Login = strings.TrimSpace(c.Login)
	if c.Login == "" {
		return Invalid("login", "must not be empty")
	}
	if c.Age < 0 {
		return Invalid("age", "must be non-negative")
	}
	c.Gender = strings.ToUpper(strings.TrimSpace(c.Gender))
	if c.Gender != GenderMale && c.Gender != GenderFemale {
		return Invalid("gender", "must be MALE or FEMALE")
	}
	return nil
}
