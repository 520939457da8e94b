// Command seed populates a running server with demo advertisers,
// clients, ML scores and campaigns through the public API, so the
// serve path has something to pick from out of the box.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/patrickwarner/promoserve/internal/config"
	"github.com/patrickwarner/promoserve/internal/models"
	"github.com/patrickwarner/promoserve/internal/observability"
)

var (
	advertiserCount = flag.Int("advertisers", 5, "number of advertisers")
	campaignsPer    = flag.Int("campaigns", 4, "campaigns per advertiser")
	clientCount     = flag.Int("clients", 50, "number of clients")
	currentDay      = flag.Int("day", 0, "virtual day to set before seeding")
	seed            = flag.Int64("seed", time.Now().UnixNano(), "rng seed")
	baseURL         = flag.String("url", "", "server base URL (default http://localhost:$PORT)")
)

func main() {
	flag.Parse()

	logger, err := observability.InitLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg := config.Load()
	base := *baseURL
	if base == "" {
		base = "http://localhost:" + cfg.Port
	}

	r := rand.New(rand.NewSource(*seed))
	client := &http.Client{Timeout: 10 * time.Second}

	if err := post(client, base+"/time/advance", map[string]int{"current_date": *currentDay}); err != nil {
		logger.Fatal("set virtual day", zap.Error(err))
	}

	clients := make([]models.Client, *clientCount)
	for i := range clients {
		clients[i] = randomClient(r)
	}
	if err := post(client, base+"/clients/bulk", clients); err != nil {
		logger.Fatal("seed clients", zap.Error(err))
	}

	advertisers := make([]models.Advertiser, *advertiserCount)
	for i := range advertisers {
		advertisers[i] = models.Advertiser{ID: uuid.New(), Name: fakeName(r)}
	}
	if err := post(client, base+"/advertisers/bulk", advertisers); err != nil {
		logger.Fatal("seed advertisers", zap.Error(err))
	}

	for _, adv := range advertisers {
		for c := 0; c < *campaignsPer; c++ {
			camp := randomCampaign(r, *currentDay)
			url := fmt.Sprintf("%s/advertisers/%s/campaigns", base, adv.ID)
			if err := post(client, url, camp); err != nil {
				logger.Fatal("seed campaign", zap.Error(err), zap.String("advertiser_id", adv.ID.String()))
			}
		}
	}

	// Scores for a random half of the client/advertiser pairs, so both
	// scored and unscored candidates show up in serving.
	scored := 0
	for _, cl := range clients {
		for _, adv := range advertisers {
			if r.Intn(2) == 0 {
				continue
			}
			score := models.MLScore{ClientID: cl.ID, AdvertiserID: adv.ID, Score: r.Intn(10000)}
			if err := post(client, base+"/ml-scores", score); err != nil {
				logger.Fatal("seed ml score", zap.Error(err))
			}
			scored++
		}
	}

	fmt.Printf("seeded %d clients, %d advertisers, %d campaigns, %d scores\n",
		len(clients), len(advertisers), len(advertisers)*(*campaignsPer), scored)
}

func post(client *http.Client, url string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return nil
}

// random helpers

var nameAdjectives = []string{"Acme", "Prime", "Dynamic", "Next", "Fast", "Bright", "Super"}
var nameNouns = []string{"Media", "Goods", "Travel", "Fitness", "Books", "Games"}

func fakeName(r *rand.Rand) string {
	return fmt.Sprintf("%s %s", nameAdjectives[r.Intn(len(nameAdjectives))], nameNouns[r.Intn(len(nameNouns))])
}

var locations = []string{"Moscow", "Berlin", "London", "Paris", "Tokyo"}
var genders = []string{models.GenderMale, models.GenderFemale}

func randomClient(r *rand.Rand) models.Client {
	return models.Client{
		ID:       uuid.New(),
		Login:    fmt.Sprintf("user%04d", r.Intn(10000)),
		Age:      18 + r.Intn(50),
		Location: locations[r.Intn(len(locations))],
		Gender:   genders[r.Intn(len(genders))],
	}
}

func fakeCampaignTitle(r *rand.Rand) string {
	seasons := []string{"Spring", "Summer", "Fall", "Winter", "Holiday"}
	products := []string{"Sale", "Launch", "Promo", "Special"}
	return fmt.Sprintf("%s %s %d", seasons[r.Intn(len(seasons))], products[r.Intn(len(products))], r.Intn(100))
}

func randomCampaign(r *rand.Rand, day int) models.Campaign {
	camp := models.Campaign{
		ImpressionsLimit:  r.Intn(500) + 50,
		ClicksLimit:       r.Intn(100) + 10,
		CostPerImpression: float64(r.Intn(500)+50) / 100,
		CostPerClick:      float64(r.Intn(2000)+200) / 100,
		AdTitle:           fakeCampaignTitle(r),
		AdText:            "Limited offer, do not miss out.",
		StartDate:         day,
		EndDate:           day + r.Intn(21) + 7,
	}
	if r.Intn(3) == 0 {
		photo := fmt.Sprintf("https://example.com/image%d.png", r.Intn(10000))
		camp.AdPhotoURL = &photo
	}
	if r.Intn(2) == 0 {
		g := models.GenderAll
		camp.Targeting.Gender = &g
	}
	if r.Intn(3) == 0 {
		from := 18 + r.Intn(10)
		to := from + 20 + r.Intn(20)
		camp.Targeting.AgeFrom = &from
		camp.Targeting.AgeTo = &to
	}
	if r.Intn(4) == 0 {
		loc := locations[r.Intn(len(locations))]
		camp.Targeting.Location = &loc
	}
	return camp
}
