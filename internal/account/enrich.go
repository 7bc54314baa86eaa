package account

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gosimple/slug"
	userdomain "github.com/smallbiznis/passage/internal/user/domain"
	"go.uber.org/zap"
)

const (
	avatarEndpoint    = "https://ui-avatars.com/api/"
	genderizeEndpoint = "https://api.genderize.io/"
)

// Light backgrounds that keep the generated initials readable.
var avatarColors = []string{"fde68a", "bfdbfe", "bbf7d0", "fecaca", "ddd6fe", "fbcfe8"}

// Enricher fills optional profile fields after signup validation.
// Every step is best-effort: a failure is logged and the signup
// proceeds without that field.
type Enricher struct {
	log               *zap.Logger
	http              *http.Client
	genderizeEndpoint string
}

func NewEnricher(log *zap.Logger) *Enricher {
	return &Enricher{
		log:               log.Named("account.enrich"),
		http:              &http.Client{Timeout: 3 * time.Second},
		genderizeEndpoint: genderizeEndpoint,
	}
}

func (e *Enricher) Enrich(ctx context.Context, user *userdomain.User) {
	if user.AvatarURL == nil {
		if avatar := avatarURL(user.Name); avatar != "" {
			user.AvatarURL = &avatar
		}
	}
	if user.Gender == nil && user.FirstName != nil {
		if gender := e.inferGender(ctx, *user.FirstName); gender != "" {
			user.Gender = &gender
		}
	}
	if user.Username == nil && user.Name != "" {
		if username := slug.Make(user.Name); username != "" {
			user.Username = &username
		}
	}
}

func avatarURL(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	query := url.Values{}
	query.Set("name", name)
	query.Set("background", avatarColors[rand.Intn(len(avatarColors))])
	query.Set("color", "1a1a1a")
	return avatarEndpoint + "?" + query.Encode()
}

func (e *Enricher) inferGender(ctx context.Context, firstName string) string {
	endpoint := fmt.Sprintf("%s?name=%s", e.genderizeEndpoint, url.QueryEscape(firstName))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ""
	}
	resp, err := e.http.Do(req)
	if err != nil {
		e.log.Debug("gender inference skipped", zap.Error(err))
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}

	var payload struct {
		Gender      string  `json:"gender"`
		Probability float64 `json:"probability"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return ""
	}
	// Low-confidence guesses are worse than no value.
	if payload.Probability < 0.8 {
		return ""
	}
	switch payload.Gender {
	case "male":
		return userdomain.GenderMale
	case "female":
		return userdomain.GenderFemale
	default:
		return ""
	}
}
