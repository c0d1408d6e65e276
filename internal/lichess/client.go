package lichess

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dfarias/chessinsight/internal/logger"
	"github.com/dfarias/chessinsight/internal/models"
)

const baseURL = "https://lichess.org"

// Filters narrows a game export request. Zero values mean "no filter".
type Filters struct {
	MaxCount        int
	TimeControl     string // perf type: bullet, blitz, rapid, classical
	SinceDaysAgo    int
	OpeningContains string
	RatedOnly       bool
	TournamentOnly  bool
}

// Client talks to the Lichess API.
type Client struct {
	httpClient *http.Client
	token      string
	base       string
	log        *logger.Logger
}

// New creates a Client authenticated with the given personal API token.
func New(token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		token:      token,
		base:       baseURL,
		log:        logger.Default().WithPrefix("lichess"),
	}
}

// NewWithBase creates a Client against a non-default API host. Used in tests.
func NewWithBase(token, base string) *Client {
	c := New(token)
	c.base = base
	return c
}

// exportedGame mirrors the NDJSON game object from the Lichess export API.
type exportedGame struct {
	ID        string `json:"id"`
	Rated     bool   `json:"rated"`
	Speed     string `json:"speed"`
	Perf      string `json:"perf"`
	CreatedAt int64  `json:"createdAt"`
	Status    string `json:"status"`
	Winner    string `json:"winner"`
	PGN       string `json:"pgn"`
	Players   struct {
		White exportedPlayer `json:"white"`
		Black exportedPlayer `json:"black"`
	} `json:"players"`
	Opening struct {
		ECO  string `json:"eco"`
		Name string `json:"name"`
	} `json:"opening"`
	Tournament string `json:"tournament"`
}

type exportedPlayer struct {
	User struct {
		Name string `json:"name"`
	} `json:"user"`
	Rating int `json:"rating"`
}

// FetchGames exports games played by username, newest first. An empty result
// is "no games", never an error.
func (c *Client) FetchGames(ctx context.Context, username string, f Filters) ([]models.RawGame, error) {
	log := logger.FromContext(ctx).WithPrefix("lichess").WithField("username", username)

	q := url.Values{}
	q.Set("pgnInJson", "true")
	q.Set("opening", "true")
	if f.MaxCount > 0 {
		q.Set("max", strconv.Itoa(f.MaxCount))
	}
	if f.TimeControl != "" {
		q.Set("perfType", f.TimeControl)
	}
	if f.SinceDaysAgo > 0 {
		since := time.Now().AddDate(0, 0, -f.SinceDaysAgo).UnixMilli()
		q.Set("since", strconv.FormatInt(since, 10))
	}
	if f.RatedOnly {
		q.Set("rated", "true")
	}

	reqURL := fmt.Sprintf("%s/api/games/user/%s?%s", c.base, url.PathEscape(username), q.Encode())
	log.Debug("fetching games from: %s", reqURL)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		log.Error("failed to create request: %v", err)
		return nil, err
	}
	req.Header.Set("Accept", "application/x-ndjson")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("failed to fetch games: %v", err)
		return nil, err
	}
	defer resp.Body.Close()

	log.Debug("games response received in %v, status=%d", time.Since(start), resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Error("games request failed: status=%d, body=%s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("games export status %d: %s", resp.StatusCode, string(body))
	}

	var games []models.RawGame
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var eg exportedGame
		if err := json.Unmarshal([]byte(line), &eg); err != nil {
			log.Warn("skipping undecodable game line: %v", err)
			continue
		}
		game := toRawGame(eg)
		if f.OpeningContains != "" &&
			!strings.Contains(strings.ToLower(game.Opening), strings.ToLower(f.OpeningContains)) {
			continue
		}
		if f.TournamentOnly && !IsTournamentGame(game) {
			continue
		}
		games = append(games, game)
	}
	if err := scanner.Err(); err != nil {
		log.Error("failed to read games stream: %v", err)
		return nil, err
	}

	log.Info("fetched %d games for user %s", len(games), username)
	return games, nil
}

// FetchGameByID exports a single game.
func (c *Client) FetchGameByID(ctx context.Context, gameID string) (models.RawGame, error) {
	log := logger.FromContext(ctx).WithPrefix("lichess").WithField("game_id", gameID)

	reqURL := fmt.Sprintf("%s/game/export/%s?pgnInJson=true&opening=true", c.base, url.PathEscape(gameID))
	log.Debug("fetching game from: %s", reqURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		log.Error("failed to create request: %v", err)
		return models.RawGame{}, err
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("failed to fetch game: %v", err)
		return models.RawGame{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Error("game request failed: status=%d, body=%s", resp.StatusCode, string(body))
		return models.RawGame{}, fmt.Errorf("game export status %d: %s", resp.StatusCode, string(body))
	}

	var eg exportedGame
	if err := json.NewDecoder(resp.Body).Decode(&eg); err != nil {
		log.Error("failed to decode game response: %v", err)
		return models.RawGame{}, err
	}

	log.Info("fetched game %s", eg.ID)
	return toRawGame(eg), nil
}

// Profile is the subset of the public user data the pipeline reports on.
type Profile struct {
	Username string         `json:"username"`
	Ratings  map[string]int `json:"ratings"`
}

// FetchProfile fetches the public profile for username.
func (c *Client) FetchProfile(ctx context.Context, username string) (Profile, error) {
	log := logger.FromContext(ctx).WithPrefix("lichess").WithField("username", username)

	reqURL := fmt.Sprintf("%s/api/user/%s", c.base, url.PathEscape(username))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Profile{}, err
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("failed to fetch profile: %v", err)
		return Profile{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Error("profile request failed: status=%d, body=%s", resp.StatusCode, string(body))
		return Profile{}, fmt.Errorf("profile status %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Username string `json:"username"`
		Perfs    map[string]struct {
			Rating int `json:"rating"`
		} `json:"perfs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		log.Error("failed to decode profile response: %v", err)
		return Profile{}, err
	}

	profile := Profile{Username: payload.Username, Ratings: map[string]int{}}
	for perf, p := range payload.Perfs {
		profile.Ratings[perf] = p.Rating
	}
	log.Debug("fetched profile with %d perf ratings", len(profile.Ratings))
	return profile, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func toRawGame(eg exportedGame) models.RawGame {
	event := eg.Tournament
	if event == "" && eg.Rated {
		event = "Rated " + eg.Speed + " game"
	}
	return models.RawGame{
		ID:          eg.ID,
		PGN:         eg.PGN,
		White:       eg.Players.White.User.Name,
		Black:       eg.Players.Black.User.Name,
		Result:      resultString(eg.Winner, eg.Status),
		TimeControl: eg.Speed,
		Opening:     eg.Opening.Name,
		ECO:         eg.Opening.ECO,
		Event:       event,
		PlayedAt:    time.UnixMilli(eg.CreatedAt),
		Rated:       eg.Rated,
	}
}

// resultString converts the winner/status pair into a PGN result tag.
func resultString(winner, status string) string {
	switch winner {
	case "white":
		return "1-0"
	case "black":
		return "0-1"
	}
	switch status {
	case "draw", "stalemate":
		return "1/2-1/2"
	default:
		return "*"
	}
}
