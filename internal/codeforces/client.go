// Package codeforces is a thin client for the pieces of the Codeforces API
// the bot needs: rating lookup at bind time, the problemset dump for the
// local cache, and scanning recent submissions for accepted verdicts.
package codeforces

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Nutr1t07/cpbot/internal/models"
)

const DefaultBaseURL = "https://codeforces.com/api"

// submissionScanDepth matches the judge's default page size; a duel solve is
// expected to be among the competitor's latest submissions.
const submissionScanDepth = 50

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type apiResponse struct {
	Status  string          `json:"status"`
	Comment string          `json:"comment"`
	Result  json.RawMessage `json:"result"`
}

func (c *Client) call(ctx context.Context, method string, params url.Values, out interface{}) error {
	u := c.baseURL + method
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(data, &apiResp); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if apiResp.Status != "OK" {
		return fmt.Errorf("codeforces: %s", apiResp.Comment)
	}

	if err := json.Unmarshal(apiResp.Result, out); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}
	return nil
}

// UserRating returns the current rating of handle. Users who have never
// played a rated contest come back as rating 0.
func (c *Client) UserRating(ctx context.Context, handle string) (int, error) {
	var users []struct {
		Handle string `json:"handle"`
		Rating int    `json:"rating"`
	}
	params := url.Values{"handles": {handle}}
	if err := c.call(ctx, "/user.info", params, &users); err != nil {
		return 0, err
	}
	if len(users) == 0 {
		return 0, fmt.Errorf("codeforces: handle %q not found", handle)
	}
	return users[0].Rating, nil
}

type rawProblem struct {
	ContestID      int      `json:"contestId"`
	ProblemsetName string   `json:"problemsetName"`
	Index          string   `json:"index"`
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	Points         float64  `json:"points"`
	Rating         *int     `json:"rating"`
	Tags           []string `json:"tags"`
}

// Problems downloads the whole problemset for the local cache.
func (c *Client) Problems(ctx context.Context) ([]models.Problem, error) {
	var result struct {
		Problems []rawProblem `json:"problems"`
	}
	if err := c.call(ctx, "/problemset.problems", nil, &result); err != nil {
		return nil, err
	}

	problems := make([]models.Problem, 0, len(result.Problems))
	for _, rp := range result.Problems {
		tags, _ := json.Marshal(rp.Tags)
		problems = append(problems, models.Problem{
			Name:           rp.Name,
			ContestID:      rp.ContestID,
			ProblemsetName: rp.ProblemsetName,
			Index:          rp.Index,
			Type:           rp.Type,
			Points:         rp.Points,
			Rating:         rp.Rating,
			Tags:           string(tags),
		})
	}
	return problems, nil
}

// EarliestAC scans the handle's recent submissions and returns the earliest
// time an OK verdict was recorded for the given task, or ok=false when the
// task has no accepted submission yet.
func (c *Client) EarliestAC(ctx context.Context, handle string, contestID int, index string) (time.Time, bool, error) {
	var submissions []struct {
		ContestID int    `json:"contestId"`
		Verdict   string `json:"verdict"`
		Problem   struct {
			Index string `json:"index"`
		} `json:"problem"`
		CreationTimeSeconds int64 `json:"creationTimeSeconds"`
	}
	params := url.Values{
		"handle": {handle},
		"count":  {strconv.Itoa(submissionScanDepth)},
	}
	if err := c.call(ctx, "/user.status", params, &submissions); err != nil {
		return time.Time{}, false, err
	}

	var earliest int64
	for _, s := range submissions {
		if s.Verdict != "OK" || s.ContestID != contestID || s.Problem.Index != index {
			continue
		}
		if earliest == 0 || s.CreationTimeSeconds < earliest {
			earliest = s.CreationTimeSeconds
		}
	}
	if earliest == 0 {
		return time.Time{}, false, nil
	}
	return time.Unix(earliest, 0), true, nil
}
