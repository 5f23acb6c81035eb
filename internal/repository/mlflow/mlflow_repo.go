package mlflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Taverna-Hub/Projeto-AVD/internal/domain/entity"
)

// Client talks to the MLflow tracking server over its REST API. Only the
// read side the sync pipeline needs is implemented.
type Client struct {
	baseURL string
	httpc   *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 15 * time.Second},
	}
}

type experimentResponse struct {
	Experiment struct {
		ExperimentID string `json:"experiment_id"`
	} `json:"experiment"`
}

type searchRunsRequest struct {
	ExperimentIDs []string `json:"experiment_ids"`
	MaxResults    int      `json:"max_results"`
	OrderBy       []string `json:"order_by"`
}

type searchRunsResponse struct {
	Runs []struct {
		Info struct {
			RunID     string `json:"run_id"`
			RunName   string `json:"run_name"`
			StartTime int64  `json:"start_time"`
		} `json:"info"`
		Data struct {
			Tags   []keyValue `json:"tags"`
			Params []keyValue `json:"params"`
		} `json:"data"`
	} `json:"runs"`
}

type keyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// GetRuns returns the most recent runs of the named experiment, newest
// first. An unknown experiment yields an empty slice, not an error.
func (c *Client) GetRuns(ctx context.Context, experiment string, maxResults int) ([]entity.RunRecord, error) {
	experimentID, err := c.experimentID(ctx, experiment)
	if err != nil {
		return nil, err
	}
	if experimentID == "" {
		return nil, nil
	}

	reqBody, err := json.Marshal(searchRunsRequest{
		ExperimentIDs: []string{experimentID},
		MaxResults:    maxResults,
		OrderBy:       []string{"attributes.start_time DESC"},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/2.0/mlflow/runs/search", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search runs: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search runs: unexpected status %s", resp.Status)
	}

	var body searchRunsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode runs: %w", err)
	}

	runs := make([]entity.RunRecord, 0, len(body.Runs))
	for _, r := range body.Runs {
		run := entity.RunRecord{
			RunID:     r.Info.RunID,
			RunName:   r.Info.RunName,
			StartTime: r.Info.StartTime,
			Tags:      toMap(r.Data.Tags),
			Params:    toMap(r.Data.Params),
		}
		// Older tracking servers leave info.run_name empty and carry the
		// name in a system tag instead.
		if run.RunName == "" {
			run.RunName = run.Tags["mlflow.runName"]
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func (c *Client) experimentID(ctx context.Context, name string) (string, error) {
	endpoint := c.baseURL + "/api/2.0/mlflow/experiments/get-by-name?experiment_name=" + url.QueryEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("get experiment %q: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("get experiment %q: unexpected status %s", name, resp.Status)
	}

	var body experimentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode experiment %q: %w", name, err)
	}
	return body.Experiment.ExperimentID, nil
}

func toMap(pairs []keyValue) map[string]string {
	m := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		m[kv.Key] = kv.Value
	}
	return m
}
