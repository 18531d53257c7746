package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPAPI talks to the timer server's HTTP surface. Request timeouts live
// here: they are a transport concern of the device, not of the service.
type HTTPAPI struct {
	baseURL string
	userID  string
	client  *http.Client
}

func NewHTTPAPI(baseURL, userID string) *HTTPAPI {
	return &HTTPAPI{
		baseURL: baseURL,
		userID:  userID,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type startPayload struct {
	TaskID     string     `json:"task_id"`
	Notes      string     `json:"notes,omitempty"`
	ClientTime *time.Time `json:"client_time,omitempty"`
}

type stopPayload struct {
	Notes string `json:"notes,omitempty"`
}

type timerPayload struct {
	ID              string     `json:"id"`
	TaskID          string     `json:"task_id"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	DurationSeconds int64      `json:"duration_seconds"`
	Notes           string     `json:"notes"`
}

type ongoingPayload struct {
	ID             string    `json:"id"`
	TaskID         string    `json:"task_id"`
	StartTime      time.Time `json:"start_time"`
	ElapsedSeconds int64     `json:"elapsed_seconds"`
	Notes          string    `json:"notes"`
}

func (a *HTTPAPI) Start(ctx context.Context, taskID, notes string) (OngoingSnapshot, error) {
	now := time.Now()
	var resp ongoingPayload
	err := a.do(ctx, http.MethodPost, "/timers", startPayload{
		TaskID:     taskID,
		Notes:      notes,
		ClientTime: &now,
	}, &resp, map[int]error{
		http.StatusConflict:  ErrAlreadyRunning,
		http.StatusForbidden: ErrTaskNotAssigned,
	})
	if err != nil {
		return OngoingSnapshot{}, err
	}
	return OngoingSnapshot{
		TimerID:   resp.ID,
		TaskID:    resp.TaskID,
		StartTime: resp.StartTime,
		Notes:     resp.Notes,
	}, nil
}

func (a *HTTPAPI) Stop(ctx context.Context, timerID, notes string) (CommittedEntry, error) {
	var resp timerPayload
	err := a.do(ctx, http.MethodPost, "/timers/"+timerID+"/stop", stopPayload{Notes: notes}, &resp, map[int]error{
		http.StatusNotFound:  ErrNotFound,
		http.StatusForbidden: ErrUnauthorized,
	})
	if err != nil {
		return CommittedEntry{}, err
	}

	entry := CommittedEntry{
		TimerID:         resp.ID,
		StartTime:       resp.StartTime,
		DurationSeconds: resp.DurationSeconds,
	}
	if resp.EndTime != nil {
		entry.EndTime = *resp.EndTime
	}
	return entry, nil
}

func (a *HTTPAPI) Discard(ctx context.Context, timerID string) error {
	return a.do(ctx, http.MethodDelete, "/timers/"+timerID, nil, nil, map[int]error{
		http.StatusNotFound:  ErrNotFound,
		http.StatusForbidden: ErrUnauthorized,
	})
}

func (a *HTTPAPI) Ongoing(ctx context.Context) (*OngoingSnapshot, error) {
	var resp *ongoingPayload
	err := a.do(ctx, http.MethodGet, "/timers/ongoing", nil, &resp, nil)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}
	return &OngoingSnapshot{
		TimerID:        resp.ID,
		TaskID:         resp.TaskID,
		StartTime:      resp.StartTime,
		ElapsedSeconds: resp.ElapsedSeconds,
		Notes:          resp.Notes,
	}, nil
}

// do runs one request and decodes the response. Statuses listed in errmap
// become their sentinel; other non-2xx statuses and network failures come
// back as plain errors, which the tracker treats as transient.
func (a *HTTPAPI) do(ctx context.Context, method, path string, body, out any, errmap map[int]error) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", a.userID)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if sentinel, ok := errmap[resp.StatusCode]; ok {
		return sentinel
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
