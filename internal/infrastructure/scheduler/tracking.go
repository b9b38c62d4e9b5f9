package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/marmoleria/backend/internal/domain/shared"
	"github.com/marmoleria/backend/internal/domain/stock"
	"go.uber.org/zap"
)

// ContainerUpdate is one entry of the shipping tracking feed
type ContainerUpdate struct {
	ContainerID string `json:"container_id"`
	Status      string `json:"status"`
}

// ContainerFeed returns the latest known status of tracked containers
type ContainerFeed interface {
	Fetch(ctx context.Context) ([]ContainerUpdate, error)
}

// ContainerStatusUpdater is the part of the stock ledger the tracking job needs
type ContainerStatusUpdater interface {
	Container(id string) (stock.ContainerRecord, error)
	AdvanceContainerStatus(ctx context.Context, id string, status stock.ContainerStatus) (stock.ContainerRecord, error)
}

// HTTPContainerFeed reads the feed as a JSON document from a URL.
// Expected body: {"containers":[{"container_id":"MSCU1234567","status":"IN_PORT"}]}
type HTTPContainerFeed struct {
	url    string
	client *http.Client
}

// NewHTTPContainerFeed creates a feed reader with the given request timeout
func NewHTTPContainerFeed(url string, timeout time.Duration) *HTTPContainerFeed {
	return &HTTPContainerFeed{url: url, client: &http.Client{Timeout: timeout}}
}

// Fetch downloads and decodes the feed
func (f *HTTPContainerFeed) Fetch(ctx context.Context) ([]ContainerUpdate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", ErrFeedUnavailable, resp.StatusCode)
	}

	var body struct {
		Containers []ContainerUpdate `json:"containers"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrFeedUnavailable, err)
	}
	return body.Containers, nil
}

// TrackingResult summarizes one poll
type TrackingResult struct {
	Advanced  int
	Unchanged int
	Skipped   int
}

// TrackingJob applies the tracking feed to the stock ledger. Containers the
// ledger does not know and transitions the lifecycle forbids are logged and
// skipped so one bad entry never blocks the rest of the feed.
type TrackingJob struct {
	feed    ContainerFeed
	ledger  ContainerStatusUpdater
	logger  *zap.Logger
	onApply func(ctx context.Context, result TrackingResult)
}

// NewTrackingJob creates the container tracking job
func NewTrackingJob(feed ContainerFeed, ledger ContainerStatusUpdater, logger *zap.Logger) *TrackingJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrackingJob{feed: feed, ledger: ledger, logger: logger}
}

// OnApply registers a callback invoked after every successful poll
func (j *TrackingJob) OnApply(fn func(ctx context.Context, result TrackingResult)) {
	j.onApply = fn
}

// Name implements Job
func (j *TrackingJob) Name() string { return "container-tracking" }

// Run implements Job
func (j *TrackingJob) Run(ctx context.Context) error {
	_, err := j.Poll(ctx)
	return err
}

// Poll fetches the feed once and applies it
func (j *TrackingJob) Poll(ctx context.Context) (TrackingResult, error) {
	var result TrackingResult

	updates, err := j.feed.Fetch(ctx)
	if err != nil {
		return result, err
	}

	for _, u := range updates {
		log := j.logger.With(zap.String("container_id", u.ContainerID), zap.String("status", u.Status))

		status, err := stock.ParseContainerStatus(u.Status)
		if err != nil {
			log.Warn("Tracking feed sent an unknown status")
			result.Skipped++
			continue
		}
		current, err := j.ledger.Container(u.ContainerID)
		if err != nil {
			log.Debug("Container not registered, skipping")
			result.Skipped++
			continue
		}
		if current.Status == status {
			result.Unchanged++
			continue
		}

		if _, err := j.ledger.AdvanceContainerStatus(ctx, u.ContainerID, status); err != nil {
			if shared.HasCode(err, shared.CodeInvalidStatusTransition) {
				log.Warn("Tracking feed status rejected", zap.String("current", current.Status.String()))
				result.Skipped++
				continue
			}
			return result, fmt.Errorf("advance container %s: %w", u.ContainerID, err)
		}
		log.Info("Container status advanced", zap.String("from", current.Status.String()))
		result.Advanced++
	}

	if j.onApply != nil {
		j.onApply(ctx, result)
	}
	return result, nil
}
