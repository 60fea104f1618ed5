package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	cb "github.com/sony/gobreaker"

	"appraisal/internal/platform/metrics"
)

type HTTPConfig struct {
	BaseURL         string
	Timeout         time.Duration
	BreakerFailures int
	BreakerCooldown time.Duration
}

// HTTPDirectory reads employees from a remote directory service at
// GET {base}/employees/{id}. Calls go through a circuit breaker; a 404 is an
// answer, not a failure, and never trips it.
type HTTPDirectory struct {
	baseURL string
	client  *http.Client
	breaker *cb.CircuitBreaker
}

func NewHTTPDirectory(cfg HTTPConfig) *HTTPDirectory {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.BreakerFailures <= 0 {
		cfg.BreakerFailures = 5
	}
	failures := uint32(cfg.BreakerFailures)
	settings := cb.Settings{
		Name:        "directory",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts cb.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrEmployeeNotFound)
		},
		OnStateChange: func(name string, from, to cb.State) {
			slog.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			metrics.DirectoryBreakerState.WithLabelValues(name).Set(float64(to))
		},
	}
	return &HTTPDirectory{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: cb.NewCircuitBreaker(settings),
	}
}

func (d *HTTPDirectory) GetEmployee(ctx context.Context, id string) (Employee, error) {
	if strings.TrimSpace(id) == "" {
		return Employee{}, ErrEmployeeNotFound
	}
	out, err := d.breaker.Execute(func() (interface{}, error) {
		return d.fetch(ctx, id)
	})
	if err != nil {
		if errors.Is(err, cb.ErrOpenState) || errors.Is(err, cb.ErrTooManyRequests) {
			return Employee{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return Employee{}, err
	}
	return out.(Employee), nil
}

func (d *HTTPDirectory) GetManagerOf(ctx context.Context, employeeID string) (Employee, error) {
	return follow(ctx, d.GetEmployee, employeeID, managerLink)
}

func (d *HTTPDirectory) GetReviewerOf(ctx context.Context, employeeID string) (Employee, error) {
	return follow(ctx, d.GetEmployee, employeeID, reviewerLink)
}

func (d *HTTPDirectory) fetch(ctx context.Context, id string) (Employee, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/employees/"+url.PathEscape(id), nil)
	if err != nil {
		return Employee{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return Employee{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Employee{}, ErrEmployeeNotFound
	case resp.StatusCode != http.StatusOK:
		return Employee{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var emp Employee
	if err := json.NewDecoder(resp.Body).Decode(&emp); err != nil {
		return Employee{}, fmt.Errorf("%w: decode employee: %v", ErrUnavailable, err)
	}
	if emp.ID == "" {
		emp.ID = id
	}
	return emp, nil
}
