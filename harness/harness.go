// Package harness runs HTTP smoke scenarios against a running vendor API.
package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

const DefaultTimeout = 10 * time.Second

// Vendor mirrors the API's vendor JSON.
type Vendor struct {
	Id                  string `json:"id"`
	VendorName          string `json:"vendor_name"`
	ServiceProviderName string `json:"service_provider_name"`
	PhoneNumber         string `json:"phone_number"`
}

type Scenario struct {
	Name string
	Run  func(ctx context.Context, r *Runner) error
}

type Result struct {
	Name     string
	Err      error
	Duration time.Duration
}

func (r Result) Passed() bool { return r.Err == nil }

type Summary struct {
	Results []Result
	Passed  int
	Failed  int
}

func (s Summary) Total() int { return len(s.Results) }
func (s Summary) OK() bool   { return s.Failed == 0 }

// Runner holds per-run state. Names and phone numbers are derived from RunID
// so repeated runs against the same database do not collide.
type Runner struct {
	APIURL  string
	RunID   string
	Timeout time.Duration
	Token   string
	Logger  zerolog.Logger

	// Cleanup deletes every vendor the run created.
	Cleanup bool

	created []string
	phones  int
}

func NewRunner(apiURL string) *Runner {
	return &Runner{
		APIURL:  strings.TrimRight(apiURL, "/"),
		RunID:   time.Now().UTC().Format("20060102150405"),
		Timeout: DefaultTimeout,
		Logger:  zerolog.Nop(),
		Cleanup: true,
	}
}

// Run executes scenarios in order; a failure does not stop the run.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) Summary {
	var sum Summary
	for _, sc := range scenarios {
		if ctx.Err() != nil {
			sum.Results = append(sum.Results, Result{Name: sc.Name, Err: ctx.Err()})
			sum.Failed++
			continue
		}
		start := time.Now()
		err := sc.Run(ctx, r)
		res := Result{Name: sc.Name, Err: err, Duration: time.Since(start)}
		sum.Results = append(sum.Results, res)
		if err != nil {
			sum.Failed++
			r.Logger.Warn().Err(err).Str("scenario", sc.Name).Msg("scenario failed")
		} else {
			sum.Passed++
			r.Logger.Info().Str("scenario", sc.Name).Dur("duration", res.Duration).Msg("scenario passed")
		}
	}
	if r.Cleanup {
		r.cleanup()
	}
	return sum
}

func (r *Runner) cleanup() {
	for _, id := range r.created {
		status, _, err := r.do(fiber.MethodDelete, "/vendors/"+id, nil)
		if err != nil || (status != fiber.StatusOK && status != fiber.StatusNotFound) {
			r.Logger.Warn().Err(err).Int("status", status).Str("id", id).Msg("cleanup delete failed")
		}
	}
	r.created = nil
}

// Name returns a vendor name unique to this run.
func (r *Runner) Name(base string) string {
	return fmt.Sprintf("%s %s", base, r.RunID)
}

// Phone returns a fresh 10 digit phone number unique to this run.
func (r *Runner) Phone() string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(r.RunID))
	r.phones++
	return fmt.Sprintf("%05d%05d", h.Sum32()%100000, r.phones)
}

// CreateVendor posts body to /vendors and records created ids for cleanup.
func (r *Runner) CreateVendor(body map[string]string) (int, Vendor, []byte, error) {
	status, raw, err := r.do(fiber.MethodPost, "/vendors", body)
	if err != nil {
		return 0, Vendor{}, nil, err
	}
	var v Vendor
	if status == fiber.StatusOK {
		if err := json.Unmarshal(raw, &v); err != nil {
			return status, Vendor{}, raw, fmt.Errorf("decode vendor: %w", err)
		}
		if v.Id != "" {
			r.created = append(r.created, v.Id)
		}
	}
	return status, v, raw, nil
}

func (r *Runner) Get(path string) (int, []byte, error) {
	return r.do(fiber.MethodGet, path, nil)
}

func (r *Runner) Post(path string, body any) (int, []byte, error) {
	return r.do(fiber.MethodPost, path, body)
}

func (r *Runner) do(method, path string, body any) (int, []byte, error) {
	url := r.APIURL + path
	var agent *fiber.Agent
	switch method {
	case fiber.MethodPost:
		agent = fiber.Post(url)
	case fiber.MethodDelete:
		agent = fiber.Delete(url)
	default:
		agent = fiber.Get(url)
	}
	if body != nil {
		agent.JSON(body)
	}
	if r.Token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+r.Token)
	}
	agent.Timeout(r.Timeout)

	status, raw, errs := agent.Bytes()
	if len(errs) > 0 {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, errs[0])
	}
	return status, raw, nil
}

// WriteReport prints one line per scenario and a summary.
func WriteReport(w io.Writer, sum Summary) error {
	var b strings.Builder
	for _, res := range sum.Results {
		if res.Passed() {
			fmt.Fprintf(&b, "PASS %s\n", res.Name)
		} else {
			fmt.Fprintf(&b, "FAIL %s: %v\n", res.Name, res.Err)
		}
	}
	b.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&b, "TEST SUMMARY: %d/%d tests passed\n", sum.Passed, sum.Total())
	fmt.Fprintf(&b, "Passed: %d\nFailed: %d\n", sum.Passed, sum.Failed)
	_, err := io.WriteString(w, b.String())
	return err
}
