package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
)

type SimConfig struct {
	APIBaseURL  string
	ProviderIDs []uuid.UUID // empty creates a fresh provider through the API
	Date        string
	Duration    time.Duration
	Workers     int
	BookRatio   float64
	CancelRatio float64
	ReadRatio   float64
}

// BookingPool tracks what the workers booked so cancellations and the final
// audit have something to work on.
type BookingPool struct {
	mu       sync.RWMutex
	booked   []bookedRef
	slotsMu  sync.RWMutex
	slots    map[uuid.UUID][]string
}

type bookedRef struct {
	ProviderID    uuid.UUID
	AppointmentID uuid.UUID
}

func (bp *BookingPool) Add(ref bookedRef) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	bp.booked = append(bp.booked, ref)
}

func (bp *BookingPool) Random(rng *rand.Rand) (bookedRef, bool) {
	bp.mu.RLock()
	defer bp.mu.RUnlock()
	if len(bp.booked) == 0 {
		return bookedRef{}, false
	}
	return bp.booked[rng.Intn(len(bp.booked))], true
}

func (bp *BookingPool) SetSlots(providerID uuid.UUID, slots []string) {
	bp.slotsMu.Lock()
	defer bp.slotsMu.Unlock()
	bp.slots[providerID] = slots
}

// RandomSlot may hand out a slot that is already gone; the server decides.
func (bp *BookingPool) RandomSlot(providerID uuid.UUID, rng *rand.Rand) (string, bool) {
	bp.slotsMu.RLock()
	defer bp.slotsMu.RUnlock()
	slots := bp.slots[providerID]
	if len(slots) == 0 {
		return "", false
	}
	return slots[rng.Intn(len(slots))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[percentileIndex(len(latencies), 50)]
	p95 = latencies[percentileIndex(len(latencies), 95)]

	return avg, min, max, p50, p95
}

func percentileIndex(n, p int) int {
	idx := n * p / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

type Metrics struct {
	Book         OperationMetrics
	Cancel       OperationMetrics
	Availability OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *BookingPool
	client  *http.Client
	metrics Metrics
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	sim := &Simulator{
		config: cfg,
		pool:   &BookingPool{slots: make(map[uuid.UUID][]string)},
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if len(sim.config.ProviderIDs) == 0 {
		providerID, err := sim.createProvider(ctx)
		if err != nil {
			log.Fatalf("create provider: %v", err)
		}
		sim.config.ProviderIDs = []uuid.UUID{providerID}
	}

	for _, providerID := range sim.config.ProviderIDs {
		slots, err := sim.fetchAvailability(ctx, providerID)
		if err != nil {
			log.Fatalf("load availability for %s: %v", providerID, err)
		}
		sim.pool.SetSlots(providerID, slots)
		log.Printf("provider %s: %d open slots on %s", providerID, len(slots), cfg.Date)
	}

	log.Printf("config: duration=%s workers=%d book=%.2f cancel=%.2f read=%.2f",
		cfg.Duration, cfg.Workers, cfg.BookRatio, cfg.CancelRatio, cfg.ReadRatio)

	sim.Run()
	sim.PrintReport()

	overlaps, err := sim.audit(context.Background())
	if err != nil {
		log.Fatalf("audit: %v", err)
	}
	if overlaps > 0 {
		log.Fatalf("audit failed: %d overlapping scheduled appointments", overlaps)
	}
	log.Println("audit passed: no overlapping scheduled appointments")
}

func loadConfig() (SimConfig, error) {
	cfg := SimConfig{
		APIBaseURL:  strings.TrimRight(getEnv("SIM_API_BASE_URL", "http://localhost:8080"), "/"),
		Date:        getEnv("SIM_DATE", nextWeekday(time.Now()).Format("2006-01-02")),
		Duration:    getDuration("SIM_DURATION", 30*time.Second),
		Workers:     getInt("SIM_WORKERS", 10),
		BookRatio:   getFloat("SIM_BOOK_RATIO", 0.5),
		CancelRatio: getFloat("SIM_CANCEL_RATIO", 0.1),
		ReadRatio:   getFloat("SIM_READ_RATIO", 0.4),
	}

	for _, raw := range strings.Split(os.Getenv("SIM_PROVIDER_IDS"), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return SimConfig{}, fmt.Errorf("SIM_PROVIDER_IDS: %w", err)
		}
		cfg.ProviderIDs = append(cfg.ProviderIDs, id)
	}

	if cfg.Workers <= 0 {
		return SimConfig{}, fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return SimConfig{}, fmt.Errorf("SIM_DURATION must be > 0")
	}

	// Normalize ratios
	total := cfg.BookRatio + cfg.CancelRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookRatio /= total
		cfg.CancelRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg, nil
}

func nextWeekday(t time.Time) time.Time {
	d := t.AddDate(0, 0, 1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

func (s *Simulator) createProvider(ctx context.Context) (uuid.UUID, error) {
	var created struct {
		ProviderID uuid.UUID `json:"provider_id"`
	}
	status, err := s.call(ctx, http.MethodPost, "/providers", nil, &created)
	if err != nil {
		return uuid.Nil, err
	}
	if status != http.StatusCreated {
		return uuid.Nil, fmt.Errorf("unexpected status %d", status)
	}

	// Short appointments leave room for contention.
	path := fmt.Sprintf("/providers/%s/schedule/duration", created.ProviderID)
	if status, err := s.call(ctx, http.MethodPut, path, map[string]int{"minutes": 30}, nil); err != nil || status != http.StatusOK {
		return uuid.Nil, fmt.Errorf("set duration: status=%d err=%v", status, err)
	}

	log.Printf("created provider %s", created.ProviderID)
	return created.ProviderID, nil
}

func (s *Simulator) fetchAvailability(ctx context.Context, providerID uuid.UUID) ([]string, error) {
	var resp struct {
		Slots []string `json:"slots"`
	}
	path := fmt.Sprintf("/providers/%s/availability?date=%s", providerID, s.config.Date)
	status, err := s.call(ctx, http.MethodGet, path, nil, &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", status)
	}
	return resp.Slots, nil
}

// call sends body as JSON and decodes a 2xx response into out when non-nil.
func (s *Simulator) call(ctx context.Context, method, path string, body, out any) (int, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			providerID := s.config.ProviderIDs[rng.Intn(len(s.config.ProviderIDs))]

			r := rng.Float64()
			switch {
			case r < s.config.BookRatio:
				s.doBook(ctx, providerID, rng)
			case r < s.config.BookRatio+s.config.CancelRatio:
				s.doCancel(ctx, rng)
			default:
				s.doAvailability(ctx, providerID)
			}
		}
	}
}

func (s *Simulator) doBook(ctx context.Context, providerID uuid.UUID, rng *rand.Rand) {
	slot, ok := s.pool.RandomSlot(providerID, rng)
	if !ok {
		return
	}

	reqBody := map[string]string{
		"date":       s.config.Date,
		"time":       slot,
		"client_ref": gofakeit.Email(),
	}
	var resp struct {
		Appointment struct {
			ID uuid.UUID `json:"id"`
		} `json:"appointment"`
	}

	start := time.Now()
	status, err := s.call(ctx, http.MethodPost, fmt.Sprintf("/providers/%s/bookings", providerID), reqBody, &resp)
	latency := time.Since(start)
	if ctx.Err() != nil {
		return
	}

	success := err == nil && status == http.StatusCreated
	if success {
		s.pool.Add(bookedRef{ProviderID: providerID, AppointmentID: resp.Appointment.ID})
	}
	s.metrics.Book.Record(latency, success, err == nil && status == http.StatusConflict)
}

func (s *Simulator) doCancel(ctx context.Context, rng *rand.Rand) {
	ref, ok := s.pool.Random(rng)
	if !ok {
		return
	}

	start := time.Now()
	path := fmt.Sprintf("/providers/%s/appointments/%s/cancel", ref.ProviderID, ref.AppointmentID)
	status, err := s.call(ctx, http.MethodPost, path, nil, nil)
	latency := time.Since(start)
	if ctx.Err() != nil {
		return
	}

	s.metrics.Cancel.Record(latency, err == nil && status == http.StatusOK, err == nil && status == http.StatusConflict)
}

func (s *Simulator) doAvailability(ctx context.Context, providerID uuid.UUID) {
	start := time.Now()
	slots, err := s.fetchAvailability(ctx, providerID)
	latency := time.Since(start)
	if ctx.Err() != nil {
		return
	}

	if err == nil {
		// Keep offering cancelled slots back to the bookers.
		if len(slots) > 0 {
			s.pool.SetSlots(providerID, slots)
		}
	}
	s.metrics.Availability.Record(latency, err == nil, false)
}

// audit lists every provider's appointments on the simulated date and counts
// pairs of scheduled appointments that overlap.
func (s *Simulator) audit(ctx context.Context) (int, error) {
	overlaps := 0
	for _, providerID := range s.config.ProviderIDs {
		var resp struct {
			Appointments []struct {
				Start           string `json:"start"`
				DurationMinutes int    `json:"duration_minutes"`
				Status          string `json:"status"`
			} `json:"appointments"`
		}
		path := fmt.Sprintf("/providers/%s/appointments?from=%s&to=%s", providerID, s.config.Date, s.config.Date)
		status, err := s.call(ctx, http.MethodGet, path, nil, &resp)
		if err != nil {
			return 0, err
		}
		if status != http.StatusOK {
			return 0, fmt.Errorf("list appointments for %s: status %d", providerID, status)
		}

		type span struct{ start, end int }
		var spans []span
		for _, a := range resp.Appointments {
			if a.Status != "scheduled" {
				continue
			}
			m, err := minutesOf(a.Start)
			if err != nil {
				return 0, err
			}
			spans = append(spans, span{m, m + a.DurationMinutes})
		}
		sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
		for i := 1; i < len(spans); i++ {
			if spans[i].start < spans[i-1].end {
				overlaps++
			}
		}
		log.Printf("provider %s: %d scheduled appointments", providerID, len(spans))
	}
	return overlaps, nil
}

func minutesOf(hhmm string) (int, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, fmt.Errorf("parse start %q: %w", hhmm, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Providers: %d\n", len(s.config.ProviderIDs))
	fmt.Printf("Date: %s\n", s.config.Date)
	fmt.Println()

	printOperationReport("Book", &s.metrics.Book)
	printOperationReport("Cancel", &s.metrics.Cancel)
	printOperationReport("Availability", &s.metrics.Availability)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

// Helper functions

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
