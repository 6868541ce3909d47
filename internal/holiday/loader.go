package holiday

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/groenvelt/storefront-bff/pkg/config"
	"github.com/groenvelt/storefront-bff/pkg/logger"
)

// document mirrors the static blocked-dates payload. Upstream serializes
// the arrays inconsistently (plain arrays or object-keyed pseudo-arrays),
// so both fields decode through flexibleDates.
type document struct {
	Shipping flexibleDates `json:"shipping"`
	Delivery flexibleDates `json:"delivery"`
}

// flexibleDates accepts ["2026-01-01", ...] as well as {"0": "2026-01-01", ...}.
type flexibleDates []string

func (f *flexibleDates) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*f = arr
		return nil
	}

	var obj map[string]string
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("dates must be an array or object of strings")
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, aErr := strconv.Atoi(keys[i])
		b, bErr := strconv.Atoi(keys[j])
		if aErr != nil || bErr != nil {
			return keys[i] < keys[j]
		}
		return a < b
	})

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, obj[k])
	}
	*f = out
	return nil
}

// Provider loads the calendar once at startup and swaps it atomically on
// explicit reload. Readers always see a complete calendar.
type Provider struct {
	cfg  config.HolidayConfig
	logg *logger.Logger
	http *http.Client

	mu  sync.RWMutex
	cal Calendar
}

// NewProvider fetches the initial calendar from the configured source.
func NewProvider(ctx context.Context, cfg config.HolidayConfig, logg *logger.Logger) (*Provider, error) {
	p := &Provider{
		cfg:  cfg,
		logg: logg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
	if err := p.Reload(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// Calendar returns the current calendar value.
func (p *Provider) Calendar() Calendar {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cal
}

// ShippingBlocked delegates to the current calendar so consumers pick
// up reloads without rebuilding.
func (p *Provider) ShippingBlocked(day time.Time) bool {
	return p.Calendar().ShippingBlocked(day)
}

// DeliveryBlocked delegates to the current calendar.
func (p *Provider) DeliveryBlocked(day time.Time) bool {
	return p.Calendar().DeliveryBlocked(day)
}

// Reload fetches the source document and replaces the calendar. On fetch
// or decode failure the previous calendar stays in place.
func (p *Provider) Reload(ctx context.Context) error {
	raw, err := p.fetch(ctx)
	if err != nil {
		return fmt.Errorf("loading holiday calendar: %w", err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decoding holiday calendar: %w", err)
	}

	cal := NewCalendar(doc.Shipping, doc.Delivery)

	p.mu.Lock()
	p.cal = cal
	p.mu.Unlock()

	if p.logg != nil {
		ctx = p.logg.WithFields(ctx, map[string]any{
			"shipping_dates": cal.ShippingCount(),
			"delivery_dates": cal.DeliveryCount(),
		})
		p.logg.Info(ctx, "holiday calendar loaded")
	}
	return nil
}

func (p *Provider) fetch(ctx context.Context) ([]byte, error) {
	source := strings.TrimSpace(p.cfg.Source)
	if source == "" {
		return nil, fmt.Errorf("holiday source is required")
	}

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, err
		}
		resp, err := p.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d from holiday source", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}

	return os.ReadFile(source)
}
