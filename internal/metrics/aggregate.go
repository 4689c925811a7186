package metrics

import (
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"adboard/internal/ingest"
	"adboard/internal/registry"
	"adboard/internal/telemetry"
)

// Client status tags. Expiring covers the last seven days of a contract.
const (
	StatusActive      = "Active"
	StatusExpiring    = "Expiring"
	StatusExpired     = "Expired"
	StatusInvalidDate = "InvalidDate"
)

// Options carries the aggregation inputs that do not come from the rows.
// Now defaults to the wall clock; tests inject a fixed instant.
type Options struct {
	PricePerClient float64
	Now            time.Time
}

// Summary is the headline card row of the dashboard.
type Summary struct {
	DistinctClients  int     `json:"distinct_clients"`
	TotalPlays       int     `json:"total_plays"`
	TotalSeconds     float64 `json:"total_seconds"`
	TotalHours       float64 `json:"total_hours"`
	EstimatedRevenue float64 `json:"estimated_revenue"`
}

// MonitorUsage is screen occupancy for one monitor.
type MonitorUsage struct {
	Monitor string  `json:"monitor"`
	Seconds float64 `json:"seconds"`
	Hours   float64 `json:"hours"`
}

// MonthlyClientCount counts distinct clients against a YYYY-MM bucket.
type MonthlyClientCount struct {
	Month   string `json:"month"`
	Clients int    `json:"clients"`
}

// MonthlyRevenue is the revenue attribution for one month: distinct active
// clients observed that month times the fixed per-client price.
type MonthlyRevenue struct {
	Month   string  `json:"month"`
	Clients int     `json:"clients"`
	Revenue float64 `json:"revenue"`
}

// RevenueEstimate is the billing estimate over the aggregated rows.
type RevenueEstimate struct {
	Total   float64          `json:"total"`
	Monthly []MonthlyRevenue `json:"monthly"`
}

// ClientPlays counts playbacks per client. DisplayName is the configured
// real name, falling back to the id, so charts can label bars directly.
type ClientPlays struct {
	Client      string `json:"client"`
	DisplayName string `json:"display_name"`
	Plays       int    `json:"plays"`
}

// ClientVersions counts distinct creative versions seen per client.
type ClientVersions struct {
	Client   string `json:"client"`
	Versions int    `json:"versions"`
}

// ClientDuration is the total screen time bought by one client.
type ClientDuration struct {
	Client      string  `json:"client"`
	DisplayName string  `json:"display_name"`
	Seconds     float64 `json:"seconds"`
	Minutes     float64 `json:"minutes"`
	Hours       float64 `json:"hours"`
}

// DailyPlays counts playbacks against a YYYY-MM-DD bucket.
type DailyPlays struct {
	Day   string `json:"day"`
	Plays int    `json:"plays"`
}

// ClientStatus is the contract standing of one observed client.
type ClientStatus struct {
	Client        string `json:"client"`
	DisplayName   string `json:"display_name"`
	Expiration    string `json:"expiration"`
	DaysRemaining int    `json:"days_remaining"`
	Status        string `json:"status"`
	Contact       string `json:"contact"`
	Versions      int    `json:"versions"`
	Active        bool   `json:"active"`
}

// MetricsBundle is everything the dashboard renders, computed in one pass.
// Every slice is deterministically ordered so identical inputs produce
// identical bundles.
type MetricsBundle struct {
	Summary           Summary              `json:"summary"`
	MonitorOccupancy  []MonitorUsage       `json:"monitor_occupancy"`
	MonthlyClients    []MonthlyClientCount `json:"monthly_clients"`
	MonthlyNewClients []MonthlyClientCount `json:"monthly_new_clients"`
	Revenue           RevenueEstimate      `json:"revenue"`
	ClientPlays       []ClientPlays        `json:"client_plays"`
	ClientVersions    []ClientVersions     `json:"client_versions"`
	ClientDurations   []ClientDuration     `json:"client_durations"`
	DailyPlays        []DailyPlays         `json:"daily_plays"`
	ClientStatuses    []ClientStatus       `json:"client_statuses"`
}

// Aggregate computes the full bundle from derived rows and the client
// configuration map. Rows without a client id contribute to the summary
// totals and the monitor/day groupings but to none of the per-client views.
func Aggregate(rows []DerivedRecord, clients map[string]registry.ClientConfig, opts Options) MetricsBundle {
	start := time.Now()
	defer func() {
		telemetry.AggregationDuration.Observe(time.Since(start).Seconds())
	}()

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	b := MetricsBundle{
		MonitorOccupancy:  []MonitorUsage{},
		MonthlyClients:    []MonthlyClientCount{},
		MonthlyNewClients: []MonthlyClientCount{},
		Revenue:           RevenueEstimate{Monthly: []MonthlyRevenue{}},
		ClientPlays:       []ClientPlays{},
		ClientVersions:    []ClientVersions{},
		ClientDurations:   []ClientDuration{},
		DailyPlays:        []DailyPlays{},
		ClientStatuses:    []ClientStatus{},
	}

	var (
		totalSeconds   float64
		seen           = map[string]struct{}{}
		monitorSeconds = map[string]float64{}
		dayPlays       = map[string]int{}
		monthClients   = map[string]map[string]struct{}{}
		firstMonth     = map[string]string{}
		clientPlays    = map[string]int{}
		clientVersions = map[string]map[string]struct{}{}
		clientSeconds  = map[string]float64{}
		activeMonths   = map[string]map[string]struct{}{}
	)

	for _, r := range rows {
		totalSeconds += r.Seconds
		monitorSeconds[r.MonitorName] += r.Seconds
		dayPlays[r.Day]++

		if r.Client == nil {
			continue
		}
		id := *r.Client
		seen[id] = struct{}{}
		clientPlays[id]++
		clientSeconds[id] += r.Seconds

		if set, ok := clientVersions[id]; ok {
			set[r.Version] = struct{}{}
		} else {
			clientVersions[id] = map[string]struct{}{r.Version: {}}
		}
		if set, ok := monthClients[r.Month]; ok {
			set[id] = struct{}{}
		} else {
			monthClients[r.Month] = map[string]struct{}{id: {}}
		}
		if cur, ok := firstMonth[id]; !ok || r.Month < cur {
			firstMonth[id] = r.Month
		}
		if isActive(clients, id) {
			if set, ok := activeMonths[r.Month]; ok {
				set[id] = struct{}{}
			} else {
				activeMonths[r.Month] = map[string]struct{}{id: {}}
			}
		}
	}

	b.Summary.TotalPlays = len(rows)
	b.Summary.TotalSeconds = totalSeconds
	b.Summary.TotalHours = totalSeconds / 3600
	b.Summary.DistinctClients = len(seen)

	for _, monitor := range sortedKeys(monitorSeconds) {
		s := monitorSeconds[monitor]
		b.MonitorOccupancy = append(b.MonitorOccupancy, MonitorUsage{
			Monitor: monitor,
			Seconds: s,
			Hours:   s / 3600,
		})
	}

	for _, month := range sortedKeys(monthClients) {
		b.MonthlyClients = append(b.MonthlyClients, MonthlyClientCount{
			Month:   month,
			Clients: len(monthClients[month]),
		})
	}

	newByMonth := map[string]int{}
	for _, month := range firstMonth {
		newByMonth[month]++
	}
	for _, month := range sortedKeys(newByMonth) {
		b.MonthlyNewClients = append(b.MonthlyNewClients, MonthlyClientCount{
			Month:   month,
			Clients: newByMonth[month],
		})
	}

	b.Revenue = estimateRevenue(activeMonths, opts.PricePerClient)
	b.Summary.EstimatedRevenue = b.Revenue.Total

	for _, day := range sortedKeys(dayPlays) {
		b.DailyPlays = append(b.DailyPlays, DailyPlays{Day: day, Plays: dayPlays[day]})
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	registry.SortClientIDs(ids)

	for _, id := range ids {
		b.ClientVersions = append(b.ClientVersions, ClientVersions{
			Client:   id,
			Versions: len(clientVersions[id]),
		})
		s := clientSeconds[id]
		b.ClientDurations = append(b.ClientDurations, ClientDuration{
			Client:      id,
			DisplayName: displayNameFor(id, clients),
			Seconds:     s,
			Minutes:     s / 60,
			Hours:       s / 3600,
		})
		b.ClientStatuses = append(b.ClientStatuses, statusFor(id, clients, now))
	}

	for _, id := range ids {
		b.ClientPlays = append(b.ClientPlays, ClientPlays{
			Client:      id,
			DisplayName: displayNameFor(id, clients),
			Plays:       clientPlays[id],
		})
	}
	sort.SliceStable(b.ClientPlays, func(i, j int) bool {
		return b.ClientPlays[i].Plays > b.ClientPlays[j].Plays
	})

	return b
}

// estimateRevenue keeps the historical formula: mean distinct active clients
// per month times the fixed price times the number of months observed. The
// month universe is the months in which active clients were observed.
func estimateRevenue(activeMonths map[string]map[string]struct{}, price float64) RevenueEstimate {
	est := RevenueEstimate{Monthly: []MonthlyRevenue{}}
	if len(activeMonths) == 0 {
		return est
	}

	var sum int
	for _, month := range sortedKeys(activeMonths) {
		n := len(activeMonths[month])
		sum += n
		est.Monthly = append(est.Monthly, MonthlyRevenue{
			Month:   month,
			Clients: n,
			Revenue: float64(n) * price,
		})
	}
	mean := float64(sum) / float64(len(activeMonths))
	est.Total = mean * price * float64(len(activeMonths))
	return est
}

// statusFor evaluates one client's contract standing against now. An
// unparsable expiration yields InvalidDate rather than an error.
func statusFor(id string, clients map[string]registry.ClientConfig, now time.Time) ClientStatus {
	cfg, ok := clients[id]
	if !ok {
		cfg = registry.DefaultConfig(id, now)
	}

	st := ClientStatus{
		Client:      id,
		DisplayName: cfg.RealName,
		Expiration:  cfg.Expiration,
		Contact:     cfg.Contact,
		Versions:    cfg.Versions,
		Active:      cfg.Active,
	}
	if st.DisplayName == "" {
		st.DisplayName = id
	}

	exp, err := time.Parse("2006-01-02", cfg.Expiration)
	if err != nil {
		st.Status = StatusInvalidDate
		return st
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	days := int(exp.Sub(today) / (24 * time.Hour))
	st.DaysRemaining = days
	switch {
	case days > 7:
		st.Status = StatusActive
	case days >= 1:
		st.Status = StatusExpiring
	default:
		st.Status = StatusExpired
	}
	return st
}

// isActive reports whether id is billable: configured in the registry with
// the active flag set. Clients observed in the logs but never configured do
// not count toward revenue, even though their status rows default to active.
func isActive(clients map[string]registry.ClientConfig, id string) bool {
	cfg, ok := clients[id]
	return ok && cfg.Active
}

func displayNameFor(id string, clients map[string]registry.ClientConfig) string {
	if cfg, ok := clients[id]; ok && cfg.RealName != "" {
		return cfg.RealName
	}
	return id
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Pipeline bundles the derive, filter, and aggregate steps behind the
// registry and pricing configuration the handlers hold.
type Pipeline struct {
	registry *registry.Registry
	price    float64
	log      *logrus.Logger
}

// NewPipeline returns a pipeline over the given registry and price.
func NewPipeline(reg *registry.Registry, price float64, log *logrus.Logger) *Pipeline {
	return &Pipeline{registry: reg, price: price, log: log}
}

// Bundle runs the full pass for one request: derive, filter, aggregate.
func (p *Pipeline) Bundle(rows []ingest.PlaybackRecord, rng *ingest.DateRange) MetricsBundle {
	derived := FilterByDateRange(DeriveFields(rows), rng)
	return Aggregate(derived, p.registry.Load(), Options{
		PricePerClient: p.price,
		Now:            time.Now(),
	})
}

// Records returns the filtered derived-record table, the row-oriented
// hand-off consumed by external tooling.
func (p *Pipeline) Records(rows []ingest.PlaybackRecord, rng *ingest.DateRange) []DerivedRecord {
	derived := FilterByDateRange(DeriveFields(rows), rng)
	if derived == nil {
		derived = []DerivedRecord{}
	}
	return derived
}
