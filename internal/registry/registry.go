// Package registry is the durable store of per-client contract metadata,
// backed by a single human-editable JSON document. The document's top-level
// keys are client ids; values carry the contract fields. Reads tolerate a
// missing or corrupt document (treated as empty), writes are plain full-file
// rewrites with last-writer-wins semantics.
package registry

import (
	"errors"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

// ErrInvalidClientID is returned by Upsert for ids that do not match the
// canonical clienteN pattern. The message is user-facing.
var ErrInvalidClientID = errors.New("el ID debe tener la forma clienteN (ej: cliente1)")

var clientIDPattern = regexp.MustCompile(`^cliente\d+$`)

// ClientConfig is one client's contract record as stored in the document.
// JSON keys match the on-disk format, which operators edit by hand.
type ClientConfig struct {
	RealName   string `json:"nombre_real"`
	Versions   int    `json:"versiones"`
	Expiration string `json:"expiracion"`
	Contact    string `json:"contacto"`
	Active     bool   `json:"activo"`
}

// UnmarshalJSON defaults the active flag to true when a record omits it.
// Hand-edited documents frequently drop the key; an omitted flag means the
// client is still billable.
func (c *ClientConfig) UnmarshalJSON(data []byte) error {
	type plain ClientConfig
	rec := plain{Active: true}
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	*c = ClientConfig(rec)
	return nil
}

// Update carries the fields of an upsert. Zero-valued members keep the
// existing (or default) value; Active is a pointer so "not provided" and
// "set inactive" stay distinguishable.
type Update struct {
	RealName   string
	Versions   int
	Expiration string
	Contact    string
	Active     *bool
}

// Entry pairs a client id with its stored record, for sorted listings.
type Entry struct {
	ID     string       `json:"id"`
	Config ClientConfig `json:"config"`
}

// Registry reads and writes the client configuration document.
type Registry struct {
	path string
	log  *logrus.Logger
}

// New returns a registry over the document at path.
func New(path string, log *logrus.Logger) *Registry {
	return &Registry{path: path, log: log}
}

// ValidClientID reports whether id matches the canonical clienteN pattern.
func ValidClientID(id string) bool {
	return clientIDPattern.MatchString(id)
}

// DefaultConfig is the synthetic record used for clients that appear in the
// logs without a configured entry: 30-day expiration from now, active.
func DefaultConfig(id string, now time.Time) ClientConfig {
	return ClientConfig{
		RealName:   id,
		Versions:   1,
		Expiration: now.AddDate(0, 0, 30).Format("2006-01-02"),
		Active:     true,
	}
}

// Load reads the document. A missing or undecodable document yields an
// empty mapping; neither case is surfaced to the caller.
func (r *Registry) Load() map[string]ClientConfig {
	out := make(map[string]ClientConfig)

	raw, err := os.ReadFile(r.path)
	if err != nil {
		if !os.IsNotExist(err) && r.log != nil {
			r.log.WithError(err).Warnf("failed to read client config %s", r.path)
		}
		return out
	}

	if err := json.Unmarshal(raw, &out); err != nil {
		if r.log != nil {
			r.log.WithError(err).Warnf("failed to decode client config %s", r.path)
		}
		return make(map[string]ClientConfig)
	}
	return out
}

// Save overwrites the document with cfg. The write is a direct full-file
// rewrite: concurrent savers race and the last writer wins.
func (r *Registry) Save(cfg map[string]ClientConfig) error {
	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, raw, 0o644)
}

// Upsert validates id, merges upd over the existing or default record,
// persists the document and returns the stored record.
func (r *Registry) Upsert(id string, upd Update) (ClientConfig, error) {
	id = strings.TrimSpace(id)
	if !ValidClientID(id) {
		return ClientConfig{}, ErrInvalidClientID
	}

	cfg := r.Load()
	rec, ok := cfg[id]
	if !ok {
		rec = DefaultConfig(id, time.Now())
	}

	if upd.RealName != "" {
		rec.RealName = upd.RealName
	}
	if upd.Versions > 0 {
		rec.Versions = upd.Versions
	}
	if upd.Expiration != "" {
		rec.Expiration = upd.Expiration
	}
	if upd.Contact != "" {
		rec.Contact = upd.Contact
	}
	if upd.Active != nil {
		rec.Active = *upd.Active
	}

	cfg[id] = rec
	if err := r.Save(cfg); err != nil {
		return ClientConfig{}, err
	}
	return rec, nil
}

// Get returns the stored record for id, or the synthetic default when the
// client is not configured. The bool reports whether id was configured.
func (r *Registry) Get(id string) (ClientConfig, bool) {
	cfg := r.Load()
	if rec, ok := cfg[id]; ok {
		return rec, true
	}
	return DefaultConfig(id, time.Now()), false
}

// ResolveDisplayNames projects the configured real names by client id.
func (r *Registry) ResolveDisplayNames() map[string]string {
	names := make(map[string]string)
	for id, rec := range r.Load() {
		if rec.RealName != "" {
			names[id] = rec.RealName
		}
	}
	return names
}

// List returns all configured clients sorted in numeric id order.
func (r *Registry) List() []Entry {
	cfg := r.Load()
	ids := make([]string, 0, len(cfg))
	for id := range cfg {
		ids = append(ids, id)
	}
	SortClientIDs(ids)

	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, Entry{ID: id, Config: cfg[id]})
	}
	return entries
}

// SortClientIDs orders clienteN ids by their numeric suffix (cliente2
// before cliente10), falling back to lexicographic order for ids outside
// the pattern.
func SortClientIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		return ClientLess(ids[i], ids[j])
	})
}

// ClientLess is the ordering used by SortClientIDs, exposed for callers
// that sort composite rows keyed by client id.
func ClientLess(a, b string) bool {
	na, aok := clientNumber(a)
	nb, bok := clientNumber(b)
	if aok && bok && na != nb {
		return na < nb
	}
	if aok != bok {
		return aok
	}
	return a < b
}

func clientNumber(id string) (int, bool) {
	rest, ok := strings.CutPrefix(id, "cliente")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}
