package registry

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(filepath.Join(t.TempDir(), "clientes_config.json"), log)
}

func TestLoadMissingFile(t *testing.T) {
	r := newTestRegistry(t)
	cfg := r.Load()
	require.NotNil(t, cfg)
	assert.Empty(t, cfg)
}

func TestLoadCorruptFile(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, os.WriteFile(r.path, []byte("{not json"), 0o644))

	cfg := r.Load()
	require.NotNil(t, cfg)
	assert.Empty(t, cfg)
}

func TestSaveLoadRoundtrip(t *testing.T) {
	r := newTestRegistry(t)
	in := map[string]ClientConfig{
		"cliente1": {RealName: "GlobalMedia", Versions: 2, Expiration: "2026-12-31", Contact: "ana@globalmedia.mx", Active: true},
		"cliente2": {RealName: "Farmacia Luz", Versions: 1, Expiration: "2026-01-15", Active: false},
	}
	require.NoError(t, r.Save(in))

	out := r.Load()
	assert.Equal(t, in, out)
}

func TestSaveDocumentShape(t *testing.T) {
	// The document is an external interface: top-level client ids mapping
	// to objects with the Spanish field names.
	r := newTestRegistry(t)
	require.NoError(t, r.Save(map[string]ClientConfig{
		"cliente1": {RealName: "GlobalMedia", Versions: 2, Expiration: "2026-12-31", Contact: "ana@x.mx", Active: true},
	}))

	raw, err := os.ReadFile(r.path)
	require.NoError(t, err)

	var doc map[string]map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Contains(t, doc, "cliente1")
	rec := doc["cliente1"]
	assert.Equal(t, "GlobalMedia", rec["nombre_real"])
	assert.Equal(t, float64(2), rec["versiones"])
	assert.Equal(t, "2026-12-31", rec["expiracion"])
	assert.Equal(t, "ana@x.mx", rec["contacto"])
	assert.Equal(t, true, rec["activo"])
}

func TestLoadDefaultsOmittedActiveFlag(t *testing.T) {
	// Hand-edited documents often drop the activo key; such clients stay
	// billable. An explicit false survives the roundtrip.
	r := newTestRegistry(t)
	doc := `{
  "cliente1": {"nombre_real": "GlobalMedia", "versiones": 1, "expiracion": "2026-12-31", "contacto": ""},
  "cliente2": {"nombre_real": "Farmacia Luz", "versiones": 1, "expiracion": "2026-12-31", "contacto": "", "activo": false}
}`
	require.NoError(t, os.WriteFile(r.path, []byte(doc), 0o644))

	cfg := r.Load()
	require.Len(t, cfg, 2)
	assert.True(t, cfg["cliente1"].Active)
	assert.False(t, cfg["cliente2"].Active)
}

func TestUpsertRejectsInvalidID(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Save(map[string]ClientConfig{
		"cliente1": {RealName: "GlobalMedia", Versions: 1, Expiration: "2026-12-31", Active: true},
	}))

	for _, id := range []string{"acme", "cliente", "clienteX", "1cliente", "CLIENTE1", ""} {
		t.Run("id="+id, func(t *testing.T) {
			_, err := r.Upsert(id, Update{RealName: "Acme"})
			require.ErrorIs(t, err, ErrInvalidClientID)
		})
	}

	// Rejection must leave the document untouched.
	cfg := r.Load()
	require.Len(t, cfg, 1)
	assert.Equal(t, "GlobalMedia", cfg["cliente1"].RealName)
}

func TestUpsertCreatesWithDefaults(t *testing.T) {
	r := newTestRegistry(t)

	before := time.Now().AddDate(0, 0, 30).Format("2006-01-02")
	rec, err := r.Upsert("cliente3", Update{RealName: "Cafetería Sol"})
	require.NoError(t, err)
	after := time.Now().AddDate(0, 0, 30).Format("2006-01-02")

	assert.Equal(t, "Cafetería Sol", rec.RealName)
	assert.Equal(t, 1, rec.Versions)
	assert.True(t, rec.Active)
	assert.Empty(t, rec.Contact)
	assert.Contains(t, []string{before, after}, rec.Expiration)

	stored := r.Load()
	assert.Equal(t, rec, stored["cliente3"])
}

func TestUpsertMergesOverExisting(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Upsert("cliente1", Update{RealName: "GlobalMedia", Versions: 2, Expiration: "2026-06-30", Contact: "ana@x.mx"})
	require.NoError(t, err)

	inactive := false
	rec, err := r.Upsert("cliente1", Update{Expiration: "2027-01-31", Active: &inactive})
	require.NoError(t, err)

	assert.Equal(t, "GlobalMedia", rec.RealName, "unset fields keep prior values")
	assert.Equal(t, 2, rec.Versions)
	assert.Equal(t, "2027-01-31", rec.Expiration)
	assert.Equal(t, "ana@x.mx", rec.Contact)
	assert.False(t, rec.Active)
}

func TestGetUnconfiguredReturnsDefault(t *testing.T) {
	r := newTestRegistry(t)

	rec, configured := r.Get("cliente9")
	assert.False(t, configured)
	assert.Equal(t, "cliente9", rec.RealName)
	assert.Equal(t, 1, rec.Versions)
	assert.True(t, rec.Active)
	assert.NotEmpty(t, rec.Expiration)
}

func TestResolveDisplayNames(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Save(map[string]ClientConfig{
		"cliente1": {RealName: "GlobalMedia", Active: true},
		"cliente2": {Active: true},
	}))

	names := r.ResolveDisplayNames()
	assert.Equal(t, map[string]string{"cliente1": "GlobalMedia"}, names)
}

func TestListNumericOrder(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Save(map[string]ClientConfig{
		"cliente10": {RealName: "J", Active: true},
		"cliente2":  {RealName: "B", Active: true},
		"cliente1":  {RealName: "A", Active: true},
	}))

	entries := r.List()
	require.Len(t, entries, 3)
	assert.Equal(t, "cliente1", entries[0].ID)
	assert.Equal(t, "cliente2", entries[1].ID)
	assert.Equal(t, "cliente10", entries[2].ID)
}

func TestSortClientIDs(t *testing.T) {
	ids := []string{"otro", "cliente12", "cliente3", "abc", "cliente1"}
	SortClientIDs(ids)
	assert.Equal(t, []string{"cliente1", "cliente3", "cliente12", "abc", "otro"}, ids)
}

func TestValidClientID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"cliente1", true},
		{"cliente42", true},
		{"cliente007", true},
		{"acme", false},
		{"cliente", false},
		{"cliente1x", false},
		{"xcliente1", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidClientID(tt.id))
		})
	}
}
