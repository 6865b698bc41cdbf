package export

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riteshkumar/greengrid/internal/models"
)

func TestFileExporterWritesCertificateJSON(t *testing.T) {
	dir := t.TempDir()
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cert := models.Certificate{
		ID:                  "cert-123",
		Issuer:              "GreenGrid Renewable Registry",
		TotalCredits:        1.234567,
		TotalCarbonOffsetKg: 9.877,
		GeneratorAccountID:  "ann@greengrid.energy",
		IdentityHash:        "stub-31323334",
		TaxID:               "NA",
		Compliance:          models.Compliance{Flag: true, IssuedAt: issued},
	}

	path, err := NewFileExporter(filepath.Join(dir, "out")).Export(context.Background(), cert)
	require.NoError(t, err)
	assert.Equal(t, "cert-123.json", filepath.Base(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	for _, key := range []string{"certificateId", "issuer", "totalCredits", "totalCarbonOffsetKg", "generatorAccountId", "identityHash", "taxId", "compliance"} {
		assert.Contains(t, fields, key)
	}
	assert.Len(t, fields, 8)
	assert.Equal(t, true, fields["compliance"].(map[string]any)["flag"])

	entries, err := os.ReadDir(filepath.Join(dir, "out"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileNameStripsDirectories(t *testing.T) {
	assert.Equal(t, "evil.json", FileName(models.Certificate{ID: "../../evil"}))
}
