package batch

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viafoto/viafoto/internal/classify"
)

func sampleResults() []classify.Result {
	return []classify.Result{
		{
			Filename:   "foto-001.jpg",
			Hash:       "hash-1",
			Status:     classify.StatusSuccess,
			Portico:    "PORTICO_12",
			Discipline: "ESTRUTURAS",
			Confidence: 0.92,
			Date:       "24/11/2025",
			Highway:    "BR-101",
			KMStart:    "94+050",
			KMEnd:      "101",
			Method:     classify.MethodOCRAssistedAI,
			DestPath:   "ESTRUTURAS/PORTICO_12/24-11-2025",
		},
		{
			Filename: "foto-002.jpg",
			Hash:     "hash-2",
			Status:   "Erro: imagem corrompida",
		},
	}
}

func TestFormatResults_Text(t *testing.T) {
	out, err := formatResults(sampleResults(), "text")
	require.NoError(t, err)

	assert.Contains(t, out, "=== foto-001.jpg ===")
	assert.Contains(t, out, "Status: Sucesso")
	assert.Contains(t, out, "Portico: PORTICO_12")
	assert.Contains(t, out, "Rodovia: BR-101 km 94+050 - 101")
	assert.Contains(t, out, "Destino: ESTRUTURAS/PORTICO_12/24-11-2025")
	assert.Contains(t, out, "=== foto-002.jpg ===")
	assert.Contains(t, out, "Status: Erro: imagem corrompida")
	// Failed photos carry no classification block.
	assert.NotContains(t, strings.Split(out, "=== foto-002.jpg ===")[1], "Confianca")
}

func TestFormatResults_JSON(t *testing.T) {
	out, err := formatResults(sampleResults(), "json")
	require.NoError(t, err)

	var decoded []classify.Result
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "foto-001.jpg", decoded[0].Filename)
	assert.InDelta(t, 0.92, decoded[0].Confidence, 1e-9)
}

func TestFormatResults_CSV(t *testing.T) {
	out, err := formatResults(sampleResults(), "csv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3) // header + 2 rows
	assert.Contains(t, lines[0], "arquivo")
	assert.Contains(t, lines[0], "disciplina")
	assert.Contains(t, lines[1], "foto-001.jpg")
	assert.Contains(t, lines[1], "0.92")
	assert.Contains(t, lines[2], "Erro: imagem corrompida")
}

func TestFormatResults_DefaultIsText(t *testing.T) {
	out, err := formatResults(sampleResults(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "=== foto-001.jpg ===")
}

func TestFormatResults_Unsupported(t *testing.T) {
	_, err := formatResults(sampleResults(), "xml")
	assert.ErrorContains(t, err, "unsupported output format")
}

func TestResult_SaveResultsToFile(t *testing.T) {
	r := &Result{Results: sampleResults()}
	path := filepath.Join(t.TempDir(), "resultado.json")

	require.NoError(t, r.SaveResults("json", path, true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded []classify.Result
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 2)
}
