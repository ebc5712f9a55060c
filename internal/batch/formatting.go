package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/viafoto/viafoto/internal/classify"
)

func formatResults(results []classify.Result, format string) (string, error) {
	switch strings.ToLower(format) {
	case "json":
		return formatJSON(results)
	case "csv":
		return formatCSV(results)
	case "text", "":
		return formatText(results), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

func formatJSON(results []classify.Result) (string, error) {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal results: %w", err)
	}
	return string(data) + "\n", nil
}

func formatCSV(results []classify.Result) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	header := []string{
		"arquivo", "status", "portico", "disciplina", "servico",
		"confianca", "data", "rodovia", "km_inicio", "km_fim",
		"sentido", "metodo", "destino",
	}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, r := range results {
		record := []string{
			r.Filename,
			r.Status,
			r.Portico,
			r.Discipline,
			r.Service,
			fmt.Sprintf("%.2f", r.Confidence),
			r.Date,
			r.Highway,
			r.KMStart,
			r.KMEnd,
			r.Heading,
			r.Method,
			r.DestPath,
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush CSV: %w", err)
	}
	return sb.String(), nil
}

func formatText(results []classify.Result) string {
	var sb strings.Builder

	for _, r := range results {
		sb.WriteString(fmt.Sprintf("=== %s ===\n", r.Filename))
		sb.WriteString(fmt.Sprintf("Status: %s\n", r.Status))

		if r.IsSuccess() {
			if r.Portico != "" {
				sb.WriteString(fmt.Sprintf("Portico: %s\n", r.Portico))
			}
			if r.Discipline != "" {
				sb.WriteString(fmt.Sprintf("Disciplina: %s\n", r.Discipline))
			}
			if r.Service != "" {
				sb.WriteString(fmt.Sprintf("Servico: %s\n", r.Service))
			}
			sb.WriteString(fmt.Sprintf("Confianca: %.2f\n", r.Confidence))
			if r.Date != "" {
				sb.WriteString(fmt.Sprintf("Data: %s\n", r.Date))
			}
			if r.Highway != "" {
				km := r.KMStart
				if r.KMEnd != "" && r.KMEnd != r.KMStart {
					km = km + " - " + r.KMEnd
				}
				if km != "" {
					sb.WriteString(fmt.Sprintf("Rodovia: %s km %s\n", r.Highway, km))
				} else {
					sb.WriteString(fmt.Sprintf("Rodovia: %s\n", r.Highway))
				}
			}
			if r.Method != "" {
				sb.WriteString(fmt.Sprintf("Metodo: %s\n", r.Method))
			}
			if r.DestPath != "" {
				sb.WriteString(fmt.Sprintf("Destino: %s\n", r.DestPath))
			}
			if r.TechnicalNote != "" {
				sb.WriteString(fmt.Sprintf("Observacao: %s\n", r.TechnicalNote))
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
