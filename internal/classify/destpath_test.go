package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildDestPath(t *testing.T) {
	tests := []struct {
		name string
		in   Result
		want string
	}{
		{
			"full record with portico",
			Result{Discipline: "ESTRUTURAS", Portico: "PORTICO_12", Date: "24/11/2025"},
			"ESTRUTURAS/PORTICO_12/24-11-2025",
		},
		{
			"portico wins over highway",
			Result{Discipline: "ESTRUTURAS", Portico: "PORTICO_12", Highway: "BR-101", KMStart: "94"},
			"ESTRUTURAS/PORTICO_12",
		},
		{
			"highway with km range",
			Result{Discipline: "PAVIMENTACAO", Highway: "BR-101", KMStart: "94+050", KMEnd: "101"},
			"PAVIMENTACAO/BR-101_KM_94_050-101",
		},
		{
			"highway single km",
			Result{Highway: "SP-280", KMStart: "57", KMEnd: "57"},
			"SP-280_KM_57",
		},
		{
			"highway without km",
			Result{Highway: "MG-040"},
			"MG-040",
		},
		{
			"date only",
			Result{Date: "01/02/2025"},
			"01-02-2025",
		},
		{
			"nothing usable",
			Result{Filename: "foto.jpg", Status: StatusSuccess},
			"NAO_CLASSIFICADAS",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildDestPath(tt.in))
		})
	}
}
