package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Dan9191/float-report/internal/models"
	"github.com/stretchr/testify/assert"
)

var ict = time.FixedZone("ICT", 7*60*60)

func TestRenderReport_Surplus(t *testing.T) {
	generated := time.Date(2025, 6, 5, 19, 30, 0, 0, time.UTC) // 02:30 next day in ICT
	result := Reconcile(bal("1000"), bal("500"), bal("2000"), generated)

	r := RenderReport(result, ict)

	assert.Equal(t, "Daily Float Reconciliation Report for 2025-06-05", r.Subject)
	assert.Contains(t, r.Text, "Report generated at: 2025-06-06 02:30:00 ICT")
	assert.Contains(t, r.Text, "CIMB Balance: 2,000.00 THB\nV2 Balance: 1,000.00 THB\nVAS Balance: 500.00 THB\n")
	assert.Contains(t, r.Text, "CIMB - (V2 + VAS) = 500.00 THB")
	assert.Contains(t, r.Text, "CIMB balance is sufficient. Surplus: 500.00 THB.")
	assert.NotContains(t, r.Text, errorMarker)

	assert.Contains(t, r.HTML, "<h2>Daily Float Reconciliation Report for 2025-06-05</h2>")
	assert.Contains(t, r.HTML, "<tr><td>CIMB</td><td>2,000.00</td></tr>")
	assert.Contains(t, r.HTML, `<p class="ok">CIMB balance is sufficient. Surplus: 500.00 THB.</p>`)
	assert.NotContains(t, r.HTML, `class="error">ERROR`)
}

func TestRenderReport_Shortfall(t *testing.T) {
	result := Reconcile(bal("100"), bal("50"), bal("100"), time.Date(2025, 6, 6, 2, 1, 0, 0, ict))

	r := RenderReport(result, ict)

	assert.Contains(t, r.Text, "CIMB - (V2 + VAS) = -50.00 THB")
	assert.Contains(t, r.Text, "Warning: Combined V2 and VAS float exceeds CIMB account by 50.00 THB!")
	assert.Contains(t, r.HTML, `<p class="warn">Warning: Combined V2 and VAS float exceeds CIMB account by 50.00 THB!</p>`)
	assert.NotContains(t, r.Text, "Surplus")
}

func TestRenderReport_AllCombinations(t *testing.T) {
	amounts := []models.Balance{bal("1234.5"), bal("2345.6"), bal("3456.7")}
	generated := time.Date(2025, 6, 6, 2, 1, 0, 0, ict)

	for mask := 0; mask < 8; mask++ {
		t.Run(fmt.Sprintf("mask_%03b", mask), func(t *testing.T) {
			in := make([]models.Balance, 3)
			for i := range in {
				if mask&(1<<i) != 0 {
					in[i] = amounts[i]
				}
			}
			result := Reconcile(in[0], in[1], in[2], generated)

			var r models.Report
			assert.NotPanics(t, func() { r = RenderReport(result, ict) })

			lines := map[string]models.Balance{"V2": in[0], "VAS": in[1], "CIMB": in[2]}
			for name, b := range lines {
				if b.Valid {
					assert.NotContains(t, r.Text, name+" Balance: ERROR")
				} else {
					assert.Contains(t, r.Text, name+" Balance: ERROR\n")
				}
			}
			if mask == 7 {
				assert.NotContains(t, r.Text, incompleteNotice)
			} else {
				assert.Contains(t, r.Text, incompleteNotice)
				assert.Contains(t, r.HTML, `<p class="error">`+incompleteNotice+`</p>`)
				assert.NotContains(t, r.Text, "CIMB - (V2 + VAS)")
				assert.Equal(t, 3-strings.Count(fmt.Sprintf("%03b", mask), "1"), strings.Count(r.HTML, `<span class="error">ERROR</span>`))
			}
		})
	}
}

func TestRenderReport_NilLocation(t *testing.T) {
	result := Reconcile(models.NoBalance, models.NoBalance, models.NoBalance, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	r := RenderReport(result, nil)

	assert.Equal(t, "Daily Float Reconciliation Report for 2024-12-31", r.Subject)
}
