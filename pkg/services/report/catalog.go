package report

import (
	"fmt"

	"github.com/de-tools/airregi-sync/pkg/models/domain"
)

const (
	ProductSales = "product-sales"
	DailySales   = "daily-sales"
)

// DefaultCatalog returns the reports fetched every day, in fetch order.
// daily-sales is reached through the side navigation of the product sales
// view, so it has to follow product-sales.
func DefaultCatalog(ep domain.Endpoints) []domain.ReportSpec {
	return []domain.ReportSpec{
		{
			ID:   ProductSales,
			Name: "商品別売上",
			Steps: []domain.Step{
				{Kind: domain.StepNavigate, Stage: "open", URL: ep.ProductSalesURL},
				{Kind: domain.StepCalendar, Stage: "date-range", SkipWhenToday: true},
				{Kind: domain.StepClick, Stage: "search", Selector: "#btnSearch"},
				// the first click on an export control prepares the file, the second downloads it
				{Kind: domain.StepClick, Stage: "ready", Selector: ".btn-CSV-DL"},
				{Kind: domain.StepDownload, Stage: "download", Selector: ".btn-CSV-DL", Output: "商品別売上_{{.Start}}-{{.End}}.csv"},
			},
		},
		{
			ID:   DailySales,
			Name: "日別売上",
			Steps: []domain.Step{
				{Kind: domain.StepClick, Stage: "open", Selector: `a[data-sc="LinkSalesList"]`},
				{Kind: domain.StepWaitURL, Stage: "open", Pattern: `/view/salesList`},
				{Kind: domain.StepCalendar, Stage: "date-range", SkipWhenToday: true},
				{Kind: domain.StepClick, Stage: "export-menu", Selector: "button.pull-right.csv-download-button"},
				{Kind: domain.StepClick, Stage: "ready", Selector: "button.salse-csv-dl"},
				{Kind: domain.StepDownload, Stage: "download", Selector: "button.salse-csv-dl", Output: "売上集計_{{.Date}}.csv"},
			},
		},
	}
}

// ValidateCatalog checks every spec and that report ids are unique.
func ValidateCatalog(specs []domain.ReportSpec) error {
	if len(specs) == 0 {
		return fmt.Errorf("report catalog is empty")
	}
	seen := make(map[string]struct{}, len(specs))
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			return err
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("report %s is listed twice", s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}
