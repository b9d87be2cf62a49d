package stylesearch

import (
	"context"
	"fmt"
	"time"
)

// ImportProducts inserts products into the catalog and indexes their
// embeddings. Invalid products are skipped and counted in the report.
func (c *Client) ImportProducts(ctx context.Context, products []Product) (_ ImportReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe("import", start, err) }()

	report, err := c.ingestSvc.Import(ctx, toInternalProducts(products))
	if err != nil {
		return ImportReport{}, fmt.Errorf("import: %w", err)
	}
	return ImportReport{
		Total:    report.Total,
		Inserted: report.Inserted,
		Indexed:  report.Indexed,
		Invalid:  report.Invalid,
		Failed:   report.Failed,
	}, nil
}
