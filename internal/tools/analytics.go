package tools

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hailworks/jnmcp/internal/cache"
	"github.com/hailworks/jnmcp/internal/errors"
	"github.com/hailworks/jnmcp/internal/response"
)

// AnalyticsInput is the common shape of analytics tool inputs.
type AnalyticsInput struct {
	DateFrom  string `json:"date_from,omitempty"`
	DateTo    string `json:"date_to,omitempty"`
	Verbosity string `json:"verbosity,omitempty"`
	Fields    string `json:"fields,omitempty"`
}

func (in AnalyticsInput) keyParams() map[string]any {
	return map[string]any{
		"date_from": orNil(in.DateFrom),
		"date_to":   orNil(in.DateTo),
		"verbosity": orNil(in.Verbosity),
		"fields":    orNil(in.Fields),
	}
}

func (in AnalyticsInput) listFilter() ListInput {
	return ListInput{DateFrom: in.DateFrom, DateTo: in.DateTo}
}

// runAnalytics caches and wraps a computed aggregate.
func runAnalytics(ctx context.Context, d *Deps, tool string, in AnalyticsInput, compute func(ctx context.Context) (any, error)) (response.Envelope, error) {
	verbosity, err := d.verbosity(in.Verbosity)
	if err != nil {
		return response.Envelope{}, err
	}

	key := cache.Key("analytics", tool, d.Client.Instance(), in.keyParams())

	encoded, _, err := cache.WithCache(ctx, d.Store, key, d.analyticsTTL(), func(ctx context.Context) ([]byte, error) {
		result, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(result)
	})
	if err != nil {
		return response.Envelope{}, err
	}

	var result any
	if err := json.Unmarshal(encoded, &result); err != nil {
		return response.Envelope{}, errors.NewInternal(err)
	}

	env := d.Builder.Build(ctx, result, response.BuildOptions{
		Tool:      tool,
		Verbosity: verbosity,
		Fields:    in.Fields,
	})
	return env, nil
}

// AnalyticsRevenue sums invoice totals grouped by status over the
// requested date range.
func AnalyticsRevenue(ctx context.Context, d *Deps, in AnalyticsInput) (response.Envelope, error) {
	return runAnalytics(ctx, d, "analytics_revenue", in, func(ctx context.Context) (any, error) {
		invoices, err := d.Client.FetchAll(ctx, "invoices")
		if err != nil {
			return nil, err
		}
		invoices = filterRows(invoices, in.listFilter())

		byStatus := map[string]map[string]any{}
		var grandTotal float64
		for _, invoice := range invoices {
			status := stringField(invoice, "status_name", "status")
			if status == "" {
				status = "unknown"
			}
			total := floatField(invoice, "total")
			bucket, ok := byStatus[status]
			if !ok {
				bucket = map[string]any{"status": status, "count": float64(0), "total": float64(0)}
				byStatus[status] = bucket
			}
			bucket["count"] = bucket["count"].(float64) + 1
			bucket["total"] = bucket["total"].(float64) + total
			grandTotal += total
		}

		buckets := sortedBuckets(byStatus)
		summary := map[string]any{
			"invoice_count": len(invoices),
			"grand_total":   grandTotal,
			"by_status":     buckets,
		}
		if len(invoices) > 0 {
			summary["average_total"] = grandTotal / float64(len(invoices))
		}
		return summary, nil
	})
}

// AnalyticsPipeline joins job counts with estimate value per status
// bucket. Jobs and estimates fetch concurrently.
func AnalyticsPipeline(ctx context.Context, d *Deps, in AnalyticsInput) (response.Envelope, error) {
	return runAnalytics(ctx, d, "analytics_pipeline", in, func(ctx context.Context) (any, error) {
		var jobs, estimates []map[string]any

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			fetched, err := d.Client.FetchAll(gctx, "jobs")
			if err != nil {
				return err
			}
			jobs = filterRows(fetched, in.listFilter())
			return nil
		})
		g.Go(func() error {
			fetched, err := d.Client.FetchAll(gctx, "estimates")
			if err != nil {
				return err
			}
			estimates = filterRows(fetched, in.listFilter())
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		byStatus := map[string]map[string]any{}
		for _, job := range jobs {
			status := stringField(job, "status_name", "status")
			if status == "" {
				status = "unknown"
			}
			bucket, ok := byStatus[status]
			if !ok {
				bucket = map[string]any{"status": status, "job_count": float64(0), "estimate_value": float64(0)}
				byStatus[status] = bucket
			}
			bucket["job_count"] = bucket["job_count"].(float64) + 1
		}

		// Estimate value folds into the owning job's status bucket when
		// the relation resolves, else into the estimate's own status.
		jobStatus := map[string]string{}
		for _, job := range jobs {
			if jnid := stringField(job, "jnid"); jnid != "" {
				jobStatus[jnid] = stringField(job, "status_name", "status")
			}
		}
		for _, estimate := range estimates {
			status := jobStatus[relatedJNID(estimate)]
			if status == "" {
				status = stringField(estimate, "status_name", "status")
			}
			if status == "" {
				status = "unknown"
			}
			bucket, ok := byStatus[status]
			if !ok {
				bucket = map[string]any{"status": status, "job_count": float64(0), "estimate_value": float64(0)}
				byStatus[status] = bucket
			}
			bucket["estimate_value"] = bucket["estimate_value"].(float64) + floatField(estimate, "total")
		}

		return map[string]any{
			"job_count":      len(jobs),
			"estimate_count": len(estimates),
			"by_status":      sortedBuckets(byStatus),
		}, nil
	})
}

// AnalyticsConversion reports the estimate-to-invoice conversion ratio and
// approved-estimate total percentiles.
func AnalyticsConversion(ctx context.Context, d *Deps, in AnalyticsInput) (response.Envelope, error) {
	return runAnalytics(ctx, d, "analytics_conversion", in, func(ctx context.Context) (any, error) {
		var estimates, invoices []map[string]any

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			fetched, err := d.Client.FetchAll(gctx, "estimates")
			if err != nil {
				return err
			}
			estimates = filterRows(fetched, in.listFilter())
			return nil
		})
		g.Go(func() error {
			fetched, err := d.Client.FetchAll(gctx, "invoices")
			if err != nil {
				return err
			}
			invoices = filterRows(fetched, in.listFilter())
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		var approvedTotals []float64
		for _, estimate := range estimates {
			status := strings.ToLower(stringField(estimate, "status_name", "status"))
			if status == "approved" || status == "signed" {
				approvedTotals = append(approvedTotals, floatField(estimate, "total"))
			}
		}

		result := map[string]any{
			"estimate_count": len(estimates),
			"invoice_count":  len(invoices),
			"approved_count": len(approvedTotals),
		}
		if len(estimates) > 0 {
			result["conversion_ratio"] = float64(len(invoices)) / float64(len(estimates))
		}
		if len(approvedTotals) > 0 {
			result["approved_total_p50"] = percentile(approvedTotals, 50)
			result["approved_total_p90"] = percentile(approvedTotals, 90)
		}
		return result, nil
	})
}

// percentile computes the nearest-rank percentile of values.
func percentile(values []float64, p int) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := (p*len(sorted) + 99) / 100 // ceil(p/100 * n)
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

// sortedBuckets flattens a status-keyed map into a deterministic slice.
func sortedBuckets(byStatus map[string]map[string]any) []map[string]any {
	statuses := make([]string, 0, len(byStatus))
	for status := range byStatus {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)

	buckets := make([]map[string]any, 0, len(statuses))
	for _, status := range statuses {
		buckets = append(buckets, byStatus[status])
	}
	return buckets
}

func stringField(row map[string]any, fields ...string) string {
	for _, field := range fields {
		if v, ok := row[field].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func floatField(row map[string]any, field string) float64 {
	if v, ok := row[field].(float64); ok {
		return v
	}
	return 0
}

// relatedJNID resolves the first related-record reference on a record.
func relatedJNID(row map[string]any) string {
	related, ok := row["related"].([]any)
	if !ok || len(related) == 0 {
		return ""
	}
	if ref, ok := related[0].(map[string]any); ok {
		return stringField(ref, "id", "jnid")
	}
	return ""
}
