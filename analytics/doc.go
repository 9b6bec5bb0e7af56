// Package analytics holds the pure aggregation functions behind the
// dashboards: totals, category splits, day-of-week and hourly buckets,
// forecasts and alert ratios. Nothing here touches the database.
package analytics
