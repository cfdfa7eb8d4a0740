package analysis

// NameValue is the record shape bar and pie charts consume.
type NameValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// StackedRow is one bar of a stacked chart: a row of a cross-tab with one
// segment per column value.
type StackedRow struct {
	Name     string      `json:"name"`
	Total    int         `json:"total"`
	Segments []NameValue `json:"segments"`
}

// BucketChart converts buckets into chart records, keeping their order.
func BucketChart(buckets []Bucket) []NameValue {
	out := make([]NameValue, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, NameValue{Name: b.Value, Value: float64(b.Count)})
	}
	return out
}

// FrequencyChart returns the bar/pie records for a frequency result.
// Free-text questions have no chart.
func FrequencyChart(f FrequencyResult) []NameValue {
	return BucketChart(f.Buckets)
}

// CrossTabChart returns one stacked row per row value, segments in column order.
func CrossTabChart(c CrossTabResult) []StackedRow {
	out := make([]StackedRow, 0, len(c.Rows))
	for _, row := range c.Rows {
		sr := StackedRow{Name: row, Segments: make([]NameValue, 0, len(c.Columns))}
		for _, col := range c.Columns {
			n := c.Cell(row, col)
			sr.Total += n
			sr.Segments = append(sr.Segments, NameValue{Name: col, Value: float64(n)})
		}
		out = append(out, sr)
	}
	return out
}

// CategoryChart returns the average per category.
func CategoryChart(results []CategoryResult) []NameValue {
	out := make([]NameValue, 0, len(results))
	for _, r := range results {
		out = append(out, NameValue{Name: r.Category, Value: r.Average})
	}
	return out
}

// DemographicChart returns the respondent count per demographic option.
func DemographicChart(d DemographicResult) []NameValue {
	out := make([]NameValue, 0, len(d.Options))
	for _, o := range d.Options {
		out = append(out, NameValue{Name: o.Option, Value: float64(o.RespondentCount)})
	}
	return out
}

// ScatterChart returns the {x, y, count} records for a correlation.
func ScatterChart(c QuestionCorrelation) []ScatterPoint {
	out := make([]ScatterPoint, len(c.Points))
	copy(out, c.Points)
	return out
}
