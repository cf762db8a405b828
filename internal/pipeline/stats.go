package pipeline

import "unicode/utf8"

// Stats summarizes an article run. Lengths are averaged over successful
// records only; rates and ratios are percentages.
type Stats struct {
	TotalURLs            int     `json:"total_urls"`
	Successful           int     `json:"successful"`
	Failed               int     `json:"failed"`
	SuccessRate          float64 `json:"success_rate"`
	AverageContentLength float64 `json:"average_content_length"`
	AverageSummaryLength float64 `json:"average_summary_length"`
	CompressionRatio     float64 `json:"compression_ratio"`
}

// ComputeStats counts successful and failed records and derives the averages.
func ComputeStats(results []ArticleResult) Stats {
	st := Stats{TotalURLs: len(results)}
	var content, summary int
	for _, r := range results {
		if r.Failed() {
			st.Failed++
			continue
		}
		st.Successful++
		content += utf8.RuneCountInString(r.Content)
		summary += utf8.RuneCountInString(r.Summary)
	}
	if st.TotalURLs > 0 {
		st.SuccessRate = float64(st.Successful) / float64(st.TotalURLs) * 100
	}
	if st.Successful > 0 {
		st.AverageContentLength = float64(content) / float64(st.Successful)
		st.AverageSummaryLength = float64(summary) / float64(st.Successful)
	}
	if st.AverageContentLength > 0 {
		st.CompressionRatio = st.AverageSummaryLength / st.AverageContentLength * 100
	}
	return st
}
