package pipeline

import (
	"path/filepath"
	"strings"
)

// Output file name suffixes.
const (
	RevisedSuffix          = "_revised.docx"
	ComparisonSuffix       = "_comparison.docx"
	ReportSuffix           = "_corrections_report.json"
	ComparisonReportSuffix = "_comparison_report.json"
)

// Stem returns the base name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// RevisedPath is where the processor writes the revised copy of input.
func RevisedPath(dir, input string) string {
	return filepath.Join(dir, Stem(input)+RevisedSuffix)
}

// ReportPath is where the processor writes the JSON report of input.
func ReportPath(dir, input string) string {
	return filepath.Join(dir, Stem(input)+ReportSuffix)
}

// ComparisonPath is where the comparer writes the mirrored comparison of
// revised. A "_revised" stem suffix is dropped so that the comparison of
// report_revised.docx is report_comparison.docx.
func ComparisonPath(dir, revised string) string {
	stem := strings.TrimSuffix(Stem(revised), strings.TrimSuffix(RevisedSuffix, ".docx"))
	return filepath.Join(dir, stem+ComparisonSuffix)
}

// ComparisonReportPath is where the comparer writes its JSON report.
func ComparisonReportPath(dir, revised string) string {
	stem := strings.TrimSuffix(Stem(revised), strings.TrimSuffix(RevisedSuffix, ".docx"))
	return filepath.Join(dir, stem+ComparisonReportSuffix)
}
