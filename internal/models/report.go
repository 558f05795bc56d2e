package models

// Report is the text generated for one key value.
type Report struct {
	Key  string `json:"key"`
	Text string `json:"report"`
}

// ReportSet is an insertion-ordered mapping from key value to report text.
type ReportSet struct {
	reports []Report
	index   map[string]int
}

// NewReportSet returns an empty set.
func NewReportSet() *ReportSet {
	return &ReportSet{index: make(map[string]int)}
}

// Add inserts the report for key. It fails with DuplicateKeyReportError when key is already present.
func (s *ReportSet) Add(key, text string) error {
	if _, ok := s.index[key]; ok {
		return &DuplicateKeyReportError{Key: key}
	}
	s.index[key] = len(s.reports)
	s.reports = append(s.reports, Report{Key: key, Text: text})
	return nil
}

// Get returns the report text for key.
func (s *ReportSet) Get(key string) (string, bool) {
	i, ok := s.index[key]
	if !ok {
		return "", false
	}
	return s.reports[i].Text, true
}

// Keys returns key values in first-seen order.
func (s *ReportSet) Keys() []string {
	keys := make([]string, len(s.reports))
	for i, r := range s.reports {
		keys[i] = r.Key
	}
	return keys
}

// Reports returns a copy of the reports in order.
func (s *ReportSet) Reports() []Report {
	return append([]Report(nil), s.reports...)
}

// Len returns the number of reports.
func (s *ReportSet) Len() int {
	return len(s.reports)
}
