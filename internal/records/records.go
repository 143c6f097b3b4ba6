package records

// Record is one scraped row, keyed by field name. Field ordering is owned by
// the ResultSet so records themselves can stay a plain map.
type Record map[string]string

// ResultSet accumulates records across all visited pages. Ordering is
// page-visit order first, then in-page DOM order. Append-only; no
// deduplication.
type ResultSet struct {
	fields     []string
	records    []Record
	pageCounts []int
}

func NewResultSet(fields []string) *ResultSet {
	f := make([]string, len(fields))
	copy(f, fields)
	return &ResultSet{fields: f}
}

// Fields returns the field names in export order.
func (rs *ResultSet) Fields() []string {
	f := make([]string, len(rs.fields))
	copy(f, rs.fields)
	return f
}

// AppendPage adds one page worth of records, preserving their order.
func (rs *ResultSet) AppendPage(recs []Record) {
	rs.records = append(rs.records, recs...)
	rs.pageCounts = append(rs.pageCounts, len(recs))
}

func (rs *ResultSet) Records() []Record {
	return rs.records
}

func (rs *ResultSet) Len() int {
	return len(rs.records)
}

// Pages returns the number of pages that contributed records, including
// pages that contributed zero.
func (rs *ResultSet) Pages() int {
	return len(rs.pageCounts)
}

func (rs *ResultSet) PageCounts() []int {
	c := make([]int, len(rs.pageCounts))
	copy(c, rs.pageCounts)
	return c
}

// Row returns the values of record i in field order. Missing fields come
// back as empty strings so every row has the same width.
func (rs *ResultSet) Row(i int) []string {
	row := make([]string, len(rs.fields))
	for j, f := range rs.fields {
		row[j] = rs.records[i][f]
	}
	return row
}
