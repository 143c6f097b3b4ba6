package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwalters/scrapeflow/internal/extract"
)

// fakeRenderer scripts a pagination chain: one fakePage per page, clicks
// advance through them unless advance is false.
type fakePage struct {
	html string
	next NextState
}

type fakeRenderer struct {
	pages       []fakePage
	cur         int
	navErr      error
	waitErrPage int // 1-based page whose WaitReady fails, 0 = never
	advance     bool
	clicks      int
	navigated   []string
}

func (f *fakeRenderer) Navigate(_ context.Context, url string) error {
	f.navigated = append(f.navigated, url)
	return f.navErr
}

func (f *fakeRenderer) WaitReady(_ context.Context, _ string) error {
	if f.waitErrPage > 0 && f.cur+1 == f.waitErrPage {
		return fmt.Errorf("%w: scripted", ErrContentTimeout)
	}
	return nil
}

func (f *fakeRenderer) HTML(_ context.Context) (string, error) {
	return f.pages[f.cur].html, nil
}

func (f *fakeRenderer) URL() string {
	return fmt.Sprintf("https://fixture.test/page/%d", f.cur+1)
}

func (f *fakeRenderer) NextState(_ context.Context, _ string) (NextState, error) {
	return f.pages[f.cur].next, nil
}

func (f *fakeRenderer) ClickNext(_ context.Context, _, _ string) error {
	f.clicks++
	if f.advance && f.cur < len(f.pages)-1 {
		f.cur++
	}
	return nil
}

func quotesPage(page, count int) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < count; i++ {
		fmt.Fprintf(&b,
			`<div class="quote"><span class="text">quote %d-%d</span><small class="author">Author %d</small><a class="tag">life</a></div>`,
			page, i, i)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func newQuotesExtractor(t *testing.T, strict bool) *extract.Extractor {
	t.Helper()
	profile, ok := extract.BuiltinProfile("quotes")
	require.True(t, ok)
	return extract.New(profile, strict)
}

func testRun() RunInfo {
	return RunInfo{
		ID:        uuid.New(),
		Profile:   "quotes",
		StartURL:  "https://fixture.test/page/1",
		StartedAt: time.Now().UTC(),
	}
}

func TestDriverSinglePage(t *testing.T) {
	renderer := &fakeRenderer{
		pages:   []fakePage{{html: quotesPage(1, 5), next: NextAbsent}},
		advance: true,
	}

	rs, err := NewDriver(renderer, newQuotesExtractor(t, true), 0).Run(context.Background(), testRun())
	require.NoError(t, err)

	assert.Equal(t, 5, rs.Len())
	assert.Equal(t, 1, rs.Pages())
	assert.Equal(t, 0, renderer.clicks, "no next control means no click")
}

func TestDriverWalksAllPages(t *testing.T) {
	renderer := &fakeRenderer{
		pages: []fakePage{
			{html: quotesPage(1, 10), next: NextReady},
			{html: quotesPage(2, 10), next: NextReady},
			{html: quotesPage(3, 10), next: NextAbsent},
		},
		advance: true,
	}

	rs, err := NewDriver(renderer, newQuotesExtractor(t, true), 0).Run(context.Background(), testRun())
	require.NoError(t, err)

	assert.Equal(t, 30, rs.Len())
	assert.Equal(t, 3, rs.Pages())
	assert.Equal(t, []int{10, 10, 10}, rs.PageCounts())
	assert.Equal(t, 2, renderer.clicks)

	// Page-visit order, then DOM order.
	assert.Equal(t, "quote 1-0", rs.Records()[0]["text"])
	assert.Equal(t, "quote 2-0", rs.Records()[10]["text"])
	assert.Equal(t, "quote 3-9", rs.Records()[29]["text"])
}

func TestDriverMaxPagesBound(t *testing.T) {
	// Every page claims to have a next control; the bound must stop the
	// run anyway.
	pages := make([]fakePage, 10)
	for i := range pages {
		pages[i] = fakePage{html: quotesPage(i+1, 3), next: NextReady}
	}
	renderer := &fakeRenderer{pages: pages, advance: true}

	rs, err := NewDriver(renderer, newQuotesExtractor(t, true), 4).Run(context.Background(), testRun())
	require.NoError(t, err)

	assert.Equal(t, 4, rs.Pages())
	assert.Equal(t, 12, rs.Len())
	assert.Equal(t, 3, renderer.clicks)
}

func TestDriverDisabledNextTerminates(t *testing.T) {
	renderer := &fakeRenderer{
		pages:   []fakePage{{html: quotesPage(1, 2), next: NextDisabled}},
		advance: true,
	}

	rs, err := NewDriver(renderer, newQuotesExtractor(t, true), 0).Run(context.Background(), testRun())
	require.NoError(t, err)

	assert.Equal(t, 1, rs.Pages())
	assert.Equal(t, 0, renderer.clicks)
}

func TestDriverTimeoutOnFirstPage(t *testing.T) {
	renderer := &fakeRenderer{
		pages:       []fakePage{{html: quotesPage(1, 5), next: NextAbsent}},
		waitErrPage: 1,
	}

	rs, err := NewDriver(renderer, newQuotesExtractor(t, true), 0).Run(context.Background(), testRun())
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrContentTimeout)

	var pageErr *PageError
	require.ErrorAs(t, err, &pageErr)
	assert.Equal(t, 1, pageErr.Page)

	require.NotNil(t, rs, "partial results stay reachable on failure")
	assert.Equal(t, 0, rs.Len())
}

func TestDriverTimeoutMidRunKeepsPartialResults(t *testing.T) {
	renderer := &fakeRenderer{
		pages: []fakePage{
			{html: quotesPage(1, 10), next: NextReady},
			{html: quotesPage(2, 10), next: NextReady},
			{html: quotesPage(3, 10), next: NextAbsent},
		},
		advance:     true,
		waitErrPage: 3,
	}

	rs, err := NewDriver(renderer, newQuotesExtractor(t, true), 0).Run(context.Background(), testRun())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrContentTimeout)

	var pageErr *PageError
	require.ErrorAs(t, err, &pageErr)
	assert.Equal(t, 3, pageErr.Page)

	assert.Equal(t, 20, rs.Len(), "pages 1 and 2 survive the failure")
}

func TestDriverNavigationError(t *testing.T) {
	renderer := &fakeRenderer{
		pages:  []fakePage{{html: quotesPage(1, 1), next: NextAbsent}},
		navErr: errors.New("connection refused"),
	}

	rs, err := NewDriver(renderer, newQuotesExtractor(t, true), 0).Run(context.Background(), testRun())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNavigation)
	require.NotNil(t, rs)
	assert.Equal(t, 0, rs.Len())
}

func TestDriverSameContentGuard(t *testing.T) {
	// The next control is always present but clicking never moves the
	// page. Without the signature guard this would loop forever.
	renderer := &fakeRenderer{
		pages:   []fakePage{{html: quotesPage(1, 4), next: NextReady}},
		advance: false,
	}

	rs, err := NewDriver(renderer, newQuotesExtractor(t, true), 0).Run(context.Background(), testRun())
	require.NoError(t, err)

	assert.Equal(t, 1, rs.Pages(), "duplicate page must not be appended")
	assert.Equal(t, 4, rs.Len())
	assert.Equal(t, 1, renderer.clicks)
}

func TestDriverStrictEmptyPageFails(t *testing.T) {
	renderer := &fakeRenderer{
		pages: []fakePage{{html: "<html><body>no quotes</body></html>", next: NextAbsent}},
	}

	rs, err := NewDriver(renderer, newQuotesExtractor(t, true), 0).Run(context.Background(), testRun())
	require.Error(t, err)
	assert.ErrorIs(t, err, extract.ErrNoRecords)

	var pageErr *PageError
	require.ErrorAs(t, err, &pageErr)
	assert.Equal(t, 1, pageErr.Page)
	assert.Equal(t, "https://fixture.test/page/1", pageErr.URL)

	assert.Equal(t, 0, rs.Len())
}

type recordingObserver struct {
	pages  []int
	counts []int
	runIDs []uuid.UUID
}

func (o *recordingObserver) ObservePage(_ context.Context, run RunInfo, page, count int) error {
	o.pages = append(o.pages, page)
	o.counts = append(o.counts, count)
	o.runIDs = append(o.runIDs, run.ID)
	return nil
}

func TestDriverNotifiesObservers(t *testing.T) {
	renderer := &fakeRenderer{
		pages: []fakePage{
			{html: quotesPage(1, 2), next: NextReady},
			{html: quotesPage(2, 3), next: NextAbsent},
		},
		advance: true,
	}

	obs := &recordingObserver{}
	run := testRun()

	driver := NewDriver(renderer, newQuotesExtractor(t, true), 0)
	driver.AddObserver(obs)

	_, err := driver.Run(context.Background(), run)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, obs.pages)
	assert.Equal(t, []int{2, 3}, obs.counts)
	for _, id := range obs.runIDs {
		assert.Equal(t, run.ID, id)
	}
}

func TestDriverObserverFailureIsNotFatal(t *testing.T) {
	renderer := &fakeRenderer{
		pages:   []fakePage{{html: quotesPage(1, 1), next: NextAbsent}},
		advance: true,
	}

	driver := NewDriver(renderer, newQuotesExtractor(t, true), 0)
	driver.AddObserver(failingObserver{})

	rs, err := driver.Run(context.Background(), testRun())
	require.NoError(t, err)
	assert.Equal(t, 1, rs.Len())
}

type failingObserver struct{}

func (failingObserver) ObservePage(context.Context, RunInfo, int, int) error {
	return errors.New("broker unavailable")
}
