package rehearsal

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offerpilot/internal/config"
	"offerpilot/internal/enroll"
	"offerpilot/pkg/model"
)

func load(t *testing.T, page string, opts Options) *Gateway {
	t.Helper()
	g, err := Load(strings.NewReader(page), config.DefaultPage(), opts)
	require.NoError(t, err)
	return g
}

func enrolledCount(t *testing.T, g *Gateway) int {
	t.Helper()
	out, err := g.HTML()
	require.NoError(t, err)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(out))
	require.NoError(t, err)
	return doc.Find(config.DefaultPage().EnrolledSelector).Length()
}

func TestListCandidatesMarksEnrolledTiles(t *testing.T) {
	g := load(t, Synthetic([]string{"Acme", "Bolt", "Crate"}, 1), Options{})

	got, err := g.ListCandidates(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []model.Candidate{
		{Label: "Enroll in Offer for Acme", Enrolled: true},
		{Label: "Enroll in Offer for Bolt"},
		{Label: "Enroll in Offer for Crate"},
	}, got)
}

func TestBatchesRevealOnScroll(t *testing.T) {
	ctx := context.Background()
	g := load(t, Synthetic(Merchants(7), 0), Options{BatchSize: 3})

	got, _ := g.ListCandidates(ctx)
	assert.Len(t, got, 3)
	assert.Equal(t, 4, g.Pending())

	require.NoError(t, g.ScrollToEnd(ctx))
	got, _ = g.ListCandidates(ctx)
	assert.Len(t, got, 6)

	require.NoError(t, g.ScrollToEnd(ctx))
	require.NoError(t, g.ScrollToEnd(ctx))
	got, _ = g.ListCandidates(ctx)
	assert.Len(t, got, 7)
	assert.Equal(t, "Enroll in Offer for Merchant 007", got[6].Label)
	assert.Zero(t, g.Pending())
}

func TestTriggerOpensDialog(t *testing.T) {
	ctx := context.Background()
	g := load(t, Synthetic([]string{"Acme", "Bolt"}, 0), Options{Reject: []string{"Bolt"}, DialogDelay: 1})

	require.NoError(t, g.TriggerAction(ctx, "Enroll in Offer for Acme"))

	found, _ := g.FindConfirmation(ctx)
	assert.False(t, found, "dialog appears after the configured delay")
	found, _ = g.FindConfirmation(ctx)
	assert.True(t, found)

	text, _ := g.BodyText(ctx)
	assert.NotContains(t, text, config.DefaultPage().ErrorText)
	require.NoError(t, g.DismissConfirmation(ctx))
	found, _ = g.FindConfirmation(ctx)
	assert.False(t, found)

	require.NoError(t, g.TriggerAction(ctx, "Enroll in Offer for Bolt"))
	_, _ = g.FindConfirmation(ctx)
	text, _ = g.BodyText(ctx)
	assert.Contains(t, text, config.DefaultPage().ErrorText)

	got, _ := g.ListCandidates(ctx)
	assert.True(t, got[0].Enrolled)
	assert.False(t, got[1].Enrolled)
}

func duplicateLabelPage() string {
	return `<html><body>
<app-mo-offer-tile id="first"><button aria-label="Enroll in Offer for Acme">Enroll</button><div aria-label="Enrolled for Acme">Enrolled</div></app-mo-offer-tile>
<app-mo-offer-tile id="second"><button aria-label="Enroll in Offer for Acme">Enroll</button></app-mo-offer-tile>
</body></html>`
}

func TestTriggerSkipsEnrolledTileWithSameLabel(t *testing.T) {
	ctx := context.Background()
	g := load(t, duplicateLabelPage(), Options{})

	require.NoError(t, g.TriggerAction(ctx, "Enroll in Offer for Acme"))

	got, err := g.ListCandidates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Candidate{
		{Label: "Enroll in Offer for Acme", Enrolled: true},
		{Label: "Enroll in Offer for Acme", Enrolled: true},
	}, got)
	assert.Equal(t, 1, g.doc.Find("#second "+config.DefaultPage().EnrolledSelector).Length())
}

func TestTriggerAllSameLabelEnrolled(t *testing.T) {
	g := load(t, Synthetic([]string{"Acme"}, 1), Options{})

	err := g.TriggerAction(context.Background(), "Enroll in Offer for Acme")
	assert.ErrorIs(t, err, enroll.ErrControlNotFound)
}

func TestRehearsalDuplicateLabelEnrollsEligibleTile(t *testing.T) {
	g := load(t, duplicateLabelPage(), Options{})

	sum, _ := runRehearsal(t, g, config.Policy{})

	assert.Equal(t, 1, sum.Enrolled)
	got, err := g.ListCandidates(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[1].Enrolled)
}

func TestTriggerUnknownLabel(t *testing.T) {
	g := load(t, Synthetic([]string{"Acme"}, 0), Options{})

	err := g.TriggerAction(context.Background(), "Enroll in Offer for Nobody")
	assert.ErrorIs(t, err, enroll.ErrControlNotFound)
}

func TestReadyNeedsActionControl(t *testing.T) {
	g := load(t, "<html><body><p>loading</p></body></html>", Options{})
	ready, err := g.IsDocumentReady(context.Background())
	require.NoError(t, err)
	assert.False(t, ready)
}

func runRehearsal(t *testing.T, g *Gateway, policy config.Policy) (model.Summary, *enroll.VirtualClock) {
	t.Helper()
	page := config.DefaultPage()
	clock := enroll.NewVirtualClock(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC))
	a := enroll.New(enroll.Config{
		RunID:     "rehearsal",
		Gateway:   g,
		Clock:     clock,
		Timing:    config.DefaultTiming(),
		Policy:    policy,
		ErrorText: page.ErrorText,
	})
	sum, err := a.Run(context.Background())
	require.NoError(t, err)
	return sum, clock
}

func TestRehearsalEndToEnd(t *testing.T) {
	g := load(t, Synthetic(Merchants(25), 3), Options{
		BatchSize: 3,
		Reject:    []string{"Merchant 005"},
		Silent:    []string{"Merchant 007"},
	})

	sum, clock := runRehearsal(t, g, config.Policy{})

	assert.Equal(t, model.StopCompleted, sum.StopReason)
	assert.Equal(t, 11, sum.ScanRounds)
	assert.Equal(t, 22, sum.Total)
	assert.Equal(t, 22, sum.Completed)
	assert.Equal(t, 20, sum.Enrolled)
	assert.Equal(t, 1, sum.Rejected)
	assert.Equal(t, 1, sum.TimedOut)
	assert.Zero(t, sum.TriggerFailed)
	assert.Equal(t, 23, enrolledCount(t, g))

	st := g.Stats()
	assert.Equal(t, 22, st.Triggers)
	assert.Equal(t, 21, st.Dialogs)
	assert.Equal(t, 21, st.Dismissed)
	assert.Positive(t, clock.Slept())
}

func TestRehearsalSilentRetry(t *testing.T) {
	g := load(t, Synthetic([]string{"Acme", "Quiet"}, 0), Options{Silent: []string{"Quiet"}})

	sum, _ := runRehearsal(t, g, config.Policy{TimeoutRetries: 1})

	assert.Equal(t, 1, sum.Enrolled)
	assert.Equal(t, 1, sum.TimedOut)
	assert.Equal(t, 3, g.Stats().Triggers)
}
