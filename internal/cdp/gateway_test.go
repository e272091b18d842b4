package cdp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"offerpilot/internal/config"
	"offerpilot/internal/enroll"
	"offerpilot/pkg/model"
)

type MockEvaluator struct {
	mock.Mock
}

func (m *MockEvaluator) Evaluate(ctx context.Context, expr string) (json.RawMessage, error) {
	args := m.Called(ctx, expr)
	raw, _ := args.Get(0).(string)
	return json.RawMessage(raw), args.Error(1)
}

// paramsOf 取出表达式末尾注入的参数对象
func paramsOf(t *testing.T, expr string) gjson.Result {
	t.Helper()
	idx := strings.LastIndex(expr, "})(")
	require.GreaterOrEqual(t, idx, 0)
	raw := strings.TrimSuffix(expr[idx+3:], ")")
	require.True(t, gjson.Valid(raw), raw)
	return gjson.Parse(raw)
}

func newTestGateway(t *testing.T) (*Gateway, *MockEvaluator) {
	ev := new(MockEvaluator)
	g, err := NewGateway(ev, config.DefaultPage())
	require.NoError(t, err)
	return g, ev
}

func TestScriptsCarrySelectorsAsJSON(t *testing.T) {
	s, err := NewScripts(config.DefaultPage())
	require.NoError(t, err)

	p := paramsOf(t, s.List())
	assert.Equal(t, `button[aria-label^="Enroll in Offer for"]`, p.Get("enroll").String())
	assert.Equal(t, "app-mo-offer-tile", p.Get("container").String())
	assert.Equal(t, `div[aria-label^="Enrolled for"]`, p.Get("enrolled").String())
	assert.Equal(t, "aria-label", p.Get("attr").String())
	assert.Contains(t, p.Get("close").String(), "button.modal-close-btn")
}

func TestTriggerScriptEscapesLabel(t *testing.T) {
	s, err := NewScripts(config.DefaultPage())
	require.NoError(t, err)

	label := `Enroll in Offer for "Bob's" Diner`
	expr, err := s.Trigger(label)
	require.NoError(t, err)
	assert.Equal(t, label, paramsOf(t, expr).Get("label").String())

	expr, err = s.ScrollBy(-200)
	require.NoError(t, err)
	assert.Equal(t, int64(-200), paramsOf(t, expr).Get("dy").Int())
}

func TestTriggerScriptSkipsEnrolledTiles(t *testing.T) {
	s, err := NewScripts(config.DefaultPage())
	require.NoError(t, err)

	// 同名标签时，点击脚本必须与列表脚本使用同一个已报名判定
	trigger, err := s.Trigger("Enroll in Offer for Acme")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(trigger, "(function (p) {\n"+enrolledFn))
	assert.True(t, strings.HasPrefix(s.List(), "(function (p) {\n"+enrolledFn))
	assert.Contains(t, trigger, "=== p.label && !enrolled(bs[i])")

	p := paramsOf(t, trigger)
	assert.Equal(t, "app-mo-offer-tile", p.Get("container").String())
	assert.Equal(t, `div[aria-label^="Enrolled for"]`, p.Get("enrolled").String())
}

func TestGatewayTriggerDuplicateLabelAllEnrolled(t *testing.T) {
	g, ev := newTestGateway(t)
	// 页面上同名按钮都在已报名卡片里时脚本返回 false
	ev.On("Evaluate", mock.Anything, mock.MatchedBy(func(expr string) bool {
		return strings.Contains(expr, "!enrolled(bs[i])")
	})).Return("false", nil)

	err := g.TriggerAction(context.Background(), "Enroll in Offer for Acme")

	assert.ErrorIs(t, err, enroll.ErrControlNotFound)
	ev.AssertExpectations(t)
}

func TestGatewayListCandidates(t *testing.T) {
	g, ev := newTestGateway(t)
	ev.On("Evaluate", mock.Anything, g.scripts.List()).
		Return(`[{"label":"Enroll in Offer for Acme","enrolled":false},{"label":"Enroll in Offer for Bolt","enrolled":true}]`, nil)

	got, err := g.ListCandidates(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []model.Candidate{
		{Label: "Enroll in Offer for Acme"},
		{Label: "Enroll in Offer for Bolt", Enrolled: true},
	}, got)
	ev.AssertExpectations(t)
}

func TestGatewayTriggerMissingControl(t *testing.T) {
	g, ev := newTestGateway(t)
	ev.On("Evaluate", mock.Anything, mock.AnythingOfType("string")).Return("false", nil)

	err := g.TriggerAction(context.Background(), "Enroll in Offer for Gone")

	assert.True(t, errors.Is(err, enroll.ErrControlNotFound))
}

func TestGatewayTriggerClicked(t *testing.T) {
	g, ev := newTestGateway(t)
	ev.On("Evaluate", mock.Anything, mock.AnythingOfType("string")).Return("true", nil)

	assert.NoError(t, g.TriggerAction(context.Background(), "Enroll in Offer for Acme"))
}

func TestGatewayBodyTextAndConfirmation(t *testing.T) {
	g, ev := newTestGateway(t)
	ev.On("Evaluate", mock.Anything, g.scripts.BodyText()).Return(`"Unable to enroll merchant offer. Please try again."`, nil)
	ev.On("Evaluate", mock.Anything, g.scripts.Find()).Return("true", nil)
	ev.On("Evaluate", mock.Anything, g.scripts.Ready()).Return("false", nil)

	text, err := g.BodyText(context.Background())
	require.NoError(t, err)
	assert.Equal(t, config.DefaultPage().ErrorText, text)

	found, err := g.FindConfirmation(context.Background())
	require.NoError(t, err)
	assert.True(t, found)

	ready, err := g.IsDocumentReady(context.Background())
	require.NoError(t, err)
	assert.False(t, ready)
}

func TestGatewayPropagatesEvaluateError(t *testing.T) {
	g, ev := newTestGateway(t)
	ev.On("Evaluate", mock.Anything, mock.Anything).Return("", ErrNotAttached)

	_, err := g.ListCandidates(context.Background())
	assert.ErrorIs(t, err, ErrNotAttached)
	assert.ErrorIs(t, g.ScrollToEnd(context.Background()), ErrNotAttached)
	assert.ErrorIs(t, g.ScrollBy(context.Background(), 10), ErrNotAttached)
	assert.ErrorIs(t, g.DismissConfirmation(context.Background()), ErrNotAttached)
}

func TestManagerRequiresAttach(t *testing.T) {
	m := New("http://127.0.0.1:0", nil)

	_, err := m.Evaluate(context.Background(), "1")
	assert.ErrorIs(t, err, ErrNotAttached)
	assert.ErrorIs(t, m.Navigate(context.Background(), "https://example.com"), ErrNotAttached)
	assert.NoError(t, m.Detach())
}
