package enroll

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"offerpilot/internal/config"
	"offerpilot/pkg/model"
)

const testErrorText = "Unable to enroll merchant offer. Please try again."

type response int

const (
	respondOK response = iota
	respondError
	respondSilent
)

type fakeOffer struct {
	label    string
	enrolled bool
	// revealAt 第几次 ScrollToEnd 之后才出现，0 表示一开始就在页面上
	revealAt int
	respond  response
}

// fakePage 按脚本模拟页面，所有方法都在驱动协程中调用
type fakePage struct {
	t      *testing.T
	clock  *VirtualClock
	offers []*fakeOffer

	readyAfter int
	readyCalls int

	scrolls   int
	listCalls int
	listErrAt int

	dialog             bool
	dialogText         string
	lingerPolls        int
	lingerLeft         int
	triggered          []string
	triggerTimes       map[string][]time.Time
	confirmPolls       map[string]int
	current            string
	failTrigger        map[string]bool
	onScroll           func(n int)
	onTrigger          func(label string)
	triggerWhileDialog bool
}

func newFakePage(t *testing.T, clock *VirtualClock, offers ...*fakeOffer) *fakePage {
	return &fakePage{
		t:            t,
		clock:        clock,
		offers:       offers,
		triggerTimes: make(map[string][]time.Time),
		confirmPolls: make(map[string]int),
		failTrigger:  make(map[string]bool),
	}
}

func offer(label string) *fakeOffer { return &fakeOffer{label: label} }

func (p *fakePage) IsDocumentReady(context.Context) (bool, error) {
	p.readyCalls++
	return p.readyCalls > p.readyAfter, nil
}

func (p *fakePage) ListCandidates(context.Context) ([]model.Candidate, error) {
	p.listCalls++
	if p.listErrAt > 0 && p.listCalls >= p.listErrAt {
		return nil, errors.New("target closed")
	}
	var out []model.Candidate
	for _, o := range p.offers {
		if o.revealAt > p.scrolls {
			continue
		}
		out = append(out, model.Candidate{Label: o.label, Enrolled: o.enrolled})
	}
	return out, nil
}

func (p *fakePage) TriggerAction(_ context.Context, label string) error {
	if p.dialog {
		p.triggerWhileDialog = true
	}
	p.triggered = append(p.triggered, label)
	p.triggerTimes[label] = append(p.triggerTimes[label], p.clock.Now())
	p.current = label
	if p.onTrigger != nil {
		p.onTrigger(label)
	}
	if p.failTrigger[label] {
		return fmt.Errorf("click %q: %w", label, ErrControlNotFound)
	}
	for _, o := range p.offers {
		if o.label != label {
			continue
		}
		switch o.respond {
		case respondOK:
			p.dialog = true
			p.dialogText = "Offer enrolled"
			o.enrolled = true
		case respondError:
			p.dialog = true
			p.dialogText = testErrorText
		}
		return nil
	}
	return ErrControlNotFound
}

func (p *fakePage) FindConfirmation(context.Context) (bool, error) {
	p.confirmPolls[p.current]++
	if p.dialog {
		return true, nil
	}
	if p.lingerLeft > 0 {
		p.lingerLeft--
		return true, nil
	}
	return false, nil
}

func (p *fakePage) DismissConfirmation(context.Context) error {
	p.dialog = false
	p.dialogText = ""
	p.lingerLeft = p.lingerPolls
	return nil
}

func (p *fakePage) BodyText(context.Context) (string, error) {
	return "Merchant offers\n" + p.dialogText, nil
}

func (p *fakePage) ScrollToEnd(context.Context) error {
	p.scrolls++
	if p.onScroll != nil {
		p.onScroll(p.scrolls)
	}
	return nil
}

func (p *fakePage) ScrollBy(context.Context, int) error { return nil }

func (p *fakePage) countTriggered(label string) int {
	n := 0
	for _, l := range p.triggered {
		if l == label {
			n++
		}
	}
	return n
}

// recorder 记录所有快照
type recorder struct {
	snaps []model.Snapshot
}

func (r *recorder) Update(s model.Snapshot) { r.snaps = append(r.snaps, s) }

func (r *recorder) sawPhase(p model.Phase) bool {
	for _, s := range r.snaps {
		if s.Phase == p {
			return true
		}
	}
	return false
}

type harness struct {
	page   *fakePage
	clock  *VirtualClock
	rec    *recorder
	events chan model.Event
	auto   *Automator
}

func newHarness(t *testing.T, policy config.Policy, offers ...*fakeOffer) *harness {
	clock := NewVirtualClock(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	page := newFakePage(t, clock, offers...)
	rec := &recorder{}
	events := make(chan model.Event, 1024)
	auto := New(Config{
		RunID:     "run-test",
		Gateway:   page,
		Reporter:  rec,
		Clock:     clock,
		Timing:    config.DefaultTiming(),
		Policy:    policy,
		ErrorText: testErrorText,
		Events:    events,
	})
	return &harness{page: page, clock: clock, rec: rec, events: events, auto: auto}
}

func (h *harness) drainEvents() []model.Event {
	var out []model.Event
	for {
		select {
		case e := <-h.events:
			out = append(out, e)
		default:
			return out
		}
	}
}

func labels(items []model.Item) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.Label
	}
	return strings.Join(parts, ",")
}
