// Package cron adapts robfig/cron to the core.TimeTrigger capability: 5-field
// recurrence expression validation and per-job arm/disarm.
package cron

import (
	"sync"

	robfig "github.com/robfig/cron/v3"

	"github.com/target/dms-export/internal/core"
	apperrors "github.com/target/dms-export/internal/errors"
)

// standard 5-field minute/hour/dom/month/dow parser, no seconds and no
// descriptors so "@every 5m" style shortcuts are rejected like any other
// malformed expression.
var parser = robfig.NewParser(
	robfig.Minute | robfig.Hour | robfig.Dom | robfig.Month | robfig.Dow,
)

// Trigger arms one timer per expression on a shared cron runner.
type Trigger struct {
	mu      sync.Mutex
	runner  *robfig.Cron
	started bool
}

var _ core.TimeTrigger = (*Trigger)(nil)

// NewTrigger creates an idle trigger; the underlying runner starts on the
// first Arm call.
func NewTrigger() *Trigger {
	return &Trigger{runner: robfig.New(robfig.WithParser(parser))}
}

// Validate reports whether expr parses as a 5-field recurrence expression.
func (t *Trigger) Validate(expr string) error {
	if _, err := parser.Parse(expr); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeValidation, "invalid recurrence expression %q", expr)
	}
	return nil
}

// Arm schedules fn according to expr.
func (t *Trigger) Arm(expr string, fn func()) (core.TriggerHandle, error) {
	if err := t.Validate(expr); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	id, err := t.runner.AddFunc(expr, fn)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeValidation, "arm %q", expr)
	}
	if !t.started {
		t.runner.Start()
		t.started = true
	}
	return &handle{runner: t.runner, id: id}, nil
}

// Stop halts the shared runner. Already-started callbacks run to completion.
func (t *Trigger) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		t.runner.Stop()
		t.started = false
	}
}

type handle struct {
	runner *robfig.Cron
	id     robfig.EntryID
	once   sync.Once
}

// Disarm removes the entry from the runner. Idempotent.
func (h *handle) Disarm() {
	h.once.Do(func() {
		h.runner.Remove(h.id)
	})
}
