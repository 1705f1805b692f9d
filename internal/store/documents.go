package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kingrea/brief-maestro/internal/brief"
	"github.com/kingrea/brief-maestro/internal/logbook"
	"github.com/kingrea/brief-maestro/internal/render"
	"github.com/kingrea/brief-maestro/internal/schema"
	"github.com/kingrea/brief-maestro/internal/validator"
)

// Documents is the document store: it validates, persists and journals every
// operation on briefs. Writes are serialized per client code, in process by
// a mutex and across processes by the backend's update lock.
type Documents struct {
	backend Backend
	schema  *schema.Schema
	history *logbook.Shelf
	logger  *zap.Logger
	now     func() time.Time
	render  render.Options

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option customizes Documents during construction.
type Option func(*Documents)

// WithClock overrides the clock used for brief timestamps.
func WithClock(clock func() time.Time) Option {
	return func(d *Documents) {
		d.now = clock
	}
}

// WithLogger sets the operational logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Documents) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithHistory journals every mutation to the brief's logbook.
func WithHistory(shelf *logbook.Shelf) Option {
	return func(d *Documents) {
		d.history = shelf
	}
}

// WithRenderOptions sets how the stored rendering of each brief is produced.
// The placeholder also decides which filled values count as unset.
func WithRenderOptions(opts render.Options) Option {
	return func(d *Documents) {
		d.render = opts
	}
}

// New builds a document store over backend for schema s.
func New(backend Backend, s *schema.Schema, opts ...Option) *Documents {
	d := &Documents{
		backend: backend,
		schema:  s,
		logger:  zap.NewNop(),
		now:     time.Now,
		locks:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.render.Format = render.FormatMarkdown
	if d.render.Placeholder == "" {
		d.render.Placeholder = render.DefaultPlaceholder
	}
	return d
}

// Schema returns the schema briefs are built from.
func (d *Documents) Schema() *schema.Schema {
	return d.schema
}

// Close releases the backend.
func (d *Documents) Close() error {
	return d.backend.Close()
}

func (d *Documents) lock(code string) func() {
	d.mu.Lock()
	m, ok := d.locks[code]
	if !ok {
		m = &sync.Mutex{}
		d.locks[code] = m
	}
	d.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// Create stores a new draft brief with every field unset.
func (d *Documents) Create(ctx context.Context, code string) (*brief.Brief, error) {
	const op = "create"
	b, err := brief.New(d.schema, code, d.now())
	if err != nil {
		return nil, withOp(op, err)
	}
	unlock := d.lock(code)
	defer unlock()
	if err := d.backend.Insert(ctx, b, d.rendered(b)); err != nil {
		return nil, wrap(op, code, err)
	}
	d.journal(code, "created draft")
	d.logger.Info("brief created", zap.String("code", code))
	return b, nil
}

// Get loads a brief aligned to the current schema.
func (d *Documents) Get(ctx context.Context, code string) (*brief.Brief, error) {
	return d.load(ctx, "get", code)
}

// SetField parses raw for the addressed field and stores it. Blank input
// clears the field. It returns the canonical Section.Field path.
func (d *Documents) SetField(ctx context.Context, code, section, field, raw string) (string, error) {
	var path string
	_, err := d.mutate(ctx, "set", code, func(b *brief.Brief) (string, error) {
		p, err := b.SetRaw(d.schema, section, field, raw, d.now())
		if err != nil {
			return "", err
		}
		path = p
		f, _, _ := b.Field(d.schema, section, field)
		if !f.IsSet() {
			return "cleared " + path, nil
		}
		return fmt.Sprintf("set %s = %s", path, summarize(f.Value)), nil
	})
	return path, err
}

// ClearField returns a field to unset.
func (d *Documents) ClearField(ctx context.Context, code, section, field string) (string, error) {
	var path string
	_, err := d.mutate(ctx, "clear", code, func(b *brief.Brief) (string, error) {
		p, err := b.SetValue(d.schema, section, field, nil, d.now())
		if err != nil {
			return "", err
		}
		path = p
		return "cleared " + path, nil
	})
	return path, err
}

// Fill sets many fields at once, keyed by field slug. Every key must be in
// the schema; nothing is written when any key or value is rejected. Values
// equal to the placeholder leave the field unset. It returns the paths
// written in canonical order. An empty map writes nothing.
func (d *Documents) Fill(ctx context.Context, code string, values map[string]any) ([]string, error) {
	if len(values) == 0 {
		if _, err := d.load(ctx, "fill", code); err != nil {
			return nil, err
		}
		return nil, nil
	}
	var written []string
	_, err := d.mutate(ctx, "fill", code, func(b *brief.Brief) (string, error) {
		if err := b.Mutable(); err != nil {
			return "", err
		}
		keys := make([]string, 0, len(values))
		for key := range values {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			f, path, err := b.FieldByKey(d.schema, key)
			if err != nil {
				return "", err
			}
			v, err := brief.ValueFrom(f.Kind, f.Columns, values[key])
			if err != nil {
				return "", &brief.Error{Code: code, Path: path, Err: err}
			}
			f.Value = brief.DropPlaceholder(v, d.render.Placeholder)
		}
		b.UpdatedAt = d.now().UTC()
		written = filledPaths(b, values)
		return fmt.Sprintf("filled %d fields: %s", len(written), strings.Join(written, ", ")), nil
	})
	if err != nil {
		return nil, err
	}
	return written, nil
}

func filledPaths(b *brief.Brief, values map[string]any) []string {
	var paths []string
	for _, sec := range b.Sections {
		for _, f := range sec.Fields {
			if _, ok := values[f.Key]; ok {
				paths = append(paths, schema.Path(sec.Name, f.Label))
			}
		}
	}
	return paths
}

// Validate reports which required fields the brief still misses.
func (d *Documents) Validate(ctx context.Context, code string) (*validator.Report, error) {
	b, err := d.load(ctx, "validate", code)
	if err != nil {
		return nil, err
	}
	return validator.Check(d.schema, b), nil
}

// Finalize moves a complete draft to final. When required fields are unset
// it fails with ErrValidationIncomplete and the brief stays a draft.
func (d *Documents) Finalize(ctx context.Context, code string) (*brief.Brief, error) {
	return d.mutate(ctx, "finalize", code, func(b *brief.Brief) (string, error) {
		if err := b.Mutable(); err != nil {
			return "", err
		}
		if missing := validator.Validate(d.schema, b); len(missing) > 0 {
			return "", &brief.Error{Code: code, Missing: missing, Err: brief.ErrValidationIncomplete}
		}
		if err := b.MarkFinal(d.now()); err != nil {
			return "", err
		}
		return "finalized", nil
	})
}

// Archive flags the brief as archived. Archived briefs are read-only and
// hidden from the default listing.
func (d *Documents) Archive(ctx context.Context, code string) (*brief.Brief, error) {
	return d.mutate(ctx, "archive", code, func(b *brief.Brief) (string, error) {
		if b.Archived {
			return "", &brief.Error{Code: code, Err: brief.ErrArchived}
		}
		b.Archived = true
		b.UpdatedAt = d.now().UTC()
		return "archived", nil
	})
}

// List returns stored briefs sorted by code.
func (d *Documents) List(ctx context.Context, includeArchived bool) ([]Summary, error) {
	summaries, err := d.backend.List(ctx, includeArchived)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	return summaries, nil
}

// History returns up to n of the most recent logbook entries for code and
// the total number recorded.
func (d *Documents) History(ctx context.Context, code string, n int) ([]string, int, error) {
	if _, err := d.load(ctx, "history", code); err != nil {
		return nil, 0, err
	}
	if d.history == nil {
		return nil, 0, nil
	}
	book, err := d.history.Book(code)
	if err != nil {
		return nil, 0, fmt.Errorf("store: history %s: %w", code, err)
	}
	lines, total := book.Tail(n)
	return lines, total, nil
}

// Render loads the brief and formats it.
func (d *Documents) Render(ctx context.Context, code string, format render.Format) (string, error) {
	b, err := d.load(ctx, "render", code)
	if err != nil {
		return "", err
	}
	opts := d.render
	opts.Format = format
	return render.Render(b, opts), nil
}

// RenderOptions returns the options used for stored renderings.
func (d *Documents) RenderOptions() render.Options {
	return d.render
}

func (d *Documents) load(ctx context.Context, op, code string) (*brief.Brief, error) {
	if err := brief.ValidateCode(code); err != nil {
		return nil, withOp(op, err)
	}
	b, err := d.backend.Load(ctx, code)
	if err != nil {
		return nil, wrap(op, code, err)
	}
	d.align(code, b)
	return b, nil
}

func (d *Documents) align(code string, b *brief.Brief) {
	if dropped := b.Align(d.schema); len(dropped) > 0 {
		d.logger.Warn("stored values not in schema were dropped",
			zap.String("code", code),
			zap.Strings("keys", dropped))
	}
}

// mutate applies one change under the backend's update lock, so concurrent
// writers in this process or another never overwrite each other's fields.
func (d *Documents) mutate(ctx context.Context, op, code string, apply func(*brief.Brief) (string, error)) (*brief.Brief, error) {
	if err := brief.ValidateCode(code); err != nil {
		return nil, withOp(op, err)
	}
	unlock := d.lock(code)
	defer unlock()

	var (
		updated  *brief.Brief
		entry    string
		rejected error
	)
	err := d.backend.Update(ctx, code, func(b *brief.Brief) ([]byte, error) {
		d.align(code, b)
		entry, rejected = apply(b)
		if rejected != nil {
			return nil, rejected
		}
		updated = b
		return d.rendered(b), nil
	})
	if rejected != nil {
		d.logger.Debug("brief operation rejected",
			zap.String("op", op),
			zap.String("code", code),
			zap.Error(rejected))
		return nil, withOp(op, rejected)
	}
	if err != nil {
		return nil, wrap(op, code, err)
	}
	d.journal(code, entry)
	d.logger.Info("brief updated",
		zap.String("op", op),
		zap.String("code", code),
		zap.String("status", string(updated.Status)))
	return updated, nil
}

func (d *Documents) rendered(b *brief.Brief) []byte {
	return []byte(render.Render(b, d.render))
}

func (d *Documents) journal(code, entry string) {
	if d.history == nil {
		return
	}
	book, err := d.history.Book(code)
	if err == nil {
		err = book.Info("%s", entry)
	}
	if err != nil {
		d.logger.Warn("history append failed", zap.String("code", code), zap.Error(err))
	}
}

// wrap attaches op and code to backend errors. Sentinel kinds become
// *brief.Error so callers can match them with errors.Is.
func wrap(op, code string, err error) error {
	var be *brief.Error
	if errors.As(err, &be) {
		return withOp(op, err)
	}
	if errors.Is(err, brief.ErrNotFound) || errors.Is(err, brief.ErrAlreadyExists) {
		return &brief.Error{Op: op, Code: code, Err: err}
	}
	return fmt.Errorf("store: %s %s: %w", op, code, err)
}

func withOp(op string, err error) error {
	var be *brief.Error
	if errors.As(err, &be) && be.Op == "" {
		copied := *be
		copied.Op = op
		return &copied
	}
	return err
}

func summarize(v brief.Value) string {
	raw := strings.Join(strings.Fields(v.Raw()), " ")
	if len([]rune(raw)) > 60 {
		raw = string([]rune(raw)[:57]) + "..."
	}
	return raw
}
