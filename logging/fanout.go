package logging

import (
	"context"
	"log/slog"
	"slices"
)

// fanout writes records to the base handler and then to every sink.
type fanout struct {
	state  *State
	base   slog.Handler
	attrs  []slog.Attr
	groups []string
}

func (f *fanout) Enabled(ctx context.Context, l slog.Level) bool {
	return f.base.Enabled(ctx, l)
}

func (f *fanout) Handle(ctx context.Context, r slog.Record) error {
	err := f.base.Handle(ctx, r)

	sinks := f.state.snapshot()
	if len(sinks) == 0 {
		return err
	}
	e := Entry{
		Time:    r.Time,
		Level:   fromSlog(r.Level),
		Logger:  f.state.name,
		Message: r.Message,
		Attrs:   make(map[string]any, len(f.attrs)+r.NumAttrs()),
	}
	for _, a := range f.attrs {
		put(e.Attrs, a)
	}
	prefix := groupPrefix(f.groups)
	r.Attrs(func(a slog.Attr) bool {
		a.Key = prefix + a.Key
		put(e.Attrs, a)
		return true
	})
	for _, s := range sinks {
		_ = s.Emit(ctx, e)
	}
	return err
}

func (f *fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	prefix := groupPrefix(f.groups)
	next := slices.Clone(f.attrs)
	for _, a := range attrs {
		a.Key = prefix + a.Key
		next = append(next, a)
	}
	return &fanout{state: f.state, base: f.base.WithAttrs(attrs), attrs: next, groups: f.groups}
}

func (f *fanout) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return &fanout{state: f.state, base: f.base.WithGroup(name), attrs: f.attrs, groups: append(slices.Clip(f.groups), name)}
}

func groupPrefix(groups []string) string {
	var p string
	for _, g := range groups {
		p += g + "."
	}
	return p
}

// put flattens a into m, resolving LogValuers and expanding groups into
// nested maps.
func put(m map[string]any, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		g := v.Group()
		if len(g) == 0 {
			return
		}
		sub := make(map[string]any, len(g))
		for _, ga := range g {
			put(sub, ga)
		}
		if a.Key == "" {
			for k, sv := range sub {
				m[k] = sv
			}
			return
		}
		m[a.Key] = sub
		return
	}
	if a.Key == "" {
		return
	}
	m[a.Key] = v.Any()
}
