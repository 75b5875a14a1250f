package secrets

import (
	"context"
)

type entry struct {
	key   string
	value string
}

// stagedWriter records writes in call order so a backend can apply them in a
// single atomic step.
type stagedWriter struct {
	entries []entry
}

func (w *stagedWriter) put(key, value string) {
	w.entries = append(w.entries, entry{key: key, value: value})
}

func (w *stagedWriter) SetAuthz(_ context.Context, authz bool) error {
	w.put(keyAuthz, encodeAuthz(authz))
	return nil
}

func (w *stagedWriter) SetAppStatus(_ context.Context, status AppStatus) error {
	if _, err := ParseAppStatus(string(status)); err != nil {
		return &StoreError{Op: "write", Key: keyAppStatus, Err: err}
	}
	w.put(keyAppStatus, string(status))
	return nil
}

func (w *stagedWriter) SetAppRegistration(_ context.Context, reg AppRegistration) error {
	raw, err := encodeRegistration(reg)
	if err != nil {
		return &StoreError{Op: "encode", Key: keyAppRegistration, Err: err}
	}
	w.put(keyAppRegistration, raw)
	return nil
}

// gate is a context-aware mutex backing Store.Exclusive.
type gate chan struct{}

func newGate() gate {
	return make(gate, 1)
}

func (g gate) run(ctx context.Context, fn func(ctx context.Context) error) error {
	select {
	case g <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-g }()
	return fn(ctx)
}
