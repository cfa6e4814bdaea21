package app

import "context"

type appKey struct{}

// FromContext returns the App stored by WithApp, or ErrNotInitialized
func FromContext(ctx context.Context) (*App, error) {
	a, ok := ctx.Value(appKey{}).(*App)
	if !ok || a == nil {
		return nil, ErrNotInitialized
	}
	return a, nil
}

// WithApp returns a copy of ctx carrying a
func WithApp(ctx context.Context, a *App) context.Context {
	return context.WithValue(ctx, appKey{}, a)
}
